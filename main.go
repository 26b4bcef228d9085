// main.go
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "countries",
		Short:        "Country GDP ingest service",
		Long:         "Fetches countries and USD exchange rates, estimates GDP per country, stores the result in MySQL and serves it over HTTP.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default: $"+configPathEnvHint+" or config/config.yaml)")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newRefreshCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return rootCmd
}
