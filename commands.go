// commands.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/database"
	"github.com/gewnthar/countries/backend/handlers"
	"github.com/gewnthar/countries/backend/metrics"
	"github.com/gewnthar/countries/backend/services"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the refresh schedule, if configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	var scheduler *services.RefreshScheduler
	if a.cfg.Refresh.Schedule != "" {
		var err error
		scheduler, err = services.NewRefreshScheduler(a.cfg.Refresh.Schedule, a.refresher, a.cfg.Refresh.RunTimeout, a.logger)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Countries: handlers.NewCountryHandler(a.refresher, a.countries, a.cfg.Refresh.RunTimeout, a.logger),
		Health:    handlers.NewHealthHandler(a.store, a.logger),
		Metrics:   metrics.NewHTTPMetrics(a.registry),
		Gatherer:  a.registry,
		Logger:    a.logger,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

func newRefreshCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh and print its outcome as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(ctx, a.cfg.Refresh.RunTimeout)
			defer cancel()

			outcome, refreshErr := a.refresher.Refresh(ctx)
			if outcome != nil {
				out, err := json.MarshalIndent(outcome, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode outcome: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			return refreshErr
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{database.MigrateUp, database.MigrateDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := database.MigrateUp
			if len(args) == 1 {
				direction = args[0]
			}

			a, err := loadBase(*configPath)
			if err != nil {
				return err
			}
			defer func() {
				database.CloseDB(a.db, a.logger)
				a.logger.Sync()
			}()
			return database.RunMigrations(a.db, direction, a.logger)
		},
	}
}
