// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv points at the YAML file when no --config flag is given.
const ConfigPathEnv = "COUNTRIES_CONFIG"

type ServerConfig struct {
	Port               string        `yaml:"port" env:"PORT"`
	ShutdownTimeoutStr string        `yaml:"shutdown_timeout"`
	ShutdownTimeout    time.Duration `yaml:"-"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"DB_HOST"`
	Port               string        `yaml:"port" env:"DB_PORT"`
	User               string        `yaml:"user" env:"DB_USER"`
	Password           string        `yaml:"password" env:"PASSWORD"`
	DBName             string        `yaml:"dbname" env:"DATABASE"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetimeStr string        `yaml:"conn_max_lifetime"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	AutoMigrate        *bool         `yaml:"auto_migrate"`
}

type SourcesConfig struct {
	CountriesURL     string        `yaml:"countries_url" env:"COUNTRIES_URL"`
	ExchangeRatesURL string        `yaml:"exchange_rates_url" env:"EXCHANGE_RATES_URL"`
	CountriesCSV     string        `yaml:"countries_csv" env:"COUNTRIES_CSV"` // local file instead of countries_url
	TimeoutStr       string        `yaml:"timeout"`
	Timeout          time.Duration `yaml:"-"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" env:"CACHE_BACKEND"` // "file" or "redis"
	Dir           string        `yaml:"dir" env:"CACHE_DIR"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	KeyPrefix     string        `yaml:"key_prefix"`
	TTLStr        string        `yaml:"ttl"`
	TTL           time.Duration `yaml:"-"`
}

type RefreshConfig struct {
	Workers       int           `yaml:"workers" env:"REFRESH_WORKERS"`
	Schedule      string        `yaml:"schedule" env:"REFRESH_SCHEDULE"` // cron spec, empty disables
	Seed          uint64        `yaml:"seed" env:"REFRESH_SEED"`         // 0 picks a random seed
	RunTimeoutStr string        `yaml:"run_timeout"`
	RunTimeout    time.Duration `yaml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "console"
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Sources  SourcesConfig  `yaml:"sources"`
	Cache    CacheConfig    `yaml:"cache"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Log      LogConfig      `yaml:"log"`
}

// LoadConfig reads the YAML file (if any), then .env and the process
// environment on top of it, then fills defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv(ConfigPathEnv)
	}
	if configPath == "" {
		// Run from the repo root or from config/.
		potentialPaths := []string{
			"config/config.yaml",
			"config.yaml",
			"../config/config.yaml",
		}
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	var cfg Config
	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	var err error

	if c.Server.Port == "" {
		c.Server.Port = "3000"
	}
	if c.Server.ShutdownTimeout, err = parseDuration(c.Server.ShutdownTimeoutStr, 10*time.Second); err != nil {
		return fmt.Errorf("failed to parse server.shutdown_timeout: %w", err)
	}

	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == "" {
		c.Database.Port = "3306"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = c.Database.MaxOpenConns
	}
	if c.Database.ConnMaxLifetime, err = parseDuration(c.Database.ConnMaxLifetimeStr, 5*time.Minute); err != nil {
		return fmt.Errorf("failed to parse database.conn_max_lifetime: %w", err)
	}
	if c.Database.AutoMigrate == nil {
		autoMigrate := true
		c.Database.AutoMigrate = &autoMigrate
	}

	if c.Sources.CountriesURL == "" {
		c.Sources.CountriesURL = "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"
	}
	if c.Sources.ExchangeRatesURL == "" {
		c.Sources.ExchangeRatesURL = "https://open.er-api.com/v6/latest/USD"
	}
	if c.Sources.Timeout, err = parseDuration(c.Sources.TimeoutStr, 30*time.Second); err != nil {
		return fmt.Errorf("failed to parse sources.timeout: %w", err)
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.Cache.Backend != "file" && c.Cache.Backend != "redis" {
		return fmt.Errorf("unknown cache backend %q, use 'file' or 'redis'", c.Cache.Backend)
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "cache"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "countries:artifact:"
	}
	if c.Cache.TTL, err = parseDuration(c.Cache.TTLStr, 0); err != nil {
		return fmt.Errorf("failed to parse cache.ttl: %w", err)
	}

	if c.Refresh.Workers <= 0 {
		c.Refresh.Workers = 8
	}
	if c.Refresh.RunTimeout, err = parseDuration(c.Refresh.RunTimeoutStr, 5*time.Minute); err != nil {
		return fmt.Errorf("failed to parse refresh.run_timeout: %w", err)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	return nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
