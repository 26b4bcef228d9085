// app.go
package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/cache"
	"github.com/gewnthar/countries/backend/config"
	"github.com/gewnthar/countries/backend/database"
	"github.com/gewnthar/countries/backend/logging"
	"github.com/gewnthar/countries/backend/metrics"
	"github.com/gewnthar/countries/backend/render"
	"github.com/gewnthar/countries/backend/services"
	"github.com/gewnthar/countries/backend/sources"
)

const configPathEnvHint = config.ConfigPathEnv

// app holds every long-lived dependency, built once per command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sql.DB
	store     *database.CountryStore
	runs      *database.RefreshRunStore
	artifacts cache.Store
	registry  *prometheus.Registry

	refresher *services.RefreshOrchestrator
	countries *services.CountryService
}

// loadBase reads config and builds the logger and the DB pool, enough for migrations.
func loadBase(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("db_name", cfg.Database.DBName),
		zap.String("cache_backend", cfg.Cache.Backend))

	db, err := database.InitDB(cfg.Database, logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	return &app{cfg: cfg, logger: logger, db: db}, nil
}

// newApp builds the full service graph on top of loadBase.
func newApp(ctx context.Context, configPath string) (*app, error) {
	a, err := loadBase(configPath)
	if err != nil {
		return nil, err
	}

	if *a.cfg.Database.AutoMigrate {
		if err := database.RunMigrations(a.db, database.MigrateUp, a.logger); err != nil {
			a.close()
			return nil, err
		}
	}

	a.artifacts, err = cache.New(ctx, a.cfg.Cache, a.logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("error initializing artifact store: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.store = database.NewCountryStore(a.db)
	a.runs = database.NewRefreshRunStore(a.db)

	random := services.NewRandomSource(a.cfg.Refresh.Seed)
	summaries := services.NewSummaryBuilder(a.store)

	a.refresher = services.NewRefreshOrchestrator(services.RefreshDeps{
		Countries:  a.countrySource(),
		Rates:      sources.NewOpenERSource(a.cfg.Sources.ExchangeRatesURL, a.cfg.Sources.Timeout, a.logger),
		Estimator:  services.NewGdpEstimator(random),
		Reconciler: services.NewReconciler(a.store, random, nil, a.logger),
		Summaries:  summaries,
		Renderer:   render.NewSummaryRenderer(),
		Artifacts:  a.artifacts,
		RunLog:     a.runs,
		Metrics:    metrics.NewRefreshMetrics(a.registry),
		Workers:    a.cfg.Refresh.Workers,
	}, a.logger)

	a.countries = services.NewCountryService(a.store, summaries, a.artifacts, a.runs, a.logger)
	return a, nil
}

func (a *app) countrySource() services.CountrySource {
	if a.cfg.Sources.CountriesCSV != "" {
		a.logger.Info("using local countries file", zap.String("path", a.cfg.Sources.CountriesCSV))
		return sources.NewCSVCountrySource(a.cfg.Sources.CountriesCSV, a.logger)
	}
	return sources.NewRestCountriesSource(a.cfg.Sources.CountriesURL, a.cfg.Sources.Timeout, a.logger)
}

func (a *app) close() {
	if a.artifacts != nil {
		if err := a.artifacts.Close(); err != nil {
			a.logger.Warn("failed to close artifact store", zap.Error(err))
		}
	}
	database.CloseDB(a.db, a.logger)
	a.logger.Sync()
}
