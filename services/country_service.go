// services/country_service.go
package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/cache"
	"github.com/gewnthar/countries/backend/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidSort = errors.New("invalid sort, use gdp_asc or gdp_desc")
)

type RefreshRunReader interface {
	RecentRefreshRuns(ctx context.Context, limit int) ([]models.RefreshRun, error)
}

// CountryService serves the read and delete operations over stored countries.
type CountryService struct {
	store     CountryStore
	summaries *SummaryBuilder
	artifacts ArtifactStore
	runs      RefreshRunReader // optional
	logger    *zap.Logger
}

func NewCountryService(store CountryStore, summaries *SummaryBuilder, artifacts ArtifactStore, runs RefreshRunReader, logger *zap.Logger) *CountryService {
	return &CountryService{
		store:     store,
		summaries: summaries,
		artifacts: artifacts,
		runs:      runs,
		logger:    logger,
	}
}

// ParseFilter builds a listing filter from query values.
func ParseFilter(region, currency, sort string) (models.CountryFilter, error) {
	order, ok := models.ParseSortOrder(sort)
	if !ok {
		return models.CountryFilter{}, fmt.Errorf("%w: %q", ErrInvalidSort, sort)
	}
	return models.CountryFilter{
		Region:   strings.TrimSpace(region),
		Currency: strings.TrimSpace(currency),
		Sort:     order,
	}, nil
}

func (s *CountryService) List(ctx context.Context, filter models.CountryFilter) ([]models.Country, error) {
	return s.store.List(ctx, filter)
}

func (s *CountryService) Get(ctx context.Context, name string) (*models.Country, error) {
	c, err := s.store.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("country %q: %w", name, ErrNotFound)
	}
	return c, nil
}

func (s *CountryService) Delete(ctx context.Context, name string) error {
	affected, err := s.store.DeleteByName(ctx, name)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("country %q: %w", name, ErrNotFound)
	}
	s.logger.Info("country deleted", zap.String("country", name))
	return nil
}

func (s *CountryService) Status(ctx context.Context) (models.Status, error) {
	summary, err := s.summaries.Build(ctx)
	if err != nil {
		return models.Status{}, err
	}
	return models.Status{TotalCountries: summary.TotalCountries, LastRefreshedAt: summary.LastRefreshedAt}, nil
}

func (s *CountryService) Summary(ctx context.Context) (models.Summary, error) {
	return s.summaries.Build(ctx)
}

// SummaryImage returns the PNG written by the last successful refresh.
func (s *CountryService) SummaryImage(ctx context.Context) ([]byte, error) {
	img, err := s.artifacts.Get(ctx, cache.SummaryImage)
	if errors.Is(err, cache.ErrArtifactNotFound) {
		return nil, fmt.Errorf("summary image: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// RecentRuns lists the latest refresh runs, newest first. Without a run log the list is empty.
func (s *CountryService) RecentRuns(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	if s.runs == nil {
		return []models.RefreshRun{}, nil
	}
	return s.runs.RecentRefreshRuns(ctx, limit)
}

type countryCSVRow struct {
	ID              int64              `csv:"id"`
	Name            string             `csv:"name"`
	Capital         *string            `csv:"capital"`
	Region          *string            `csv:"region"`
	Population      int64              `csv:"population"`
	CurrencyCode    *string            `csv:"currency_code"`
	ExchangeRate    *float64           `csv:"exchange_rate"`
	EstimatedGdp    models.GdpEstimate `csv:"estimated_gdp"`
	FlagURL         *string            `csv:"flag_url"`
	LastRefreshedAt time.Time          `csv:"last_refreshed_at"`
}

// ExportCSV writes the filtered listing as CSV with a header row, even when empty.
func (s *CountryService) ExportCSV(ctx context.Context, filter models.CountryFilter, w io.Writer) error {
	countries, err := s.store.List(ctx, filter)
	if err != nil {
		return err
	}

	csvWriter := csv.NewWriter(w)
	enc := csvutil.NewEncoder(csvWriter)
	if err := enc.EncodeHeader(countryCSVRow{}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range countries {
		row := countryCSVRow{
			ID:              c.ID,
			Name:            c.Name,
			Capital:         c.Capital,
			Region:          c.Region,
			Population:      c.Population,
			CurrencyCode:    c.CurrencyCode,
			ExchangeRate:    c.ExchangeRate,
			EstimatedGdp:    c.EstimatedGdp,
			FlagURL:         c.FlagURL,
			LastRefreshedAt: c.LastRefreshedAt.UTC(),
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode country %q: %w", c.Name, err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
