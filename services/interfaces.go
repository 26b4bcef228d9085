// services/interfaces.go
package services

import (
	"context"
	"time"

	"github.com/gewnthar/countries/backend/models"
)

type CountrySource interface {
	FetchCountries(ctx context.Context) ([]models.RawCountry, error)
}

type ExchangeRateSource interface {
	FetchRates(ctx context.Context) (models.ExchangeRateTable, error)
}

// CountryStore is the persistence the services need; database.CountryStore implements it.
type CountryStore interface {
	FindByName(ctx context.Context, name string) (*models.Country, error)
	Insert(ctx context.Context, c models.ComputedCountry, refreshedAt time.Time) (int64, error)
	Update(ctx context.Context, c models.ComputedCountry, refreshedAt time.Time) error
	ListAll(ctx context.Context) ([]models.Country, error)
	List(ctx context.Context, filter models.CountryFilter) ([]models.Country, error)
	DeleteByName(ctx context.Context, name string) (int64, error)
}

type ImageRenderer interface {
	Render(summary models.Summary) ([]byte, error)
}

type ArtifactStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

type RefreshRunLogger interface {
	LogRefreshRun(ctx context.Context, run models.RefreshRun) error
}
