package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/gewnthar/countries/backend/models"
)

type CountryQueries struct {
	mock.Mock
}

func (m *CountryQueries) List(ctx context.Context, filter models.CountryFilter) ([]models.Country, error) {
	args := m.Called(ctx, filter)
	countries, _ := args.Get(0).([]models.Country)
	return countries, args.Error(1)
}

func (m *CountryQueries) Get(ctx context.Context, name string) (*models.Country, error) {
	args := m.Called(ctx, name)
	country, _ := args.Get(0).(*models.Country)
	return country, args.Error(1)
}

func (m *CountryQueries) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *CountryQueries) Status(ctx context.Context) (models.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Status), args.Error(1)
}

func (m *CountryQueries) Summary(ctx context.Context) (models.Summary, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Summary), args.Error(1)
}

func (m *CountryQueries) SummaryImage(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	img, _ := args.Get(0).([]byte)
	return img, args.Error(1)
}

// ExportCSV writes the first return value (a string) to w when the call succeeds.
func (m *CountryQueries) ExportCSV(ctx context.Context, filter models.CountryFilter, w io.Writer) error {
	args := m.Called(ctx, filter, w)
	if err := args.Error(1); err != nil {
		return err
	}
	_, err := io.WriteString(w, args.String(0))
	return err
}

func (m *CountryQueries) RecentRuns(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]models.RefreshRun)
	return runs, args.Error(1)
}

type Pinger struct {
	mock.Mock
}

func (m *Pinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
