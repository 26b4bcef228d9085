package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/countries/backend/models"
)

var countryRowColumns = []string{
	"id", "name", "capital", "region", "population", "currency_code",
	"exchange_rate", "estimated_gdp", "flag_url", "last_refreshed_at",
}

func newMockStore(t *testing.T) (*CountryStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewCountryStore(db), mock
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestCountryStore_FindByName(t *testing.T) {
	ctx := context.Background()
	refreshed := time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM countries WHERE name = ? LIMIT 1")).
			WithArgs("japan").
			WillReturnRows(sqlmock.NewRows(countryRowColumns).
				AddRow(7, "Japan", "Tokyo", "Asia", int64(125000000), "JPY", 150.2, 1.5e12, "https://flagcdn.com/jp.svg", refreshed))

		c, err := store.FindByName(ctx, "japan")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, int64(7), c.ID)
		assert.Equal(t, "Japan", c.Name)
		assert.Equal(t, "Tokyo", *c.Capital)
		assert.Equal(t, "JPY", *c.CurrencyCode)
		assert.Equal(t, 150.2, *c.ExchangeRate)
		assert.Equal(t, models.ComputedGdp(1.5e12), c.EstimatedGdp)
		assert.Equal(t, refreshed, c.LastRefreshedAt)
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM countries WHERE name = ?")).
			WithArgs("Atlantis").
			WillReturnRows(sqlmock.NewRows(countryRowColumns))

		c, err := store.FindByName(ctx, "Atlantis")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("query error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM countries")).
			WillReturnError(errors.New("connection refused"))

		_, err := store.FindByName(ctx, "Japan")
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestCountryStore_ScanGdpStates(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM countries ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows(countryRowColumns).
			AddRow(1, "Testland", nil, nil, int64(1000000), "TST", nil, nil, nil, now).
			AddRow(2, "Antarctica", nil, "Polar", int64(1000), nil, nil, 0.0, nil, now).
			AddRow(3, "Nowhere", nil, nil, int64(0), "EUR", 0.9, 0.0, nil, now))

	rows, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, models.UnknownGdp(), rows[0].EstimatedGdp)
	assert.Nil(t, rows[0].ExchangeRate)
	assert.Nil(t, rows[0].Capital)

	assert.Equal(t, models.NoCurrencyGdp(), rows[1].EstimatedGdp)
	assert.Nil(t, rows[1].CurrencyCode)

	assert.Equal(t, models.ComputedGdp(0), rows[2].EstimatedGdp)
}

func TestCountryStore_Insert(t *testing.T) {
	ctx := context.Background()
	refreshed := time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)
	country := models.ComputedCountry{
		RawCountry: models.RawCountry{
			Name:       "Testland",
			Population: 1000000,
			Currencies: []string{"TST"},
		},
		CurrencyCode: strPtr("TST"),
		EstimatedGdp: models.UnknownGdp(),
	}

	t.Run("inserted", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO countries")).
			WithArgs("Testland", nil, nil, int64(1000000), "TST", nil, nil, nil, refreshed).
			WillReturnResult(sqlmock.NewResult(42, 1))

		id, err := store.Insert(ctx, country, refreshed)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})

	t.Run("duplicate name", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO countries")).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'testland' for key 'uq_countries_name'"})

		_, err := store.Insert(ctx, country, refreshed)
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("other failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO countries")).
			WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'countries' doesn't exist"})

		_, err := store.Insert(ctx, country, refreshed)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrDuplicateName)
	})
}

func TestCountryStore_Update(t *testing.T) {
	ctx := context.Background()
	refreshed := time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)
	country := models.ComputedCountry{
		RawCountry: models.RawCountry{
			Name:       "japan",
			Capital:    "Tokyo",
			Region:     "Asia",
			Population: 125000000,
			FlagURL:    "https://flagcdn.com/jp.svg",
		},
		CurrencyCode: strPtr("JPY"),
		ExchangeRate: floatPtr(150),
		EstimatedGdp: models.ComputedGdp(1e12),
	}

	t.Run("updated", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`(?s)UPDATE countries.*WHERE name = \?`).
			WithArgs("Tokyo", "Asia", int64(125000000), "JPY", 150.0, 1e12, "https://flagcdn.com/jp.svg", refreshed, "japan").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.Update(ctx, country, refreshed))
	})

	t.Run("row vanished", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE countries")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, store.Update(ctx, country, refreshed), ErrNotFound)
	})
}

func TestCountryStore_List(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name   string
		filter models.CountryFilter
		query  string
		args   []driver.Value
	}{
		{
			name:  "no filter",
			query: "FROM countries ORDER BY id ASC",
		},
		{
			name:   "region and currency",
			filter: models.CountryFilter{Region: "Africa", Currency: "ngn"},
			query:  "FROM countries WHERE region = ? AND currency_code = ? ORDER BY id ASC",
			args:   []driver.Value{"Africa", "NGN"},
		},
		{
			name:   "gdp descending",
			filter: models.CountryFilter{Sort: models.SortGdpDesc},
			query:  "FROM countries ORDER BY estimated_gdp DESC, id ASC",
		},
		{
			name:   "gdp ascending with region",
			filter: models.CountryFilter{Region: "Europe", Sort: models.SortGdpAsc},
			query:  "FROM countries WHERE region = ? ORDER BY estimated_gdp ASC, id ASC",
			args:   []driver.Value{"Europe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			expect := mock.ExpectQuery(regexp.QuoteMeta(tt.query))
			if len(tt.args) > 0 {
				expect = expect.WithArgs(tt.args...)
			}
			expect.WillReturnRows(sqlmock.NewRows(countryRowColumns).
				AddRow(1, "Nigeria", "Abuja", "Africa", int64(206139587), "NGN", 1500.0, 2.5e11, nil, now))

			rows, err := store.List(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
		})
	}
}

func TestCountryStore_ListEmptyIsNotNil(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM countries")).
		WillReturnRows(sqlmock.NewRows(countryRowColumns))

	rows, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestCountryStore_DeleteByName(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM countries WHERE name = ?")).
		WithArgs("Atlantis").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM countries WHERE name = ?")).
		WithArgs("JAPAN").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := store.DeleteByName(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = store.DeleteByName(context.Background(), "JAPAN")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}
