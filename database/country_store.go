// database/country_store.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/gewnthar/countries/backend/models"
	"github.com/gewnthar/countries/backend/utils"
)

// mysqlErrDupEntry is ER_DUP_ENTRY.
const mysqlErrDupEntry = 1062

var (
	ErrNotFound      = errors.New("country not found")
	ErrDuplicateName = errors.New("country name already exists")
)

const countryColumns = `id, name, capital, region, population, currency_code,
	exchange_rate, estimated_gdp, flag_url, last_refreshed_at`

// CountryStore persists countries in MySQL. Names are matched through the
// utf8mb4_unicode_ci collation of countries.name, so in any letter case and
// through uq_countries_name.
type CountryStore struct {
	db *sql.DB
}

func NewCountryStore(db *sql.DB) *CountryStore {
	return &CountryStore{db: db}
}

func (s *CountryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FindByName returns the row whose name matches case-insensitively, or nil when there is none.
func (s *CountryStore) FindByName(ctx context.Context, name string) (*models.Country, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+countryColumns+` FROM countries WHERE name = ? LIMIT 1`, name)

	c, err := scanCountry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query country %q: %w", name, err)
	}
	return &c, nil
}

// Insert creates a new row. A name clash (in any letter case) returns ErrDuplicateName.
func (s *CountryStore) Insert(ctx context.Context, c models.ComputedCountry, refreshedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO countries (
			name, capital, region, population, currency_code,
			exchange_rate, estimated_gdp, flag_url, last_refreshed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name,
		nullString(utils.OptionalString(c.Capital)),
		nullString(utils.OptionalString(c.Region)),
		c.Population,
		nullString(c.CurrencyCode),
		nullFloat(c.ExchangeRate),
		gdpValue(c.EstimatedGdp),
		nullString(utils.OptionalString(c.FlagURL)),
		refreshedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDupEntry {
			return 0, fmt.Errorf("failed to insert country %q: %w", c.Name, ErrDuplicateName)
		}
		return 0, fmt.Errorf("failed to insert country %q: %w", c.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read id of country %q: %w", c.Name, err)
	}
	return id, nil
}

// Update overwrites every mutable column of the row matching c.Name. The stored name is left as first written.
func (s *CountryStore) Update(ctx context.Context, c models.ComputedCountry, refreshedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE countries
		SET capital = ?, region = ?, population = ?, currency_code = ?,
			exchange_rate = ?, estimated_gdp = ?, flag_url = ?, last_refreshed_at = ?
		WHERE name = ?`,
		nullString(utils.OptionalString(c.Capital)),
		nullString(utils.OptionalString(c.Region)),
		c.Population,
		nullString(c.CurrencyCode),
		nullFloat(c.ExchangeRate),
		gdpValue(c.EstimatedGdp),
		nullString(utils.OptionalString(c.FlagURL)),
		refreshedAt,
		c.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update country %q: %w", c.Name, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for country %q: %w", c.Name, err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update country %q: %w", c.Name, ErrNotFound)
	}
	return nil
}

// ListAll returns every row in storage order.
func (s *CountryStore) ListAll(ctx context.Context) ([]models.Country, error) {
	return s.List(ctx, models.CountryFilter{})
}

// List returns rows matching the filter. Without a sort, rows come back in storage order.
func (s *CountryStore) List(ctx context.Context, filter models.CountryFilter) ([]models.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM countries`
	var conditions []string
	var args []any

	if filter.Region != "" {
		conditions = append(conditions, "region = ?")
		args = append(args, filter.Region)
	}
	if filter.Currency != "" {
		conditions = append(conditions, "currency_code = ?")
		args = append(args, utils.NormalizeCurrencyCode(filter.Currency))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	switch filter.Sort {
	case models.SortGdpDesc:
		query += " ORDER BY estimated_gdp DESC, id ASC"
	case models.SortGdpAsc:
		query += " ORDER BY estimated_gdp ASC, id ASC"
	default:
		query += " ORDER BY id ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	countries := []models.Country{}
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan country row: %w", err)
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating country rows: %w", err)
	}
	return countries, nil
}

// DeleteByName removes the matching row and reports how many rows went away.
func (s *CountryStore) DeleteByName(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM countries WHERE name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete country %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows for delete of %q: %w", name, err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCountry(row rowScanner) (models.Country, error) {
	var c models.Country
	var capital, region, currency, flag sql.NullString
	var rate, gdp sql.NullFloat64

	err := row.Scan(
		&c.ID, &c.Name, &capital, &region, &c.Population, &currency,
		&rate, &gdp, &flag, &c.LastRefreshedAt,
	)
	if err != nil {
		return c, err
	}

	c.Capital = stringPtr(capital)
	c.Region = stringPtr(region)
	c.CurrencyCode = stringPtr(currency)
	c.FlagURL = stringPtr(flag)
	if rate.Valid {
		c.ExchangeRate = &rate.Float64
	}

	// A stored value without a currency can only be the explicit "no currency" zero.
	switch {
	case !gdp.Valid:
		c.EstimatedGdp = models.UnknownGdp()
	case !currency.Valid:
		c.EstimatedGdp = models.NoCurrencyGdp()
	default:
		c.EstimatedGdp = models.ComputedGdp(gdp.Float64)
	}
	return c, nil
}

func gdpValue(g models.GdpEstimate) sql.NullFloat64 {
	if !g.Known() {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: g.Amount(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
