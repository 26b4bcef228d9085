package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gewnthar/countries/backend/cache"
	"github.com/gewnthar/countries/backend/database"
	"github.com/gewnthar/countries/backend/models"
	"github.com/gewnthar/countries/backend/sources"
)

// memStore is an in-memory CountryStore with the same case-insensitive name rules as MySQL.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []models.Country
	writes int // Insert/Update attempts, failed ones included

	failNames map[string]error // lower-cased name -> error from Insert/Update
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{failNames: map[string]error{}}
}

func (s *memStore) indexOf(name string) int {
	return slices.IndexFunc(s.rows, func(c models.Country) bool {
		return strings.EqualFold(c.Name, name)
	})
}

func (s *memStore) FindByName(_ context.Context, name string) (*models.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(name); i >= 0 {
		c := s.rows[i]
		return &c, nil
	}
	return nil, nil
}

func (s *memStore) Insert(_ context.Context, c models.ComputedCountry, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if err := s.failNames[strings.ToLower(c.Name)]; err != nil {
		return 0, err
	}
	if s.indexOf(c.Name) >= 0 {
		return 0, database.ErrDuplicateName
	}
	s.nextID++
	s.rows = append(s.rows, toCountry(s.nextID, c.Name, c, at))
	return s.nextID, nil
}

func (s *memStore) Update(_ context.Context, c models.ComputedCountry, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if err := s.failNames[strings.ToLower(c.Name)]; err != nil {
		return err
	}
	i := s.indexOf(c.Name)
	if i < 0 {
		return database.ErrNotFound
	}
	s.rows[i] = toCountry(s.rows[i].ID, s.rows[i].Name, c, at)
	return nil
}

func (s *memStore) ListAll(ctx context.Context) ([]models.Country, error) {
	return s.List(ctx, models.CountryFilter{})
}

func (s *memStore) List(_ context.Context, filter models.CountryFilter) ([]models.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []models.Country{}
	for _, c := range s.rows {
		if filter.Region != "" && (c.Region == nil || *c.Region != filter.Region) {
			continue
		}
		if filter.Currency != "" && (c.CurrencyCode == nil || !strings.EqualFold(*c.CurrencyCode, filter.Currency)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *memStore) DeleteByName(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(name)
	if i < 0 {
		return 0, nil
	}
	s.rows = slices.Delete(s.rows, i, i+1)
	return 1, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func toCountry(id int64, name string, c models.ComputedCountry, at time.Time) models.Country {
	return models.Country{
		ID:              id,
		Name:            name,
		Capital:         optional(c.Capital),
		Region:          optional(c.Region),
		Population:      c.Population,
		CurrencyCode:    c.CurrencyCode,
		ExchangeRate:    c.ExchangeRate,
		EstimatedGdp:    c.EstimatedGdp,
		FlagURL:         optional(c.FlagURL),
		LastRefreshedAt: at,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// fixedRandom always returns the same values, for exact assertions.
type fixedRandom struct {
	intValue   int
	floatValue float64
}

func (f fixedRandom) IntRange(min, max int) int {
	return min + (f.intValue-min)%(max-min+1)
}

func (f fixedRandom) FloatRange(min, max float64) float64 {
	if f.floatValue < min || f.floatValue > max {
		return min
	}
	return f.floatValue
}

type staticCountries struct {
	countries []models.RawCountry
	err       error
}

func (s staticCountries) FetchCountries(ctx context.Context) ([]models.RawCountry, error) {
	return s.countries, s.err
}

type staticRates struct {
	rates models.ExchangeRateTable
	err   error
}

func (s staticRates) FetchRates(ctx context.Context) (models.ExchangeRateTable, error) {
	return s.rates, s.err
}

type memArtifacts struct {
	mu    sync.Mutex
	items map[string][]byte
	err   error
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{items: map[string][]byte{}}
}

func (a *memArtifacts) Put(_ context.Context, name string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.items[name] = data
	return nil
}

func (a *memArtifacts) Get(_ context.Context, name string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.items[name]
	if !ok {
		return nil, cache.ErrArtifactNotFound
	}
	return data, nil
}

type stubRenderer struct{ err error }

func (r stubRenderer) Render(summary models.Summary) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png:" + strings.Repeat("x", summary.TotalCountries)), nil
}

type memRunLog struct {
	mu   sync.Mutex
	runs []models.RefreshRun
}

func (l *memRunLog) LogRefreshRun(_ context.Context, run models.RefreshRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
	return nil
}

func (l *memRunLog) RecentRefreshRuns(_ context.Context, limit int) ([]models.RefreshRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := slices.Clone(l.runs)
	slices.Reverse(out)
	return out[:min(limit, len(out))], nil
}

var errBoom = errors.New("boom")

var upstreamDown = &sources.UpstreamError{Source: sources.SourceCountries, StatusCode: 503}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
