package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/database"
	"github.com/gewnthar/countries/backend/models"
)

func computed(name string, gdp models.GdpEstimate) models.ComputedCountry {
	code := "JPY"
	rate := 150.0
	return models.ComputedCountry{
		RawCountry:   models.RawCountry{Name: name, Capital: "Tokyo", Region: "Asia", Population: 125000000, Currencies: []string{code}},
		CurrencyCode: &code,
		ExchangeRate: &rate,
		EstimatedGdp: gdp,
	}
}

func TestReconciler_InsertThenUpdateIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	first := time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)
	now := first
	r := NewReconciler(store, fixedRandom{floatValue: 1.1}, func() time.Time { return now }, zap.NewNop())

	res := r.Reconcile(ctx, computed("Japan", models.ComputedGdp(1000)))
	require.NoError(t, res.Err)
	assert.Equal(t, WriteInserted, res.Outcome)

	now = first.Add(time.Hour)
	res = r.Reconcile(ctx, computed("japan", models.ComputedGdp(2000)))
	require.NoError(t, res.Err)
	assert.Equal(t, WriteUpdated, res.Outcome)

	rows, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Japan", rows[0].Name, "stored name keeps its first spelling")
	assert.InDelta(t, 2200, rows[0].EstimatedGdp.Amount(), 1e-9)
	assert.Equal(t, now, rows[0].LastRefreshedAt)
}

func TestReconciler_SmoothingRange(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := NewReconciler(store, NewRandomSource(99), nil, zap.NewNop())

	require.Equal(t, WriteInserted, r.Reconcile(ctx, computed("Japan", models.ComputedGdp(1))).Outcome)
	for i := 0; i < 200; i++ {
		res := r.Reconcile(ctx, computed("JAPAN", models.ComputedGdp(1000)))
		require.Equal(t, WriteUpdated, res.Outcome)

		row, err := store.FindByName(ctx, "japan")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, row.EstimatedGdp.Amount(), 900.0)
		assert.LessOrEqual(t, row.EstimatedGdp.Amount(), 1100.0)
	}
}

func TestReconciler_UpdateKeepsUnknownAndNoCurrency(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := NewReconciler(store, fixedRandom{floatValue: 0.9}, nil, zap.NewNop())

	r.Reconcile(ctx, computed("Testland", models.UnknownGdp()))
	res := r.Reconcile(ctx, computed("testland", models.UnknownGdp()))
	require.Equal(t, WriteUpdated, res.Outcome)
	row, _ := store.FindByName(ctx, "Testland")
	assert.Equal(t, models.UnknownGdp(), row.EstimatedGdp)

	r.Reconcile(ctx, computed("Antarctica", models.NoCurrencyGdp()))
	r.Reconcile(ctx, computed("Antarctica", models.NoCurrencyGdp()))
	row, _ = store.FindByName(ctx, "Antarctica")
	assert.Equal(t, models.NoCurrencyGdp(), row.EstimatedGdp)
}

func TestReconciler_NullGdpIsStillWritten(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, NewRandomSource(1), nil, zap.NewNop())

	res := r.Reconcile(context.Background(), computed("Testland", models.UnknownGdp()))
	require.Equal(t, WriteInserted, res.Outcome)
	assert.Equal(t, 1, store.count())
}

// racingStore reports no row on lookup although one exists, like a concurrent
// refresh inserting between our lookup and our insert.
type racingStore struct {
	*memStore
}

func (s racingStore) FindByName(context.Context, string) (*models.Country, error) {
	return nil, nil
}

func TestReconciler_DuplicateInsertFallsBackToUpdate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	_, err := store.Insert(ctx, computed("Japan", models.ComputedGdp(1)), time.Now())
	require.NoError(t, err)

	r := NewReconciler(racingStore{store}, fixedRandom{floatValue: 1}, nil, zap.NewNop())
	res := r.Reconcile(ctx, computed("japan", models.ComputedGdp(500)))
	require.NoError(t, res.Err)
	assert.Equal(t, WriteUpdated, res.Outcome)

	rows, _ := store.ListAll(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, 500.0, rows[0].EstimatedGdp.Amount())
}

// vanishingStore finds a row that is gone by the time it is updated.
type vanishingStore struct {
	*memStore
}

func (s vanishingStore) FindByName(context.Context, string) (*models.Country, error) {
	return &models.Country{ID: 1, Name: "Ghost"}, nil
}

func TestReconciler_VanishedRowIsInserted(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(vanishingStore{store}, fixedRandom{floatValue: 1}, nil, zap.NewNop())

	res := r.Reconcile(context.Background(), computed("Ghost", models.ComputedGdp(10)))
	require.NoError(t, res.Err)
	assert.Equal(t, WriteInserted, res.Outcome)
	assert.Equal(t, 1, store.count())
}

func TestReconciler_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.failNames["japan"] = errBoom
	r := NewReconciler(store, NewRandomSource(1), nil, zap.NewNop())

	res := r.Reconcile(context.Background(), computed("Japan", models.ComputedGdp(1)))
	assert.Equal(t, WriteFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, errBoom)
	assert.NotErrorIs(t, res.Err, database.ErrDuplicateName)
}
