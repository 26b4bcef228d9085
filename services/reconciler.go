// services/reconciler.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/database"
	"github.com/gewnthar/countries/backend/models"
)

const (
	smoothingMin = 0.9
	smoothingMax = 1.1
)

// WriteOutcome is what the reconciler did with one country.
type WriteOutcome string

const (
	WriteInserted WriteOutcome = "inserted"
	WriteUpdated  WriteOutcome = "updated"
	WriteFailed   WriteOutcome = "failed"
)

type ReconcileResult struct {
	Name    string
	Outcome WriteOutcome
	Err     error
}

// Reconciler upserts computed countries by case-insensitive name.
type Reconciler struct {
	store  CountryStore
	random RandomSource
	now    func() time.Time
	logger *zap.Logger
}

func NewReconciler(store CountryStore, random RandomSource, now func() time.Time, logger *zap.Logger) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{store: store, random: random, now: now, logger: logger}
}

// Reconcile inserts c when no row matches its name, otherwise updates the row
// with the GDP scaled by a smoothing factor in [0.9, 1.1]. A concurrent
// refresh winning the insert turns into an update, and a row deleted between
// lookup and update is inserted again, so interleaved runs converge.
func (r *Reconciler) Reconcile(ctx context.Context, c models.ComputedCountry) ReconcileResult {
	result := ReconcileResult{Name: c.Name}

	existing, err := r.store.FindByName(ctx, c.Name)
	if err != nil {
		return r.fail(result, fmt.Errorf("failed to look up country: %w", err))
	}

	if existing == nil {
		err := r.insert(ctx, c)
		switch {
		case err == nil:
			result.Outcome = WriteInserted
			return result
		case !errors.Is(err, database.ErrDuplicateName):
			return r.fail(result, err)
		}
		r.logger.Debug("insert lost to a concurrent writer, updating instead", zap.String("country", c.Name))
	}

	err = r.update(ctx, c)
	if errors.Is(err, database.ErrNotFound) {
		r.logger.Debug("row vanished before update, inserting", zap.String("country", c.Name))
		if err = r.insert(ctx, c); err == nil {
			result.Outcome = WriteInserted
			return result
		}
	}
	if err != nil {
		return r.fail(result, err)
	}
	result.Outcome = WriteUpdated
	return result
}

func (r *Reconciler) insert(ctx context.Context, c models.ComputedCountry) error {
	_, err := r.store.Insert(ctx, c, r.timestamp())
	return err
}

func (r *Reconciler) update(ctx context.Context, c models.ComputedCountry) error {
	c.EstimatedGdp = c.EstimatedGdp.Scale(r.random.FloatRange(smoothingMin, smoothingMax))
	return r.store.Update(ctx, c, r.timestamp())
}

// timestamp matches the DATETIME(3) column so reads return what was written.
func (r *Reconciler) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func (r *Reconciler) fail(result ReconcileResult, err error) ReconcileResult {
	result.Outcome = WriteFailed
	result.Err = err
	r.logger.Warn("failed to reconcile country", zap.String("country", result.Name), zap.Error(err))
	return result
}
