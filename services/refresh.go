// services/refresh.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/qmuntal/stateless"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/countries/backend/cache"
	"github.com/gewnthar/countries/backend/metrics"
	"github.com/gewnthar/countries/backend/models"
	"github.com/gewnthar/countries/backend/sources"
)

// RefreshState is the stage a refresh run is in.
type RefreshState string

const (
	StateIdle            RefreshState = "idle"
	StateFetchingSources RefreshState = "fetching_sources"
	StateReconciling     RefreshState = "reconciling"
	StateSummarizing     RefreshState = "summarizing"
	StateAborted         RefreshState = "aborted"
)

type refreshTrigger string

const (
	triggerStart         refreshTrigger = "start"
	triggerSourcesFailed refreshTrigger = "sources_failed"
	triggerSourcesReady  refreshTrigger = "sources_ready"
	triggerRowsWritten   refreshTrigger = "rows_written"
	triggerSummaryDone   refreshTrigger = "summary_done"
	triggerSummaryFailed refreshTrigger = "summary_failed"
	triggerReset         refreshTrigger = "reset"
)

const defaultRefreshWorkers = 8

// RefreshDeps groups what a RefreshOrchestrator is built from. RunLog and Metrics are optional.
type RefreshDeps struct {
	Countries  CountrySource
	Rates      ExchangeRateSource
	Estimator  *GdpEstimator
	Reconciler *Reconciler
	Summaries  *SummaryBuilder
	Renderer   ImageRenderer
	Artifacts  ArtifactStore
	RunLog     RefreshRunLogger
	Metrics    *metrics.RefreshMetrics
	Workers    int
	Now        func() time.Time
}

// RefreshOrchestrator runs the fetch, reconcile, summarize pipeline.
// Concurrent calls are allowed; each run has its own state machine.
type RefreshOrchestrator struct {
	deps   RefreshDeps
	logger *zap.Logger

	mu        sync.Mutex
	lastState RefreshState
}

func NewRefreshOrchestrator(deps RefreshDeps, logger *zap.Logger) *RefreshOrchestrator {
	if deps.Workers <= 0 {
		deps.Workers = defaultRefreshWorkers
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &RefreshOrchestrator{deps: deps, logger: logger, lastState: StateIdle}
}

// State reports the stage of the most recently started run.
func (o *RefreshOrchestrator) State() RefreshState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastState
}

func (o *RefreshOrchestrator) setState(s RefreshState) {
	o.mu.Lock()
	o.lastState = s
	o.mu.Unlock()
}

func (o *RefreshOrchestrator) newMachine(logger *zap.Logger) *stateless.StateMachine {
	machine := stateless.NewStateMachine(StateIdle)

	machine.Configure(StateIdle).
		Permit(triggerStart, StateFetchingSources)
	machine.Configure(StateFetchingSources).
		Permit(triggerSourcesFailed, StateAborted).
		Permit(triggerSourcesReady, StateReconciling)
	machine.Configure(StateReconciling).
		Permit(triggerRowsWritten, StateSummarizing)
	machine.Configure(StateSummarizing).
		Permit(triggerSummaryDone, StateIdle).
		Permit(triggerSummaryFailed, StateAborted)
	machine.Configure(StateAborted).
		Permit(triggerReset, StateIdle)

	machine.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		o.setState(t.Destination.(RefreshState))
		logger.Debug("refresh state changed",
			zap.Any("from", t.Source), zap.Any("to", t.Destination), zap.Any("trigger", t.Trigger))
	})
	return machine
}

// fire advances the run's machine. The pipeline only fires permitted
// triggers, so an error here is a bug and is logged rather than returned.
func fire(ctx context.Context, logger *zap.Logger, machine *stateless.StateMachine, trigger refreshTrigger) {
	if err := machine.FireCtx(ctx, trigger); err != nil {
		logger.Error("invalid refresh state transition", zap.Any("trigger", trigger), zap.Error(err))
	}
}

// Refresh runs one full refresh. When a source cannot be fetched nothing is
// written and both an aborted outcome and an error matching
// sources.ErrUpstreamUnavailable are returned. Row failures do not fail the
// run; they are listed in the outcome with status partial.
func (o *RefreshOrchestrator) Refresh(ctx context.Context) (*models.RefreshOutcome, error) {
	outcome := &models.RefreshOutcome{
		RunID:     uuid.NewString(),
		StartedAt: o.deps.Now().UTC(),
	}
	logger := o.logger.With(zap.String("run_id", outcome.RunID))
	machine := o.newMachine(logger)

	logger.Info("refresh started")
	fire(ctx, logger, machine, triggerStart)

	rawCountries, rates, err := o.fetchSources(ctx)
	if err != nil {
		fire(ctx, logger, machine, triggerSourcesFailed)
		outcome.Status = models.RefreshAborted
		if source, ok := sources.FailedSource(err); ok {
			outcome.FailedSource = source
			o.deps.Metrics.SourceFailed(source)
		}
		o.finish(ctx, logger, outcome)
		logger.Error("refresh aborted, nothing written", zap.String("source", outcome.FailedSource), zap.Error(err))
		return outcome, err
	}
	fire(ctx, logger, machine, triggerSourcesReady)

	results := o.reconcileAll(ctx, rawCountries, rates)
	var rowErrs *multierror.Error
	for _, res := range results {
		switch res.Outcome {
		case WriteInserted:
			outcome.Inserted++
		case WriteUpdated:
			outcome.Updated++
		default:
			outcome.Failed++
			outcome.Failures = append(outcome.Failures, models.RowFailure{Name: res.Name, Error: res.Err.Error()})
			rowErrs = multierror.Append(rowErrs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	o.deps.Metrics.AddRows(string(WriteInserted), outcome.Inserted)
	o.deps.Metrics.AddRows(string(WriteUpdated), outcome.Updated)
	o.deps.Metrics.AddRows(string(WriteFailed), outcome.Failed)
	if err := rowErrs.ErrorOrNil(); err != nil {
		logger.Warn("some countries failed to reconcile", zap.Int("failed", outcome.Failed), zap.Error(err))
	}
	fire(ctx, logger, machine, triggerRowsWritten)

	summary, err := o.deps.Summaries.Build(ctx)
	if err != nil {
		fire(ctx, logger, machine, triggerSummaryFailed)
		outcome.Status = models.RefreshAborted
		o.finish(ctx, logger, outcome)
		return outcome, fmt.Errorf("failed to summarize after refresh: %w", err)
	}
	o.storeSummaryImage(ctx, logger, summary)
	fire(ctx, logger, machine, triggerSummaryDone)

	outcome.TotalCountries = summary.TotalCountries
	outcome.LastRefreshedAt = summary.LastRefreshedAt
	outcome.Status = models.RefreshSucceeded
	if outcome.Failed > 0 {
		outcome.Status = models.RefreshPartial
	}
	o.deps.Metrics.SetCountriesStored(summary.TotalCountries)
	o.finish(ctx, logger, outcome)

	logger.Info("refresh finished",
		zap.String("status", string(outcome.Status)),
		zap.Int("fetched", len(rawCountries)),
		zap.Int("inserted", outcome.Inserted),
		zap.Int("updated", outcome.Updated),
		zap.Int("failed", outcome.Failed),
		zap.Int("total_countries", outcome.TotalCountries),
		zap.Duration("took", outcome.FinishedAt.Sub(outcome.StartedAt)))
	return outcome, nil
}

// fetchSources fetches both sources in parallel; the first failure cancels the other fetch.
func (o *RefreshOrchestrator) fetchSources(ctx context.Context) ([]models.RawCountry, models.ExchangeRateTable, error) {
	var rawCountries []models.RawCountry
	var rates models.ExchangeRateTable

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawCountries, err = o.deps.Countries.FetchCountries(gctx)
		return asUpstreamError(sources.SourceCountries, err)
	})
	g.Go(func() error {
		var err error
		rates, err = o.deps.Rates.FetchRates(gctx)
		return asUpstreamError(sources.SourceExchangeRates, err)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rawCountries, rates, nil
}

// asUpstreamError makes sure any fetch failure names its source, even from
// sources that return plain errors.
func asUpstreamError(source string, err error) error {
	if err == nil {
		return nil
	}
	var upstreamErr *sources.UpstreamError
	if errors.As(err, &upstreamErr) {
		return err
	}
	return &sources.UpstreamError{Source: source, Err: err}
}

// reconcileAll estimates and reconciles every country on a bounded pool.
// Each result lands at its country's index, so nothing is lost or reordered.
func (o *RefreshOrchestrator) reconcileAll(ctx context.Context, rawCountries []models.RawCountry, rates models.ExchangeRateTable) []ReconcileResult {
	results := make([]ReconcileResult, len(rawCountries))

	var g errgroup.Group
	g.SetLimit(o.deps.Workers)
	for i, raw := range rawCountries {
		g.Go(func() error {
			computed := o.deps.Estimator.Estimate(raw, rates)
			results[i] = o.deps.Reconciler.Reconcile(ctx, computed)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are in results

	return results
}

// storeSummaryImage renders and caches the summary card. The image is a cache,
// so failures are logged and the refresh still succeeds.
func (o *RefreshOrchestrator) storeSummaryImage(ctx context.Context, logger *zap.Logger, summary models.Summary) {
	if o.deps.Renderer == nil || o.deps.Artifacts == nil {
		return
	}
	img, err := o.deps.Renderer.Render(summary)
	if err != nil {
		logger.Error("failed to render summary image", zap.Error(err))
		return
	}
	if err := o.deps.Artifacts.Put(ctx, cache.SummaryImage, img); err != nil {
		logger.Error("failed to store summary image", zap.Error(err))
		return
	}
	logger.Debug("summary image stored", zap.Int("bytes", len(img)))
}

func (o *RefreshOrchestrator) finish(ctx context.Context, logger *zap.Logger, outcome *models.RefreshOutcome) {
	outcome.FinishedAt = o.deps.Now().UTC()
	o.deps.Metrics.ObserveRun(string(outcome.Status), outcome.FinishedAt.Sub(outcome.StartedAt))

	if o.deps.RunLog == nil {
		return
	}
	// The run is logged even when the caller's context is already gone.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := o.deps.RunLog.LogRefreshRun(logCtx, models.RefreshRun{
		RunID:          outcome.RunID,
		Status:         outcome.Status,
		FailedSource:   outcome.FailedSource,
		TotalCountries: outcome.TotalCountries,
		Inserted:       outcome.Inserted,
		Updated:        outcome.Updated,
		Failed:         outcome.Failed,
		StartedAt:      outcome.StartedAt,
		FinishedAt:     outcome.FinishedAt,
	})
	if err != nil {
		logger.Warn("failed to record refresh run", zap.Error(err))
	}
}
