// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/models"
)

type Refresher interface {
	Refresh(ctx context.Context) (*models.RefreshOutcome, error)
}

// RefreshScheduler triggers refreshes on a cron schedule. A run still in
// progress when the next tick fires makes that tick a no-op.
type RefreshScheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
}

// cronLogger routes cron's own logging (panics, skipped ticks) through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

func NewRefreshScheduler(spec string, refresher Refresher, timeout time.Duration, logger *zap.Logger) (*RefreshScheduler, error) {
	cl := cronLogger{logger: logger.Sugar()}
	s := &RefreshScheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(
				cron.Recover(cl),
				cron.SkipIfStillRunning(cl),
			),
		),
		logger:  logger,
		timeout: timeout,
	}

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		outcome, err := refresher.Refresh(ctx)
		if err != nil {
			s.logger.Error("scheduled refresh failed", zap.Error(err))
			return
		}
		s.logger.Info("scheduled refresh done", zap.String("run_id", outcome.RunID), zap.String("status", string(outcome.Status)))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *RefreshScheduler) Start() {
	s.cron.Start()
	s.logger.Info("refresh scheduler started")
}

// Stop waits for a running refresh to finish or ctx to end.
func (s *RefreshScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stopped before the running refresh finished")
	}
}
