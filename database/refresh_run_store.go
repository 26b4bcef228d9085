// database/refresh_run_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gewnthar/countries/backend/models"
)

// RefreshRunStore keeps a log of refresh runs: when they ran, how they ended, how many rows they touched.
type RefreshRunStore struct {
	db *sql.DB
}

func NewRefreshRunStore(db *sql.DB) *RefreshRunStore {
	return &RefreshRunStore{db: db}
}

// LogRefreshRun records one finished (or aborted) refresh.
func (s *RefreshRunStore) LogRefreshRun(ctx context.Context, run models.RefreshRun) error {
	var failedSource sql.NullString
	if run.FailedSource != "" {
		failedSource = sql.NullString{String: run.FailedSource, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_runs (
			run_id, status, failed_source, total_countries,
			inserted, updated, failed, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, string(run.Status), failedSource, run.TotalCountries,
		run.Inserted, run.Updated, run.Failed, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log refresh run %s: %w", run.RunID, err)
	}
	return nil
}

// RecentRefreshRuns returns up to limit runs, newest first.
func (s *RefreshRunStore) RecentRefreshRuns(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, status, failed_source, total_countries,
		       inserted, updated, failed, started_at, finished_at
		FROM refresh_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh_runs: %w", err)
	}
	defer rows.Close()

	runs := []models.RefreshRun{}
	for rows.Next() {
		var r models.RefreshRun
		var status string
		var failedSource sql.NullString
		err := rows.Scan(
			&r.RunID, &status, &failedSource, &r.TotalCountries,
			&r.Inserted, &r.Updated, &r.Failed, &r.StartedAt, &r.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh run row: %w", err)
		}
		r.Status = models.RefreshStatus(status)
		if failedSource.Valid {
			r.FailedSource = failedSource.String
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating refresh run rows: %w", err)
	}
	return runs, nil
}
