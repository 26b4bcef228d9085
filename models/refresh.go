// models/refresh.go
package models

import "time"

// RefreshStatus tells the caller how far a refresh got.
type RefreshStatus string

const (
	RefreshSucceeded RefreshStatus = "succeeded"
	RefreshPartial   RefreshStatus = "partial" // some rows failed to write
	RefreshAborted   RefreshStatus = "aborted" // an upstream fetch failed, nothing written
)

// RowFailure is one country whose reconciliation failed.
type RowFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type RefreshOutcome struct {
	RunID           string        `json:"run_id"`
	Status          RefreshStatus `json:"status"`
	TotalCountries  int           `json:"total_countries"`
	LastRefreshedAt *time.Time    `json:"last_refreshed_at"`
	Inserted        int           `json:"inserted"`
	Updated         int           `json:"updated"`
	Failed          int           `json:"failed"`
	Failures        []RowFailure  `json:"failures,omitempty"`
	FailedSource    string        `json:"failed_source,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
}

// RefreshRun is the persisted log entry of one refresh.
type RefreshRun struct {
	RunID          string        `json:"run_id"`
	Status         RefreshStatus `json:"status"`
	FailedSource   string        `json:"failed_source,omitempty"`
	TotalCountries int           `json:"total_countries"`
	Inserted       int           `json:"inserted"`
	Updated        int           `json:"updated"`
	Failed         int           `json:"failed"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
}

// Status is the lightweight view served by /status.
type Status struct {
	TotalCountries  int        `json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}
