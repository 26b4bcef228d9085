// models/api_models.go
package models

import "time"

// RefreshResponse is the JSON body of POST /countries/refresh.
type RefreshResponse struct {
	Message         string        `json:"message"`
	Status          RefreshStatus `json:"status"`
	TotalCountries  int           `json:"total_countries"`
	LastRefreshedAt *time.Time    `json:"last_refreshed_at"`
	Inserted        int           `json:"inserted"`
	Updated         int           `json:"updated"`
	Failed          int           `json:"failed"`
	Failures        []RowFailure  `json:"failures,omitempty"`
}

// ErrorResponse is returned for every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
