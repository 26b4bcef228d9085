// sources/errors.go
package sources

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable is matched by every failed fetch, whatever the source.
var ErrUpstreamUnavailable = errors.New("external data source unavailable")

const (
	SourceCountries     = "countries"
	SourceExchangeRates = "exchange_rates"
)

// UpstreamError names the source that could not be fetched.
type UpstreamError struct {
	Source     string
	StatusCode int    // 0 for transport failures
	Detail     string // short text pulled from the response body, if any
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s source unavailable", e.Source)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}

// FailedSource returns the source named by an UpstreamError anywhere in err's chain.
func FailedSource(err error) (string, bool) {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Source, true
	}
	return "", false
}
