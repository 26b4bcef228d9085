// metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RefreshMetrics tracks refresh runs. A nil *RefreshMetrics records nothing.
type RefreshMetrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	RowsTotal          *prometheus.CounterVec
	SourceFailureTotal *prometheus.CounterVec
	CountriesStored    prometheus.Gauge
}

func NewRefreshMetrics(reg prometheus.Registerer) *RefreshMetrics {
	factory := promauto.With(reg)
	return &RefreshMetrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "countries_refresh_runs_total",
				Help: "Refresh runs by final status",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "countries_refresh_duration_seconds",
				Help:    "Wall time of a refresh run",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "countries_refresh_rows_total",
				Help: "Reconciled rows by result (inserted, updated, failed)",
			},
			[]string{"result"},
		),
		SourceFailureTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "countries_source_failures_total",
				Help: "Upstream fetch failures by source",
			},
			[]string{"source"},
		),
		CountriesStored: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "countries_stored",
				Help: "Rows in the countries table after the last refresh",
			},
		),
	}
}

func (m *RefreshMetrics) ObserveRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *RefreshMetrics) AddRows(result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsTotal.WithLabelValues(result).Add(float64(n))
}

func (m *RefreshMetrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.SourceFailureTotal.WithLabelValues(source).Inc()
}

func (m *RefreshMetrics) SetCountriesStored(n int) {
	if m == nil {
		return
	}
	m.CountriesStored.Set(float64(n))
}

// HTTPMetrics counts requests per route pattern.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "countries_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "countries_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Middleware records every request under its chi route pattern, so
// /countries/{name} is one series no matter how many names are asked for.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
