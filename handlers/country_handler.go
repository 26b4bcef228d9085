// handlers/country_handler.go
package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/models"
	"github.com/gewnthar/countries/backend/services"
	"github.com/gewnthar/countries/backend/sources"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

type Refresher interface {
	Refresh(ctx context.Context) (*models.RefreshOutcome, error)
}

type CountryQueries interface {
	List(ctx context.Context, filter models.CountryFilter) ([]models.Country, error)
	Get(ctx context.Context, name string) (*models.Country, error)
	Delete(ctx context.Context, name string) error
	Status(ctx context.Context) (models.Status, error)
	Summary(ctx context.Context) (models.Summary, error)
	SummaryImage(ctx context.Context) ([]byte, error)
	ExportCSV(ctx context.Context, filter models.CountryFilter, w io.Writer) error
	RecentRuns(ctx context.Context, limit int) ([]models.RefreshRun, error)
}

// upstreamNames is how each source is named to API clients.
var upstreamNames = map[string]string{
	sources.SourceCountries:     "RestCountries API",
	sources.SourceExchangeRates: "Exchange Rate API",
}

type CountryHandler struct {
	refresher      Refresher
	queries        CountryQueries
	refreshTimeout time.Duration
	logger         *zap.Logger
}

func NewCountryHandler(refresher Refresher, queries CountryQueries, refreshTimeout time.Duration, logger *zap.Logger) *CountryHandler {
	return &CountryHandler{
		refresher:      refresher,
		queries:        queries,
		refreshTimeout: refreshTimeout,
		logger:         logger,
	}
}

// Refresh handles POST /countries/refresh. The refresh outlives a client that
// disconnects, bounded by the configured run timeout.
func (h *CountryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	if h.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.refreshTimeout)
		defer cancel()
	}

	outcome, err := h.refresher.Refresh(ctx)
	if errors.Is(err, sources.ErrUpstreamUnavailable) {
		details := "Could not fetch data from external API"
		if source, ok := sources.FailedSource(err); ok {
			if name, known := upstreamNames[source]; known {
				details = "Could not fetch data from " + name
			}
		}
		h.logger.Warn("refresh aborted", zap.Error(err))
		respondWithErrorDetails(w, http.StatusServiceUnavailable, "External data source unavailable", details)
		return
	}
	if err != nil {
		h.internalError(w, "refresh failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, models.RefreshResponse{
		Message:         "Countries refreshed successfully",
		Status:          outcome.Status,
		TotalCountries:  outcome.TotalCountries,
		LastRefreshedAt: outcome.LastRefreshedAt,
		Inserted:        outcome.Inserted,
		Updated:         outcome.Updated,
		Failed:          outcome.Failed,
		Failures:        outcome.Failures,
	})
}

// List handles GET /countries?region=&currency=&sort=.
func (h *CountryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	countries, err := h.queries.List(r.Context(), filter)
	if err != nil {
		h.internalError(w, "failed to list countries", err)
		return
	}
	respondWithJSON(w, http.StatusOK, countries)
}

// ExportCSV handles GET /countries/export.csv with the same filters as List.
func (h *CountryHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	// Buffered so a failure halfway through can still become a 500.
	var buf bytes.Buffer
	if err := h.queries.ExportCSV(r.Context(), filter, &buf); err != nil {
		h.internalError(w, "failed to export countries", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="countries.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Image handles GET /countries/image.
func (h *CountryHandler) Image(w http.ResponseWriter, r *http.Request) {
	img, err := h.queries.SummaryImage(r.Context())
	if errors.Is(err, services.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Summary image not found")
		return
	}
	if err != nil {
		h.internalError(w, "failed to load summary image", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (h *CountryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.queries.Summary(r.Context())
	if err != nil {
		h.internalError(w, "failed to build summary", err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// Get handles GET /countries/{name}; the name matches in any letter case.
func (h *CountryHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := countryName(r)
	country, err := h.queries.Get(r.Context(), name)
	if errors.Is(err, services.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Country not found")
		return
	}
	if err != nil {
		h.internalError(w, "failed to get country", err, zap.String("country", name))
		return
	}
	respondWithJSON(w, http.StatusOK, country)
}

func (h *CountryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := countryName(r)
	err := h.queries.Delete(r.Context(), name)
	if errors.Is(err, services.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Country not found")
		return
	}
	if err != nil {
		h.internalError(w, "failed to delete country", err, zap.String("country", name))
		return
	}
	respondWithJSON(w, http.StatusOK, models.MessageResponse{Message: "Country " + name + " deleted successfully"})
}

// Status handles GET /status.
func (h *CountryHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.queries.Status(r.Context())
	if err != nil {
		h.internalError(w, "failed to get status", err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// RefreshRuns handles GET /refresh/runs?limit=.
func (h *CountryHandler) RefreshRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRunsLimit {
			respondWithError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxRunsLimit))
			return
		}
		limit = n
	}

	runs, err := h.queries.RecentRuns(r.Context(), limit)
	if err != nil {
		h.internalError(w, "failed to list refresh runs", err)
		return
	}
	respondWithJSON(w, http.StatusOK, runs)
}

func (h *CountryHandler) parseFilter(w http.ResponseWriter, r *http.Request) (models.CountryFilter, bool) {
	q := r.URL.Query()
	filter, err := services.ParseFilter(q.Get("region"), q.Get("currency"), q.Get("sort"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid sort parameter, use gdp_asc or gdp_desc")
		return models.CountryFilter{}, false
	}
	return filter, true
}

func (h *CountryHandler) internalError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	h.logger.Error(msg, append(fields, zap.Error(err))...)
	respondWithError(w, http.StatusInternalServerError, msgInternalError)
}

func countryName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}
