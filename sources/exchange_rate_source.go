// sources/exchange_rate_source.go
package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/models"
	"github.com/gewnthar/countries/backend/utils"
)

type openERResponse struct {
	Result    string             `json:"result"`
	BaseCode  string             `json:"base_code"`
	ErrorType string             `json:"error-type"`
	Rates     map[string]float64 `json:"rates"`
}

// OpenERSource fetches USD based rates from open.er-api.com.
type OpenERSource struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

func NewOpenERSource(url string, timeout time.Duration, logger *zap.Logger) *OpenERSource {
	return &OpenERSource{
		client: newClient(timeout),
		url:    url,
		logger: logger.With(zap.String("source", SourceExchangeRates)),
	}
}

// FetchRates returns the rate table. Entries with a non-positive rate are dropped.
func (s *OpenERSource) FetchRates(ctx context.Context) (models.ExchangeRateTable, error) {
	var payload openERResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&payload).
		ForceContentType("application/json").
		Get(s.url)
	if err := checkResponse(SourceExchangeRates, s.url, resp, err); err != nil {
		return nil, err
	}

	if payload.Result != "success" {
		detail := payload.ErrorType
		if detail == "" {
			detail = fmt.Sprintf("result %q", payload.Result)
		}
		return nil, &UpstreamError{Source: SourceExchangeRates, StatusCode: resp.StatusCode(), Detail: detail}
	}

	rates := make(models.ExchangeRateTable, len(payload.Rates))
	dropped := 0
	for code, rate := range payload.Rates {
		code = utils.NormalizeCurrencyCode(code)
		if code == "" || rate <= 0 {
			dropped++
			continue
		}
		rates[code] = rate
	}

	s.logger.Info("fetched exchange rates", zap.Int("count", len(rates)), zap.Int("dropped", dropped))
	return rates, nil
}
