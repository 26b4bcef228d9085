// sources/country_source.go
package sources

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/models"
	"github.com/gewnthar/countries/backend/utils"
)

// restCountry is one element of the RestCountries v2 payload.
type restCountry struct {
	Name       string `json:"name"`
	Capital    string `json:"capital"`
	Region     string `json:"region"`
	Population int64  `json:"population"`
	Flag       string `json:"flag"`
	Currencies []struct {
		Code   string `json:"code"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
}

// RestCountriesSource fetches country metadata from the RestCountries API.
type RestCountriesSource struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

func NewRestCountriesSource(url string, timeout time.Duration, logger *zap.Logger) *RestCountriesSource {
	return &RestCountriesSource{
		client: newClient(timeout),
		url:    url,
		logger: logger.With(zap.String("source", SourceCountries)),
	}
}

// FetchCountries returns every country in upstream order. Records without a
// name are skipped since the name is the natural key.
func (s *RestCountriesSource) FetchCountries(ctx context.Context) ([]models.RawCountry, error) {
	var payload []restCountry
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&payload).
		ForceContentType("application/json").
		Get(s.url)
	if err := checkResponse(SourceCountries, s.url, resp, err); err != nil {
		return nil, err
	}

	countries := make([]models.RawCountry, 0, len(payload))
	for _, rc := range payload {
		raw, ok := s.toRawCountry(rc)
		if !ok {
			continue
		}
		countries = append(countries, raw)
	}

	s.logger.Info("fetched countries", zap.Int("count", len(countries)), zap.Int("skipped", len(payload)-len(countries)))
	return countries, nil
}

func (s *RestCountriesSource) toRawCountry(rc restCountry) (models.RawCountry, bool) {
	if rc.Name == "" {
		s.logger.Warn("skipping country without a name")
		return models.RawCountry{}, false
	}

	population := rc.Population
	if population < 0 {
		s.logger.Warn("negative population clamped to 0", zap.String("country", rc.Name), zap.Int64("population", population))
		population = 0
	}

	codes := make([]string, 0, len(rc.Currencies))
	for _, c := range rc.Currencies {
		codes = append(codes, c.Code)
	}

	return models.RawCountry{
		Name:       rc.Name,
		Capital:    rc.Capital,
		Region:     rc.Region,
		Population: population,
		FlagURL:    rc.Flag,
		Currencies: utils.NormalizeCurrencyList(codes),
	}, true
}
