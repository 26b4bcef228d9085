// services/gdp_estimator.go
package services

import (
	"github.com/gewnthar/countries/backend/models"
	"github.com/gewnthar/countries/backend/utils"
)

const (
	gdpFactorMin = 1000
	gdpFactorMax = 2000
)

// GdpEstimator joins a country with its exchange rate and derives the GDP proxy
// population * f / rate, f drawn uniformly from [1000, 2000].
type GdpEstimator struct {
	random RandomSource
}

func NewGdpEstimator(random RandomSource) *GdpEstimator {
	return &GdpEstimator{random: random}
}

// Estimate never fails: a missing currency or rate is recorded in the result.
func (e *GdpEstimator) Estimate(raw models.RawCountry, rates models.ExchangeRateTable) models.ComputedCountry {
	computed := models.ComputedCountry{RawCountry: raw}

	if len(raw.Currencies) == 0 {
		computed.EstimatedGdp = models.NoCurrencyGdp()
		return computed
	}

	// Only the first listed currency counts; a blank one has no rate.
	code := utils.NormalizeCurrencyCode(raw.Currencies[0])
	if code == "" {
		computed.EstimatedGdp = models.UnknownGdp()
		return computed
	}
	computed.CurrencyCode = &code

	rate, ok := rates.Lookup(code)
	if !ok {
		computed.EstimatedGdp = models.UnknownGdp()
		return computed
	}
	computed.ExchangeRate = &rate

	factor := e.random.IntRange(gdpFactorMin, gdpFactorMax)
	computed.EstimatedGdp = models.ComputedGdp(float64(raw.Population) * float64(factor) / rate)
	return computed
}
