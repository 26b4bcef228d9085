// models/country.go
package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// GdpState says which of the three estimated GDP outcomes a country is in.
type GdpState int

const (
	// GdpUnknown: the country has a currency but no exchange rate was available.
	GdpUnknown GdpState = iota
	// GdpNotApplicable: the country declares no currency. Reported as an explicit 0.
	GdpNotApplicable
	// GdpComputed: population, rate and the random factor produced a value.
	GdpComputed
)

// GdpEstimate keeps "no rate data" and "no currency" apart. Both would
// collapse into the same nullable float otherwise.
type GdpEstimate struct {
	State GdpState
	Value float64
}

func UnknownGdp() GdpEstimate {
	return GdpEstimate{State: GdpUnknown}
}

func NoCurrencyGdp() GdpEstimate {
	return GdpEstimate{State: GdpNotApplicable}
}

func ComputedGdp(value float64) GdpEstimate {
	return GdpEstimate{State: GdpComputed, Value: value}
}

// Known reports whether the estimate has a number (computed or explicit zero).
func (g GdpEstimate) Known() bool {
	return g.State != GdpUnknown
}

// Amount is the numeric value; 0 for both unknown and not applicable.
func (g GdpEstimate) Amount() float64 {
	if g.State != GdpComputed {
		return 0
	}
	return g.Value
}

// Scale multiplies a computed estimate. Unknown and not-applicable estimates are returned as-is.
func (g GdpEstimate) Scale(factor float64) GdpEstimate {
	if g.State != GdpComputed {
		return g
	}
	return ComputedGdp(g.Value * factor)
}

// Greater orders estimates for "highest GDP first"; unknown sorts below everything.
func (g GdpEstimate) Greater(other GdpEstimate) bool {
	if !g.Known() {
		return false
	}
	if !other.Known() {
		return true
	}
	return g.Amount() > other.Amount()
}

func (g GdpEstimate) MarshalJSON() ([]byte, error) {
	if !g.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(g.Amount())
}

// MarshalText is used by the CSV export; unknown becomes an empty cell.
func (g GdpEstimate) MarshalText() ([]byte, error) {
	if !g.Known() {
		return []byte{}, nil
	}
	return []byte(strconv.FormatFloat(g.Amount(), 'f', 2, 64)), nil
}

func (g GdpEstimate) String() string {
	if !g.Known() {
		return "n/a"
	}
	return strconv.FormatFloat(g.Amount(), 'f', 2, 64)
}

// RawCountry is one record as delivered by a country source. Empty strings mean "absent".
type RawCountry struct {
	Name       string
	Capital    string
	Region     string
	Population int64
	FlagURL    string
	Currencies []string // ordered, may be empty
}

// ExchangeRateTable maps a currency code to its rate against USD.
type ExchangeRateTable map[string]float64

// Lookup returns the rate for code. Missing and non-positive entries are both "unknown".
func (t ExchangeRateTable) Lookup(code string) (float64, bool) {
	rate, ok := t[strings.ToUpper(code)]
	if !ok || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// ComputedCountry is a RawCountry joined with its exchange rate.
type ComputedCountry struct {
	RawCountry
	CurrencyCode *string
	ExchangeRate *float64
	EstimatedGdp GdpEstimate
}

// Country is a persisted row. ID reflects storage order.
type Country struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	Capital         *string     `json:"capital"`
	Region          *string     `json:"region"`
	Population      int64       `json:"population"`
	CurrencyCode    *string     `json:"currency_code"`
	ExchangeRate    *float64    `json:"exchange_rate"`
	EstimatedGdp    GdpEstimate `json:"estimated_gdp"`
	FlagURL         *string     `json:"flag_url"`
	LastRefreshedAt time.Time   `json:"last_refreshed_at"`
}

// CountryGdp is the projection used by the summary's top list.
type CountryGdp struct {
	Name         string      `json:"name"`
	EstimatedGdp GdpEstimate `json:"estimated_gdp"`
}

type Summary struct {
	TotalCountries  int          `json:"total_countries"`
	Top5Countries   []CountryGdp `json:"top5_countries"`
	LastRefreshedAt *time.Time   `json:"last_refreshed_at"`
}

// SortOrder is the optional GDP ordering of a country listing.
type SortOrder string

const (
	SortNone    SortOrder = ""
	SortGdpAsc  SortOrder = "gdp_asc"
	SortGdpDesc SortOrder = "gdp_desc"
)

// ParseSortOrder accepts "", "gdp_asc" and "gdp_desc" in any case.
func ParseSortOrder(s string) (SortOrder, bool) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortNone:
		return SortNone, true
	case SortGdpAsc:
		return SortGdpAsc, true
	case SortGdpDesc:
		return SortGdpDesc, true
	}
	return SortNone, false
}

// CountryFilter narrows a listing. Zero value lists everything in storage order.
type CountryFilter struct {
	Region   string
	Currency string
	Sort     SortOrder
}
