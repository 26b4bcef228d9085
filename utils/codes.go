// utils/codes.go
package utils

import "strings"

// NormalizeCurrencyCode trims and upper-cases an ISO 4217 code ("usd " -> "USD").
func NormalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeCurrencyList normalizes every code in place order. Blank entries
// stay blank so the first entry is still the first currency the source listed.
func NormalizeCurrencyList(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, NormalizeCurrencyCode(c))
	}
	return out
}

// OptionalString returns nil for blank strings so they persist as NULL.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
