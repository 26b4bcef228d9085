// services/summary.go
package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/gewnthar/countries/backend/models"
)

const topCountries = 5

// SummaryBuilder derives the summary from the stored rows.
type SummaryBuilder struct {
	store CountryStore
}

func NewSummaryBuilder(store CountryStore) *SummaryBuilder {
	return &SummaryBuilder{store: store}
}

func (b *SummaryBuilder) Build(ctx context.Context) (models.Summary, error) {
	rows, err := b.store.ListAll(ctx)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to load countries for summary: %w", err)
	}
	return BuildSummary(rows), nil
}

// BuildSummary expects rows in storage order; ties on GDP keep that order.
// Unknown GDPs rank below every known value.
func BuildSummary(rows []models.Country) models.Summary {
	summary := models.Summary{
		TotalCountries: len(rows),
		Top5Countries:  []models.CountryGdp{},
	}

	ranked := slices.Clone(rows)
	slices.SortStableFunc(ranked, func(a, b models.Country) int {
		switch {
		case a.EstimatedGdp.Greater(b.EstimatedGdp):
			return -1
		case b.EstimatedGdp.Greater(a.EstimatedGdp):
			return 1
		}
		return 0
	})
	for _, c := range ranked[:min(topCountries, len(ranked))] {
		summary.Top5Countries = append(summary.Top5Countries, models.CountryGdp{Name: c.Name, EstimatedGdp: c.EstimatedGdp})
	}

	for i := range rows {
		t := rows[i].LastRefreshedAt
		if summary.LastRefreshedAt == nil || t.After(*summary.LastRefreshedAt) {
			summary.LastRefreshedAt = &t
		}
	}
	return summary
}
