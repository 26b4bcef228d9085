package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/countries/backend/models"
)

func row(id int64, name string, gdp models.GdpEstimate, at time.Time) models.Country {
	return models.Country{ID: id, Name: name, EstimatedGdp: gdp, LastRefreshedAt: at}
}

func names(top []models.CountryGdp) []string {
	out := make([]string, 0, len(top))
	for _, c := range top {
		out = append(out, c.Name)
	}
	return out
}

func TestBuildSummary(t *testing.T) {
	base := time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)
	rows := []models.Country{
		row(1, "Unknownia", models.UnknownGdp(), base),
		row(2, "Small", models.ComputedGdp(10), base.Add(time.Minute)),
		row(3, "Big", models.ComputedGdp(1000), base),
		row(4, "TieA", models.ComputedGdp(500), base),
		row(5, "TieB", models.ComputedGdp(500), base.Add(2*time.Minute)),
		row(6, "Polar", models.NoCurrencyGdp(), base),
		row(7, "Mid", models.ComputedGdp(100), base),
	}

	summary := BuildSummary(rows)
	assert.Equal(t, 7, summary.TotalCountries)
	assert.Equal(t, []string{"Big", "TieA", "TieB", "Mid", "Small"}, names(summary.Top5Countries))
	require.NotNil(t, summary.LastRefreshedAt)
	assert.Equal(t, base.Add(2*time.Minute), *summary.LastRefreshedAt)

	assert.Equal(t, "Unknownia", rows[0].Name, "input order untouched")
}

func TestBuildSummary_NullsLast(t *testing.T) {
	base := time.Now().UTC()
	summary := BuildSummary([]models.Country{
		row(1, "A", models.UnknownGdp(), base),
		row(2, "B", models.NoCurrencyGdp(), base),
		row(3, "C", models.UnknownGdp(), base),
	})

	assert.Equal(t, []string{"B", "A", "C"}, names(summary.Top5Countries))
	assert.Len(t, summary.Top5Countries, 3)
}

func TestBuildSummary_Empty(t *testing.T) {
	summary := BuildSummary(nil)
	assert.Equal(t, 0, summary.TotalCountries)
	assert.Nil(t, summary.LastRefreshedAt)
	assert.NotNil(t, summary.Top5Countries)
	assert.Empty(t, summary.Top5Countries)
}

func TestSummaryBuilder_StoreError(t *testing.T) {
	store := newMemStore()
	store.listErr = errBoom

	_, err := NewSummaryBuilder(store).Build(context.Background())
	assert.ErrorIs(t, err, errBoom)
}
