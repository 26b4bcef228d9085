package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gewnthar/countries/backend/models"
)

type Refresher struct {
	mock.Mock
}

func (m *Refresher) Refresh(ctx context.Context) (*models.RefreshOutcome, error) {
	args := m.Called(ctx)
	outcome, _ := args.Get(0).(*models.RefreshOutcome)
	return outcome, args.Error(1)
}
