package mocks

import (
	"context"

	"github.com/opentelekomcloud-infra/giji/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) ListBySquads(ctx context.Context, squads []string) ([]model.RepoCategory, error) {
	args := m.Called(ctx, squads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RepoCategory), args.Error(1)
}

func (m *MockCategoryRepository) TableExists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
