package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockLocations struct {
	mock.Mock
}

func (m *MockLocations) AffectedLocations(ctx context.Context, org string) ([]string, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
