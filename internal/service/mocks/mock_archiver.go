package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/opentelekomcloud-infra/giji/internal/model"
)

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) PutRun(ctx context.Context, snap *model.RunSnapshot) (string, error) {
	args := m.Called(ctx, snap)
	return args.String(0), args.Error(1)
}
