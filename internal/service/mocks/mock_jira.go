package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockJira struct {
	mock.Mock
}

func (m *MockJira) IssueExists(ctx context.Context, projectKey, repo string, number int) (bool, error) {
	args := m.Called(ctx, projectKey, repo, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockJira) CreateIssue(ctx context.Context, fields map[string]any) (string, error) {
	args := m.Called(ctx, fields)
	return args.String(0), args.Error(1)
}

func (m *MockJira) AddComment(ctx context.Context, issueKey, body string) error {
	args := m.Called(ctx, issueKey, body)
	return args.Error(0)
}

func (m *MockJira) BrowseURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}
