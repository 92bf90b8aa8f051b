package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/opentelekomcloud-infra/giji/internal/github"
	"github.com/opentelekomcloud-infra/giji/internal/model"
)

type MockGitHub struct {
	mock.Mock
}

func (m *MockGitHub) ListAllIssues(ctx context.Context, org, repo, state string) ([]model.Issue, error) {
	args := m.Called(ctx, org, repo, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Issue), args.Error(1)
}

func (m *MockGitHub) ListIssueComments(ctx context.Context, org, repo string, number int) ([]model.Comment, error) {
	args := m.Called(ctx, org, repo, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comment), args.Error(1)
}

func (m *MockGitHub) AddLabels(ctx context.Context, org, repo string, number int, labels []string) error {
	args := m.Called(ctx, org, repo, number, labels)
	return args.Error(0)
}

func (m *MockGitHub) AddComment(ctx context.Context, org, repo string, number int, text string) error {
	args := m.Called(ctx, org, repo, number, text)
	return args.Error(0)
}

func (m *MockGitHub) CreateLabel(ctx context.Context, org, repo string, label model.Label) (github.LabelStatus, error) {
	args := m.Called(ctx, org, repo, label)
	return args.Get(0).(github.LabelStatus), args.Error(1)
}

func (m *MockGitHub) GetRepo(ctx context.Context, org, repo string) (*model.Repository, error) {
	args := m.Called(ctx, org, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Repository), args.Error(1)
}

func (m *MockGitHub) HasPushPermission(ctx context.Context, org, repo string) (bool, error) {
	args := m.Called(ctx, org, repo)
	return args.Bool(0), args.Error(1)
}

func (m *MockGitHub) ListPulls(ctx context.Context, org, repo, state, head string) ([]model.PullRequest, error) {
	args := m.Called(ctx, org, repo, state, head)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PullRequest), args.Error(1)
}

func (m *MockGitHub) CreatePull(ctx context.Context, org, repo, title, head, base, body string) (*model.PullRequest, error) {
	args := m.Called(ctx, org, repo, title, head, base, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PullRequest), args.Error(1)
}
