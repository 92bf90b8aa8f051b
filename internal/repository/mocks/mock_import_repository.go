package mocks

import (
	"context"

	"github.com/opentelekomcloud-infra/giji/internal/model"
	"github.com/opentelekomcloud-infra/giji/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockImportRepository struct {
	mock.Mock
}

func (m *MockImportRepository) CreateRun(ctx context.Context, run *model.ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockImportRepository) FinishRun(ctx context.Context, run *model.ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockImportRepository) RecordIssue(ctx context.Context, rec *model.IssueImport) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockImportRepository) GetRun(ctx context.Context, id string) (*model.ImportRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ImportRun), args.Error(1)
}

func (m *MockImportRepository) ListRuns(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.ImportRun], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ImportRun]), args.Error(1)
}

func (m *MockImportRepository) ListIssues(ctx context.Context, runID string, pq repository.PageQuery) (*repository.PageResult[model.IssueImport], error) {
	args := m.Called(ctx, runID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.IssueImport]), args.Error(1)
}

func (m *MockImportRepository) ListImports(ctx context.Context, f repository.ImportFilter, pq repository.PageQuery) (*repository.PageResult[model.IssueImport], error) {
	args := m.Called(ctx, f, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.IssueImport]), args.Error(1)
}

func (m *MockImportRepository) WasImported(ctx context.Context, org, repo string, issueNumber int) (bool, error) {
	args := m.Called(ctx, org, repo, issueNumber)
	return args.Bool(0), args.Error(1)
}
