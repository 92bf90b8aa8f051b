package repository

import (
	"context"

	"github.com/opentelekomcloud-infra/giji/internal/model"
)

// ImportFilter narrows ListImports. Empty fields match everything.
type ImportFilter struct {
	Repo    string
	Profile string
	Status  string
}

// ImportRepository persists import runs and their per-issue outcomes.
// No business logic here — strictly persistence operations.
type ImportRepository interface {
	// CreateRun inserts a new run row with zeroed counters.
	CreateRun(ctx context.Context, run *model.ImportRun) error

	// FinishRun writes the final counters, snapshot key and finish
	// timestamp for a run.
	FinishRun(ctx context.Context, run *model.ImportRun) error

	// RecordIssue inserts one issue outcome and fills in the generated
	// ID and creation timestamp.
	RecordIssue(ctx context.Context, rec *model.IssueImport) error

	// GetRun returns a run by ID. Returns sql.ErrNoRows when absent.
	GetRun(ctx context.Context, id string) (*model.ImportRun, error)

	// ListRuns returns runs newest first with a total count.
	ListRuns(ctx context.Context, pq PageQuery) (*PageResult[model.ImportRun], error)

	// ListIssues returns the issue outcomes of one run with a total
	// count.
	ListIssues(ctx context.Context, runID string, pq PageQuery) (*PageResult[model.IssueImport], error)

	// ListImports returns issue outcomes across all runs, newest first,
	// filtered by the non-empty fields of f.
	ListImports(ctx context.Context, f ImportFilter, pq PageQuery) (*PageResult[model.IssueImport], error)

	// WasImported reports whether the issue was already imported in an
	// earlier run.
	WasImported(ctx context.Context, org, repo string, issueNumber int) (bool, error)
}
