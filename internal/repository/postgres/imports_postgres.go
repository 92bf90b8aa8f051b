package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opentelekomcloud-infra/giji/internal/model"
	"github.com/opentelekomcloud-infra/giji/internal/repository"
)

// ImportPostgres is a PostgreSQL implementation of repository.ImportRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ImportPostgres struct {
	db *sql.DB
}

// NewImportPostgres creates a new ImportPostgres repository.
func NewImportPostgres(db *sql.DB) *ImportPostgres {
	return &ImportPostgres{db: db}
}

var _ repository.ImportRepository = (*ImportPostgres)(nil)

// CreateRun inserts a new run row.
func (r *ImportPostgres) CreateRun(ctx context.Context, run *model.ImportRun) error {
	const q = `
		INSERT INTO import_runs (id, profile, started_at, repos, imported, skipped, failed, snapshot_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q,
		run.ID,
		run.Profile,
		run.StartedAt,
		run.Repos,
		run.Imported,
		run.Skipped,
		run.Failed,
		run.SnapshotKey,
	)
	return err
}

// FinishRun stores the final counters and finish timestamp.
func (r *ImportPostgres) FinishRun(ctx context.Context, run *model.ImportRun) error {
	const q = `
		UPDATE import_runs
		SET finished_at = $2, repos = $3, imported = $4, skipped = $5, failed = $6, snapshot_key = $7
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, q,
		run.ID,
		run.FinishedAt,
		run.Repos,
		run.Imported,
		run.Skipped,
		run.Failed,
		run.SnapshotKey,
	)
	return err
}

// RecordIssue inserts one issue outcome and backfills the generated ID
// and timestamp. An issue already recorded by an earlier run keeps its
// original row; the suppressed insert is not an error.
func (r *ImportPostgres) RecordIssue(ctx context.Context, rec *model.IssueImport) error {
	const q = `
		INSERT INTO issue_imports (run_id, org, repo, issue_number, issue_title, jira_key, profile, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (org, repo, issue_number, profile) DO NOTHING
		RETURNING id, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		rec.RunID,
		rec.Org,
		rec.Repo,
		rec.IssueNumber,
		rec.IssueTitle,
		rec.JiraKey,
		rec.Profile,
		rec.Status,
		rec.Reason,
	)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	return nil
}

// GetRun fetches a single run by its ID.
func (r *ImportPostgres) GetRun(ctx context.Context, id string) (*model.ImportRun, error) {
	const q = `
		SELECT id, profile, started_at, finished_at, repos, imported, skipped, failed, snapshot_key
		FROM import_runs
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)

	var run model.ImportRun
	var finished sql.NullTime
	if err := row.Scan(
		&run.ID,
		&run.Profile,
		&run.StartedAt,
		&finished,
		&run.Repos,
		&run.Imported,
		&run.Skipped,
		&run.Failed,
		&run.SnapshotKey,
	); err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// ListRuns returns runs using LIMIT/OFFSET pagination and a total count.
func (r *ImportPostgres) ListRuns(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.ImportRun], error) {
	const qCount = `SELECT COUNT(*) FROM import_runs`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, profile, started_at, finished_at, repos, imported, skipped, failed, snapshot_key
		FROM import_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ImportRun, 0)
	for rows.Next() {
		var run model.ImportRun
		var finished sql.NullTime
		if err := rows.Scan(
			&run.ID,
			&run.Profile,
			&run.StartedAt,
			&finished,
			&run.Repos,
			&run.Imported,
			&run.Skipped,
			&run.Failed,
			&run.SnapshotKey,
		); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		items = append(items, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.ImportRun]{Items: items, Total: total}, nil
}

// ListIssues returns the issue outcomes of one run.
func (r *ImportPostgres) ListIssues(ctx context.Context, runID string, pq repository.PageQuery) (*repository.PageResult[model.IssueImport], error) {
	const qCount = `SELECT COUNT(*) FROM issue_imports WHERE run_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, runID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, run_id, org, repo, issue_number, issue_title, jira_key, profile, status, reason, created_at
		FROM issue_imports
		WHERE run_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, runID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.IssueImport, 0)
	for rows.Next() {
		var rec model.IssueImport
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Org,
			&rec.Repo,
			&rec.IssueNumber,
			&rec.IssueTitle,
			&rec.JiraKey,
			&rec.Profile,
			&rec.Status,
			&rec.Reason,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.IssueImport]{Items: items, Total: total}, nil
}

// ListImports returns issue outcomes across runs, newest first. Filters
// are appended as positional parameters so pgx can plan the query.
func (r *ImportPostgres) ListImports(ctx context.Context, f repository.ImportFilter, pq repository.PageQuery) (*repository.PageResult[model.IssueImport], error) {
	where := " WHERE 1=1"
	args := []any{}
	add := func(clause, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}
	add("repo", f.Repo)
	add("profile", f.Profile)
	add("status", f.Status)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issue_imports`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	listArgs := append(args, pq.Limit, pq.Offset)
	q := `
		SELECT id, run_id, org, repo, issue_number, issue_title, jira_key, profile, status, reason, created_at
		FROM issue_imports` + where + fmt.Sprintf(`
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, q, listArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.IssueImport, 0)
	for rows.Next() {
		var rec model.IssueImport
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Org,
			&rec.Repo,
			&rec.IssueNumber,
			&rec.IssueTitle,
			&rec.JiraKey,
			&rec.Profile,
			&rec.Status,
			&rec.Reason,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.IssueImport]{Items: items, Total: total}, nil
}

// WasImported reports whether an earlier run already imported the issue.
func (r *ImportPostgres) WasImported(ctx context.Context, org, repo string, issueNumber int) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM issue_imports
			WHERE org = $1 AND repo = $2 AND issue_number = $3 AND status = $4
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, org, repo, issueNumber, model.ImportStatusImported).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
