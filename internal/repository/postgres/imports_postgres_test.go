package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/opentelekomcloud-infra/giji/internal/model"
	"github.com/opentelekomcloud-infra/giji/internal/repository"
)

func TestImportPostgres_CreateRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewImportPostgres(db)
	ctx := context.Background()

	started := time.Now().UTC()
	run := &model.ImportRun{
		ID:        "run-uuid",
		Profile:   "bulk",
		StartedAt: started,
	}

	mock.ExpectExec("INSERT INTO import_runs").
		WithArgs("run-uuid", "bulk", started, 0, 0, 0, 0, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.CreateRun(ctx, run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportPostgres_FinishRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewImportPostgres(db)
	ctx := context.Background()

	finished := time.Now().UTC()
	run := &model.ImportRun{
		ID:          "run-uuid",
		Profile:     "bug",
		FinishedAt:  &finished,
		Repos:       4,
		Imported:    7,
		Skipped:     2,
		Failed:      1,
		SnapshotKey: "runs/bug/run-uuid.json",
	}

	mock.ExpectExec("UPDATE import_runs").
		WithArgs("run-uuid", finished, 4, 7, 2, 1, "runs/bug/run-uuid.json").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.FinishRun(ctx, run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportPostgres_RecordIssue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewImportPostgres(db)
	ctx := context.Background()

	created := time.Now().UTC()
	rec := &model.IssueImport{
		RunID:       "run-uuid",
		Org:         "opentelekomcloud-docs",
		Repo:        "elastic-cloud-server",
		IssueNumber: 42,
		IssueTitle:  "broken link",
		JiraKey:     "BM-123",
		Profile:     "bulk",
		Status:      model.ImportStatusImported,
	}

	mock.ExpectQuery("INSERT INTO issue_imports").
		WithArgs("run-uuid", "opentelekomcloud-docs", "elastic-cloud-server", 42, "broken link", "BM-123", "bulk", "imported", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), created))

	assert.NoError(t, repo.RecordIssue(ctx, rec))
	assert.Equal(t, int64(9), rec.ID)
	assert.Equal(t, created, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportPostgres_RecordIssueDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewImportPostgres(db)
	ctx := context.Background()

	rec := &model.IssueImport{
		RunID:       "run-uuid",
		Org:         "opentelekomcloud-docs",
		Repo:        "elastic-cloud-server",
		IssueNumber: 42,
		IssueTitle:  "broken link",
		Profile:     "bulk",
		Status:      model.ImportStatusSkipped,
		Reason:      model.SkipReasonAlreadyImported,
	}

	// ON CONFLICT DO NOTHING suppresses the insert, so RETURNING yields
	// no row. That is not an error.
	mock.ExpectQuery("INSERT INTO issue_imports").
		WithArgs("run-uuid", "opentelekomcloud-docs", "elastic-cloud-server", 42, "broken link", "", "bulk", "skipped", "already-imported").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

	assert.NoError(t, repo.RecordIssue(ctx, rec))
	assert.Zero(t, rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportPostgres_GetRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewImportPostgres(db)
	ctx := context.Background()

	cols := []string{"id", "profile", "started_at", "finished_at", "repos", "imported", "skipped", "failed", "snapshot_key"}

	t.Run("running", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM import_runs").
			WithArgs("run-uuid").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("run-uuid", "bulk", time.Now(), nil, 0, 0, 0, 0, ""))

		run, err := repo.GetRun(ctx, "run-uuid")

		assert.NoError(t, err)
		assert.Equal(t, "bulk", run.Profile)
		assert.Nil(t, run.FinishedAt)
	})

	t.Run("finished", func(t *testing.T) {
		finished := time.Now().UTC()
		mock.ExpectQuery("SELECT (.+) FROM import_runs").
			WithArgs("run-uuid").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("run-uuid", "demand", time.Now(), finished, 3, 5, 1, 0, "runs/demand/run-uuid.json"))

		run, err := repo.GetRun(ctx, "run-uuid")

		assert.NoError(t, err)
		if assert.NotNil(t, run.FinishedAt) {
			assert.Equal(t, finished, *run.FinishedAt)
		}
		assert.Equal(t, 5, run.Imported)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM import_runs").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		run, err := repo.GetRun(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, run)
	})
}

func TestImportPostgres_ListRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewImportPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM import_runs").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery("SELECT (.+) FROM import_runs ORDER BY").
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "profile", "started_at", "finished_at", "repos", "imported", "skipped", "failed", "snapshot_key"}).
			AddRow("run-uuid", "bulk", time.Now(), nil, 0, 0, 0, 0, ""))

	res, err := repo.ListRuns(ctx, repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
}

func TestImportPostgres_ListIssues(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewImportPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM issue_imports").
		WithArgs("run-uuid").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows := sqlmock.NewRows([]string{"id", "run_id", "org", "repo", "issue_number", "issue_title", "jira_key", "profile", "status", "reason", "created_at"}).
		AddRow(int64(1), "run-uuid", "org", "ecs", 1, "a", "BM-1", "bulk", "imported", "", time.Now()).
		AddRow(int64(2), "run-uuid", "org", "ecs", 2, "b", "", "bulk", "skipped", "already-in-jira", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM issue_imports").
		WithArgs("run-uuid", 50, 0).
		WillReturnRows(rows)

	res, err := repo.ListIssues(ctx, "run-uuid", repository.PageQuery{Limit: 50, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, model.ImportStatusSkipped, res.Items[1].Status)
	assert.Equal(t, model.SkipReasonAlreadyInJira, res.Items[1].Reason)
}

func TestImportPostgres_WasImported(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewImportPostgres(db)
	ctx := context.Background()

	t.Run("already imported", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("org", "ecs", 42, "imported").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		ok, err := repo.WasImported(ctx, "org", "ecs", 42)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("never imported", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("org", "ecs", 43, "imported").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		ok, err := repo.WasImported(ctx, "org", "ecs", 43)
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestImportPostgres_ListImports(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewImportPostgres(db)
	ctx := context.Background()

	t.Run("filtered", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM issue_imports").
			WithArgs("ecs", "bug").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		rows := sqlmock.NewRows([]string{"id", "run_id", "org", "repo", "issue_number", "issue_title", "jira_key", "profile", "status", "reason", "created_at"}).
			AddRow(int64(9), "run-uuid", "org", "ecs", 5, "title", "BM-5", "bug", "imported", "", time.Now())

		mock.ExpectQuery("SELECT (.+) FROM issue_imports").
			WithArgs("ecs", "bug", 20, 0).
			WillReturnRows(rows)

		res, err := repo.ListImports(ctx,
			repository.ImportFilter{Repo: "ecs", Profile: "bug"},
			repository.PageQuery{Limit: 20, Offset: 0})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
		assert.Equal(t, "BM-5", res.Items[0].JiraKey)
	})

	t.Run("unfiltered", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM issue_imports").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT (.+) FROM issue_imports").
			WithArgs(20, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "org", "repo", "issue_number", "issue_title", "jira_key", "profile", "status", "reason", "created_at"}))

		res, err := repo.ListImports(ctx, repository.ImportFilter{}, repository.PageQuery{Limit: 20, Offset: 0})
		assert.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Empty(t, res.Items)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
