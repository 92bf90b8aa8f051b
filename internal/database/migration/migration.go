package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// The repo_title_category table is owned by the metadata pipeline and
// is deliberately not created here; the importer only reads it.
var steps = []migrationStep{
	{
		Name: "create_table_import_runs",
		SQL: `CREATE TABLE IF NOT EXISTS import_runs (
  id           UUID        PRIMARY KEY,
  profile      TEXT        NOT NULL,
  started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  finished_at  TIMESTAMPTZ,
  repos        INTEGER     NOT NULL DEFAULT 0,
  imported     INTEGER     NOT NULL DEFAULT 0,
  skipped      INTEGER     NOT NULL DEFAULT 0,
  failed       INTEGER     NOT NULL DEFAULT 0,
  snapshot_key TEXT        NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_table_issue_imports",
		SQL: `CREATE TABLE IF NOT EXISTS issue_imports (
  id           BIGSERIAL   PRIMARY KEY,
  run_id       UUID        NOT NULL REFERENCES import_runs(id) ON DELETE CASCADE,
  org          TEXT        NOT NULL,
  repo         TEXT        NOT NULL,
  issue_number INTEGER     NOT NULL,
  issue_title  TEXT        NOT NULL,
  jira_key     TEXT        NOT NULL DEFAULT '',
  profile      TEXT        NOT NULL,
  status       TEXT        NOT NULL,
  reason       TEXT        NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_issue_imports_run_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_issue_imports_run_id ON issue_imports (run_id);`,
	},
	{
		// One history row per issue and profile; re-runs recording the
		// same issue rely on ON CONFLICT DO NOTHING. The prefix also
		// serves the per-issue lookups.
		Name: "create_unique_index_issue_imports_issue",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_issue_imports_issue ON issue_imports (org, repo, issue_number, profile);`,
	},
	{
		Name: "create_index_issue_imports_jira_key",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_issue_imports_jira_key ON issue_imports (jira_key);`,
	},
	{
		Name: "create_index_import_runs_profile",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_import_runs_profile ON import_runs (profile, started_at);`,
	},
}

// EnsureMigrated checks if the 'issue_imports' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.issue_imports') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
