package cli

import (
	"context"
	"database/sql"
	"time"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/database"
	"github.com/opentelekomcloud-infra/giji/internal/database/migration"
	"github.com/opentelekomcloud-infra/giji/internal/github"
	"github.com/opentelekomcloud-infra/giji/internal/storage"
)

// openDatabase validates the database settings, connects and applies the
// schema migrations. The caller owns the returned handle.
func openDatabase(ctx context.Context) (*sql.DB, error) {
	if err := cfg.Validate(config.NeedDatabase); err != nil {
		return nil, err
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, logLocation(), cfg.Database.Host); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// newGitHub builds the GitHub client with the configured page pacing.
func newGitHub() *github.Client {
	return github.New(cfg.GitHub, msDuration(cfg.Importer.PageDelayMS))
}

// newArchive builds the snapshot archive when object storage is
// configured; a nil archive disables snapshots.
func newArchive(ctx context.Context) (*storage.Archive, error) {
	if cfg.MinIO.Endpoint == "" {
		return nil, nil
	}
	store, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return nil, err
	}
	return storage.NewArchive(store), nil
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
