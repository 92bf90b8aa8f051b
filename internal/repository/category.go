package repository

import (
	"context"

	"github.com/opentelekomcloud-infra/giji/internal/model"
)

// CategoryRepository reads the repo_title_category table. The table is
// owned by the metadata pipeline; the importer only selects from it, so
// there are no write operations here.
type CategoryRepository interface {
	// ListBySquads returns the repositories assigned to the given
	// squads, ordered by squad and repository name.
	ListBySquads(ctx context.Context, squads []string) ([]model.RepoCategory, error)

	// TableExists reports whether the externally-owned table is
	// present. Used by the doctor command to explain empty imports.
	TableExists(ctx context.Context) (bool, error)
}
