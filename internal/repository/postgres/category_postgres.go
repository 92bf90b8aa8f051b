package postgres

import (
	"context"
	"database/sql"

	"github.com/opentelekomcloud-infra/giji/internal/model"
	"github.com/opentelekomcloud-infra/giji/internal/repository"
)

// CategoryPostgres is a PostgreSQL implementation of repository.CategoryRepository.
// The quoted column names mirror the table as the metadata pipeline
// creates it (capitalized headers imported straight from the squad CSV).
type CategoryPostgres struct {
	db *sql.DB
}

// NewCategoryPostgres creates a new CategoryPostgres repository.
func NewCategoryPostgres(db *sql.DB) *CategoryPostgres {
	return &CategoryPostgres{db: db}
}

var _ repository.CategoryRepository = (*CategoryPostgres)(nil)

// ListBySquads selects the repositories owned by the given squads. The
// pgx driver binds []string natively as a text[] parameter.
func (r *CategoryPostgres) ListBySquads(ctx context.Context, squads []string) ([]model.RepoCategory, error) {
	const q = `
		SELECT "Repository", "Squad", "Title"
		FROM repo_title_category
		WHERE "Squad" = ANY($1)
		ORDER BY "Squad", "Repository"
	`
	rows, err := r.db.QueryContext(ctx, q, squads)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.RepoCategory, 0)
	for rows.Next() {
		var c model.RepoCategory
		if err := rows.Scan(&c.Repository, &c.Squad, &c.Title); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// TableExists checks for the externally-owned table.
func (r *CategoryPostgres) TableExists(ctx context.Context) (bool, error) {
	const q = `SELECT to_regclass('public.repo_title_category') IS NOT NULL`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
