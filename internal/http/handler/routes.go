package handler

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opentelekomcloud-infra/giji/internal/model"
	"github.com/opentelekomcloud-infra/giji/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	snapshotURLTTL   = 15 * time.Minute
)

// SnapshotPresigner hands out time-limited download URLs for archived
// run snapshots. Satisfied by storage.Archive; nil disables the
// snapshot query parameter.
type SnapshotPresigner interface {
	PresignRun(ctx context.Context, profile, runID string, expiry time.Duration) (string, error)
}

// pageResponse is the envelope for paginated listings.
type pageResponse[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// runResponse wraps a run with its optional presigned snapshot URL.
type runResponse struct {
	model.ImportRun
	SnapshotURL string `json:"snapshot_url,omitempty"`
}

// RegisterRoutes attaches the ops API. Handlers stay free of business
// logic: the server only reports what the import commands recorded.
func RegisterRoutes(app *fiber.App, db *sql.DB, imports repository.ImportRepository, snapshots SnapshotPresigner, reg *prometheus.Registry) {
	// Liveness: process is up.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Readiness: database reachable within 2s.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"checks": fiber.Map{"database": "unreachable"},
			})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
			"checks": fiber.Map{"database": "ok"},
		})
	})

	if reg != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")

	// ListImports godoc
	// @Summary List issue import outcomes
	// @Param repo query string false "repository filter"
	// @Param profile query string false "profile filter (bulk|bug|demand)"
	// @Param status query string false "status filter (imported|skipped|failed)"
	// @Param limit query int false "page size (max 100)"
	// @Param offset query int false "page offset"
	// @Success 200 {object} object
	// @Router /api/v1/imports [get]
	api.Get("/imports", func(c *fiber.Ctx) error {
		pq, err := pageQuery(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
		filter := repository.ImportFilter{
			Repo:    c.Query("repo"),
			Profile: c.Query("profile"),
			Status:  c.Query("status"),
		}
		res, err := imports.ListImports(c.UserContext(), filter, pq)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
		}
		return c.JSON(pageResponse[model.IssueImport]{
			Data: res.Items, Total: res.Total, Limit: pq.Limit, Offset: pq.Offset,
		})
	})

	api.Get("/runs", func(c *fiber.Ctx) error {
		pq, err := pageQuery(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
		res, err := imports.ListRuns(c.UserContext(), pq)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
		}
		return c.JSON(pageResponse[model.ImportRun]{
			Data: res.Items, Total: res.Total, Limit: pq.Limit, Offset: pq.Offset,
		})
	})

	api.Get("/runs/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "bad_request", "invalid run id")
		}
		run, err := imports.GetRun(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "not_found", "run not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
		}

		out := runResponse{ImportRun: *run}
		if c.QueryBool("snapshot") && snapshots != nil && run.SnapshotKey != "" {
			url, err := snapshots.PresignRun(c.UserContext(), run.Profile, run.ID, snapshotURLTTL)
			if err == nil {
				out.SnapshotURL = url
			}
		}
		return c.JSON(out)
	})

	api.Get("/runs/:id/issues", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "bad_request", "invalid run id")
		}
		pq, err := pageQuery(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
		res, err := imports.ListIssues(c.UserContext(), id, pq)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
		}
		return c.JSON(pageResponse[model.IssueImport]{
			Data: res.Items, Total: res.Total, Limit: pq.Limit, Offset: pq.Offset,
		})
	})
}

// pageQuery parses limit/offset with the API defaults and caps.
func pageQuery(c *fiber.Ctx) (repository.PageQuery, error) {
	limit := c.QueryInt("limit", defaultPageLimit)
	if limit <= 0 {
		return repository.PageQuery{}, errors.New("limit must be positive")
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		return repository.PageQuery{}, errors.New("offset must not be negative")
	}
	return repository.PageQuery{Limit: limit, Offset: offset}, nil
}
