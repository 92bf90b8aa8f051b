package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/database"
	"github.com/opentelekomcloud-infra/giji/internal/gitea"
	"github.com/opentelekomcloud-infra/giji/internal/jira"
	"github.com/opentelekomcloud-infra/giji/internal/repository/postgres"
)

const probeTimeout = 10 * time.Second

type probeResult struct {
	Name   string
	OK     bool
	Detail string
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Probe every configured backend and report connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context())
		},
	}
}

// runDoctor probes the backends concurrently. Every probe records its
// outcome; the command fails when any probe does.
func runDoctor(ctx context.Context) error {
	results := make([]probeResult, 4)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results[0] = probeDatabase(gctx)
		return nil
	})
	g.Go(func() error {
		results[1] = probe(gctx, "github", config.NeedGitHub, func(ctx context.Context) (string, error) {
			if err := newGitHub().Ping(ctx); err != nil {
				return "", err
			}
			return "token accepted", nil
		})
		return nil
	})
	g.Go(func() error {
		results[2] = probe(gctx, "jira", config.NeedJira, func(ctx context.Context) (string, error) {
			client, err := jira.New(cfg.Jira)
			if err != nil {
				return "", err
			}
			if err := client.Ping(ctx); err != nil {
				return "", err
			}
			return "reachable", nil
		})
		return nil
	})
	g.Go(func() error {
		results[3] = probe(gctx, "gitea", config.NeedGitea, func(ctx context.Context) (string, error) {
			files, err := gitea.New(cfg.Gitea).ListEnvironmentFiles(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d environment file(s)", len(files)), nil
		})
		return nil
	})
	_ = g.Wait()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Probe", "Status", "Detail"})
	failed := 0
	for _, r := range results {
		status := "ok"
		if !r.OK {
			status = "failed"
			failed++
		}
		t.AppendRow(table.Row{r.Name, status, r.Detail})
	}
	t.Render()

	if failed > 0 {
		return fmt.Errorf("%d probe(s) failed", failed)
	}
	return nil
}

// probe validates the backend's settings and runs fn under the probe
// timeout.
func probe(ctx context.Context, name string, need config.Need, fn func(context.Context) (string, error)) probeResult {
	if err := cfg.Validate(need); err != nil {
		return probeResult{Name: name, Detail: err.Error()}
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	detail, err := fn(ctx)
	if err != nil {
		return probeResult{Name: name, Detail: err.Error()}
	}
	return probeResult{Name: name, OK: true, Detail: detail}
}

// probeDatabase pings the database and checks for the externally-owned
// repo_title_category table, which explains empty squad queries.
func probeDatabase(ctx context.Context) probeResult {
	return probe(ctx, "database", config.NeedDatabase, func(ctx context.Context) (string, error) {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return "", err
		}
		defer db.Close()

		exists, err := postgres.NewCategoryPostgres(db).TableExists(ctx)
		if err != nil {
			return "", err
		}
		if !exists {
			return "connected; repo_title_category missing, squad queries will be empty", nil
		}
		return "connected", nil
	})
}
