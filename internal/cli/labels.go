package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/repository"
	"github.com/opentelekomcloud-infra/giji/internal/repository/postgres"
	"github.com/opentelekomcloud-infra/giji/internal/service"
)

func newLabelsCmd() *cobra.Command {
	var (
		orgs  []string
		repos []string
	)

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Manage the standard label set on target repositories",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create the standard labels in every target repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := cfg.Validate(config.NeedGitHub); err != nil {
				return err
			}

			// The squad query only runs when no explicit repository
			// list is given; skip the database entirely otherwise.
			var categories repository.CategoryRepository
			if len(repos) == 0 {
				db, err := openDatabase(ctx)
				if err != nil {
					return err
				}
				defer db.Close()
				categories = postgres.NewCategoryPostgres(db)
			}

			labels := service.NewLabels(newGitHub(), categories, logger, cfg.GitHub.Orgs, cfg.Importer)
			report, err := labels.EnsureAll(ctx, service.LabelOptions{Orgs: orgs, Repos: repos})
			if err != nil {
				return err
			}

			printLabelReport(report)
			if report.Failed > 0 {
				return fmt.Errorf("%d label(s) failed", report.Failed)
			}
			return nil
		},
	}
	create.Flags().StringSliceVar(&orgs, "orgs", nil, "organizations to process (default: configured orgs)")
	create.Flags().StringSliceVar(&repos, "repos", nil, "explicit repository list (default: squad query)")

	cmd.AddCommand(create)
	return cmd
}

func printLabelReport(report *service.LabelReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Repository", "Created", "Exists", "Failed"})
	for _, r := range report.Repos {
		t.AppendRow(table.Row{r.Org + "/" + r.Repo, r.Created, r.Exists, r.Failed})
	}
	t.AppendFooter(table.Row{"total", report.Created, report.Exists, report.Failed})
	t.Render()
}
