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

func newTemplatesCmd() *cobra.Command {
	var (
		repos   []string
		org     string
		workDir string
	)

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Distribute the issue-form templates to target repositories",
	}

	distribute := &cobra.Command{
		Use:   "distribute",
		Short: "Push the templates and open a pull request per repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := cfg.Validate(config.NeedGitHub); err != nil {
				return err
			}

			var categories repository.CategoryRepository
			if len(repos) == 0 {
				db, err := openDatabase(ctx)
				if err != nil {
					return err
				}
				defer db.Close()
				categories = postgres.NewCategoryPostgres(db)
			}

			templates := service.NewTemplates(newGitHub(), categories, logger, cfg.GitHub.Orgs, cfg.Importer, cfg.GitHub.Token)
			report, err := templates.Distribute(ctx, service.TemplateOptions{
				Repos:   repos,
				Org:     org,
				WorkDir: workDir,
			})
			if err != nil {
				return err
			}

			printTemplateReport(report)
			if report.Failed > 0 {
				return fmt.Errorf("template distribution failed for %d repositor(ies)", report.Failed)
			}
			return nil
		},
	}
	distribute.Flags().StringSliceVar(&repos, "repos", nil, "explicit repository list (default: squad query)")
	distribute.Flags().StringVar(&org, "org", "", "restrict the run to one organization")
	distribute.Flags().StringVar(&workDir, "work-dir", "", "parent directory for the temporary clones (default: system temp)")

	cmd.AddCommand(distribute)
	return cmd
}

func printTemplateReport(report *service.TemplateReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Repository", "Status", "PR", "Error"})
	for _, r := range report.Results {
		t.AppendRow(table.Row{r.Org + "/" + r.Repo, r.Status, r.PRURL, r.Error})
	}
	t.AppendFooter(table.Row{"total", fmt.Sprintf("%d opened", report.PRsOpened), fmt.Sprintf("%d skipped", report.Skipped), fmt.Sprintf("%d failed", report.Failed)})
	t.Render()
}
