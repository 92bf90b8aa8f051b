package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/gitea"
	"github.com/opentelekomcloud-infra/giji/internal/jira"
	"github.com/opentelekomcloud-infra/giji/internal/model"
	"github.com/opentelekomcloud-infra/giji/internal/repository/postgres"
	"github.com/opentelekomcloud-infra/giji/internal/service"
)

func newImportCmd() *cobra.Command {
	var (
		repos  []string
		org    string
		dryRun bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import GitHub issues into Jira",
		Long: `Import runs one profile over the target repositories:

  bulk    unlabeled issues into the documentation project
  bug     issues labeled "bug" or titled [BUG] into the documentation project
  demand  issues labeled "demand" or titled [DEMAND] into the product project`,
	}

	cmd.PersistentFlags().StringSliceVar(&repos, "repos", nil, "explicit repository list (default: squad query)")
	cmd.PersistentFlags().StringVar(&org, "org", "", "restrict the run to one organization")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "walk the pipeline without creating or recording anything")
	cmd.PersistentFlags().IntVar(&limit, "limit", 0, "stop after N imported issues (0 = unlimited)")

	for _, name := range []string{"bulk", "bug", "demand"} {
		profile := name
		cmd.AddCommand(&cobra.Command{
			Use:   profile,
			Short: fmt.Sprintf("Run the %s import profile", profile),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runImport(cmd, profile, service.RunOptions{
					Repos:  repos,
					Org:    org,
					DryRun: dryRun,
					Limit:  limit,
				})
			},
		})
	}

	return cmd
}

func runImport(cmd *cobra.Command, profileName string, opts service.RunOptions) error {
	ctx := cmd.Context()

	if err := cfg.Validate(config.NeedGitHub, config.NeedJira, config.NeedGitea); err != nil {
		return err
	}
	profile, err := service.ProfileFor(cfg, profileName)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	jiraClient, err := jira.New(cfg.Jira)
	if err != nil {
		return err
	}

	archive, err := newArchive(ctx)
	if err != nil {
		return err
	}
	var archiver service.Archiver
	if archive != nil {
		archiver = archive
	} else {
		logger.Warn("object storage not configured, run snapshots disabled")
	}

	importer := service.NewImporter(
		newGitHub(),
		jiraClient,
		gitea.New(cfg.Gitea),
		postgres.NewCategoryPostgres(db),
		postgres.NewImportPostgres(db),
		archiver,
		nil,
		logger,
		cfg.GitHub.Orgs,
		cfg.Importer,
	)

	snap, err := importer.Run(ctx, profile, opts)
	if err != nil {
		return err
	}

	printRunSummary(snap, opts.DryRun)
	if snap.Run.Failed > 0 {
		return fmt.Errorf("%d issue(s) failed to import", snap.Run.Failed)
	}
	return nil
}

// printRunSummary renders the per-repository outcome table and the run
// totals on stdout.
func printRunSummary(snap *model.RunSnapshot, dryRun bool) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Repository", "Scanned", "Selected", "Imported", "Skipped", "Failed", "Error"})
	for _, r := range snap.Repos {
		t.AppendRow(table.Row{
			r.Org + "/" + r.Repo, r.Scanned, r.Selected, r.Imported, r.Skipped, r.Failed, r.Error,
		})
	}
	t.AppendFooter(table.Row{
		"total", "", "", snap.Run.Imported, snap.Run.Skipped, snap.Run.Failed, "",
	})
	t.Render()

	mode := ""
	if dryRun {
		mode = " (dry run)"
	}
	fmt.Printf("run %s profile=%s repos=%d%s\n", snap.Run.ID, snap.Run.Profile, snap.Run.Repos, mode)
	if snap.Run.SnapshotKey != "" {
		fmt.Printf("snapshot: %s\n", snap.Run.SnapshotKey)
	}
	if keys := importedKeys(snap); len(keys) > 0 {
		fmt.Printf("created: %s\n", strings.Join(keys, ", "))
	}
}

func importedKeys(snap *model.RunSnapshot) []string {
	var keys []string
	for _, rec := range snap.Issues {
		if rec.Status == model.ImportStatusImported && rec.JiraKey != "" {
			keys = append(keys, rec.JiraKey)
		}
	}
	return keys
}
