package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/jira"
	"github.com/opentelekomcloud-infra/giji/internal/model"
	"github.com/opentelekomcloud-infra/giji/internal/repository"
)

const notTemplateReason = "not-template"

// RunOptions narrows one import run: an explicit repository list instead
// of the squad query, a single organization, a dry run, or an import cap.
type RunOptions struct {
	Repos  []string
	Org    string
	DryRun bool
	Limit  int
}

// Importer walks GitHub repositories and creates Jira issues for the
// ones a profile selects. One Importer serves all profiles; the profile
// is passed per run.
type Importer struct {
	gh         GitHubAPI
	jira       JiraAPI
	locations  LocationsAPI
	categories repository.CategoryRepository
	history    repository.ImportRepository
	archive    Archiver
	metrics    *Metrics
	log        *slog.Logger

	orgs []string
	imp  config.ImporterConfig
}

// NewImporter wires the import engine. archive and metrics may be nil;
// snapshots and counters are then disabled.
func NewImporter(
	gh GitHubAPI,
	jiraAPI JiraAPI,
	locations LocationsAPI,
	categories repository.CategoryRepository,
	history repository.ImportRepository,
	archive Archiver,
	metrics *Metrics,
	log *slog.Logger,
	orgs []string,
	imp config.ImporterConfig,
) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{
		gh:         gh,
		jira:       jiraAPI,
		locations:  locations,
		categories: categories,
		history:    history,
		archive:    archive,
		metrics:    metrics,
		log:        log,
		orgs:       orgs,
		imp:        imp,
	}
}

// Run executes one import for the given profile and returns the full
// run snapshot: the run row, per-repository summaries and per-issue
// outcomes. A dry run walks the same pipeline but performs no Jira
// creation, no GitHub mutation and no database or snapshot writes.
func (i *Importer) Run(ctx context.Context, profile Profile, opts RunOptions) (*model.RunSnapshot, error) {
	repos, err := i.targetRepos(ctx, opts)
	if err != nil {
		return nil, err
	}

	snap := &model.RunSnapshot{
		Run: model.ImportRun{
			ID:        uuid.NewString(),
			Profile:   profile.Name(),
			StartedAt: time.Now().UTC(),
			Repos:     len(repos),
		},
	}
	log := i.log.With("run_id", snap.Run.ID, "profile", profile.Name(), "dry_run", opts.DryRun)
	log.Info("starting import run", "repos", len(repos))

	if !opts.DryRun {
		if err := i.history.CreateRun(ctx, &snap.Run); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	}

	orgs := i.orgs
	if opts.Org != "" {
		orgs = []string{opts.Org}
	}

orgLoop:
	for _, org := range orgs {
		locations, err := i.locations.AffectedLocations(ctx, org)
		if err != nil {
			// Locations are mandatory on every created issue, so a
			// resolution failure fails the whole organization rather
			// than silently importing without them.
			log.Error("affected locations unavailable, skipping organization", "org", org, "error", err)
			for _, repo := range repos {
				snap.Repos = append(snap.Repos, model.RepoSummary{
					Org:   org,
					Repo:  repo,
					Error: fmt.Sprintf("affected locations: %v", err),
				})
			}
			continue
		}

		for _, repo := range repos {
			if ctx.Err() != nil {
				break
			}
			sum := i.importRepo(ctx, log, snap, profile, org, repo, locations, opts)
			snap.Repos = append(snap.Repos, sum)
			if opts.Limit > 0 && snap.Run.Imported >= opts.Limit {
				log.Info("import limit reached", "limit", opts.Limit)
				break orgLoop
			}
		}
	}

	now := time.Now().UTC()
	snap.Run.FinishedAt = &now

	status := "success"
	if i.failedRepos(snap) > 0 || snap.Run.Failed > 0 {
		status = "partial"
	}
	i.metrics.runFinished(profile.Name(), status)

	if !opts.DryRun {
		i.archiveRun(ctx, log, snap)
		if err := i.history.FinishRun(ctx, &snap.Run); err != nil {
			return snap, fmt.Errorf("finish run: %w", err)
		}
	}

	log.Info("import run finished",
		"imported", snap.Run.Imported,
		"skipped", snap.Run.Skipped,
		"failed", snap.Run.Failed,
		"status", status,
	)
	return snap, ctx.Err()
}

// targetRepos resolves the repository set: an explicit override or the
// squad assignments from the metadata database.
func (i *Importer) targetRepos(ctx context.Context, opts RunOptions) ([]string, error) {
	if len(opts.Repos) > 0 {
		return opts.Repos, nil
	}
	cats, err := i.categories.ListBySquads(ctx, i.imp.TargetSquads)
	if err != nil {
		return nil, fmt.Errorf("list repositories for squads: %w", err)
	}
	repos := make([]string, 0, len(cats))
	for _, c := range cats {
		repos = append(repos, c.Repository)
	}
	return repos, nil
}

func (i *Importer) failedRepos(snap *model.RunSnapshot) int {
	n := 0
	for _, s := range snap.Repos {
		if s.Error != "" {
			n++
		}
	}
	return n
}

// importRepo processes one repository. A failed issue never aborts the
// repository; a failed listing aborts only this repository.
func (i *Importer) importRepo(
	ctx context.Context,
	log *slog.Logger,
	snap *model.RunSnapshot,
	profile Profile,
	org, repo string,
	locations []string,
	opts RunOptions,
) model.RepoSummary {
	sum := model.RepoSummary{Org: org, Repo: repo}
	log = log.With("org", org, "repo", repo)

	issues, err := i.gh.ListAllIssues(ctx, org, repo, "open")
	if err != nil {
		log.Error("listing issues failed", "error", err)
		sum.Error = err.Error()
		return sum
	}

	ic := IssueContext{Org: org, Repo: repo, Locations: locations}
	for _, issue := range issues {
		if ctx.Err() != nil {
			sum.Error = ctx.Err().Error()
			break
		}
		if issue.IsPullRequest() {
			continue
		}
		sum.Scanned++

		if !profile.Selects(issue) {
			sum.Skipped++
			snap.Run.Skipped++
			continue
		}
		sum.Selected++

		rec := model.IssueImport{
			RunID:       snap.Run.ID,
			Org:         org,
			Repo:        repo,
			IssueNumber: issue.Number,
			IssueTitle:  issue.Title,
			Profile:     profile.Name(),
		}
		i.importIssue(ctx, log, profile, issue, ic, opts, &rec)

		switch rec.Status {
		case model.ImportStatusImported:
			sum.Imported++
			snap.Run.Imported++
			i.metrics.issueImported(profile.Name(), repo)
		case model.ImportStatusSkipped:
			sum.Skipped++
			snap.Run.Skipped++
			i.metrics.issueSkipped(profile.Name(), rec.Reason)
		default:
			sum.Failed++
			snap.Run.Failed++
		}

		if !opts.DryRun {
			if err := i.history.RecordIssue(ctx, &rec); err != nil {
				log.Error("recording issue outcome failed", "issue", issue.Number, "error", err)
			}
		}
		snap.Issues = append(snap.Issues, rec)

		if opts.Limit > 0 && snap.Run.Imported >= opts.Limit {
			break
		}
		if err := sleep(ctx, i.createDelay()); err != nil {
			sum.Error = err.Error()
			break
		}
	}
	return sum
}

// importIssue runs the idempotency guards and the Jira creation for one
// selected issue, filling rec with the outcome.
func (i *Importer) importIssue(
	ctx context.Context,
	log *slog.Logger,
	profile Profile,
	issue model.Issue,
	ic IssueContext,
	opts RunOptions,
	rec *model.IssueImport,
) {
	log = log.With("issue", issue.Number)

	if issue.HasAnyLabel(profile.ImportedLabels()...) {
		rec.Status = model.ImportStatusSkipped
		rec.Reason = model.SkipReasonAlreadyImported
		return
	}

	// The local history is cheaper than the Jira probe and also catches
	// issues whose imported label was removed by hand. A lookup failure
	// only falls through to the probe.
	done, err := i.history.WasImported(ctx, ic.Org, ic.Repo, issue.Number)
	if err != nil {
		log.Warn("import history lookup failed", "error", err)
	} else if done {
		if !opts.DryRun {
			if err := i.gh.AddLabels(ctx, ic.Org, ic.Repo, issue.Number, profile.ImportedLabels()); err != nil {
				log.Warn("label backfill failed", "error", err)
			}
		}
		rec.Status = model.ImportStatusSkipped
		rec.Reason = model.SkipReasonAlreadyImported
		return
	}

	exists, err := i.jira.IssueExists(ctx, profile.ProjectKey(), ic.Repo, issue.Number)
	if err != nil {
		// Proceeding on a failed probe risks a duplicate Jira issue,
		// so the issue fails instead.
		log.Error("jira existence probe failed", "error", err)
		rec.Status = model.ImportStatusFailed
		rec.Reason = fmt.Sprintf("jira probe: %v", err)
		return
	}
	if exists {
		log.Info("issue already in jira, backfilling label")
		if !opts.DryRun {
			if err := i.gh.AddLabels(ctx, ic.Org, ic.Repo, issue.Number, profile.ImportedLabels()); err != nil {
				log.Warn("label backfill failed", "error", err)
			}
		}
		rec.Status = model.ImportStatusSkipped
		rec.Reason = model.SkipReasonAlreadyInJira
		return
	}

	fields, err := profile.Fields(issue, ic)
	if err != nil {
		if errors.Is(err, ErrNotTemplate) {
			rec.Status = model.ImportStatusSkipped
			rec.Reason = notTemplateReason
			return
		}
		log.Error("building jira fields failed", "error", err)
		rec.Status = model.ImportStatusFailed
		rec.Reason = err.Error()
		return
	}
	if desc, ok := fields["description"].(string); ok {
		fields["description"] = jira.ConvertImagesToWiki(desc)
	}

	if opts.DryRun {
		rec.Status = model.ImportStatusSkipped
		rec.Reason = model.SkipReasonDryRun
		return
	}

	key, err := i.jira.CreateIssue(ctx, fields)
	if err != nil {
		log.Error("jira issue creation failed", "error", err)
		rec.Status = model.ImportStatusFailed
		rec.Reason = err.Error()
		return
	}
	rec.JiraKey = key
	rec.Status = model.ImportStatusImported
	log.Info("issue imported", "jira_key", key)

	if profile.SyncComments() {
		i.syncComments(ctx, log, ic, issue.Number, key)
	}

	// The Jira issue exists at this point; back-link and label failures
	// are logged but do not change the imported outcome.
	backlink := fmt.Sprintf("This issue has been imported to Jira: [%s](%s)", key, i.jira.BrowseURL(key))
	if err := i.gh.AddComment(ctx, ic.Org, ic.Repo, issue.Number, backlink); err != nil {
		log.Warn("back-link comment failed", "error", err)
	}
	if err := i.gh.AddLabels(ctx, ic.Org, ic.Repo, issue.Number, profile.ImportedLabels()); err != nil {
		log.Warn("adding imported labels failed", "error", err)
	}
}

// syncComments copies the GitHub discussion onto the new Jira issue.
func (i *Importer) syncComments(ctx context.Context, log *slog.Logger, ic IssueContext, number int, key string) {
	comments, err := i.gh.ListIssueComments(ctx, ic.Org, ic.Repo, number)
	if err != nil {
		log.Warn("listing comments failed", "error", err)
		return
	}
	for _, c := range comments {
		if c.Body == "" {
			continue
		}
		if err := i.jira.AddComment(ctx, key, jira.FormatComment(c)); err != nil {
			log.Warn("syncing comment failed", "comment_id", c.ID, "error", err)
		}
		if err := sleep(ctx, i.createDelay()); err != nil {
			return
		}
	}
}

// archiveRun uploads the run snapshot. Archive failures never fail the
// run; the snapshot key stays empty.
func (i *Importer) archiveRun(ctx context.Context, log *slog.Logger, snap *model.RunSnapshot) {
	if i.archive == nil {
		return
	}
	key, err := i.archive.PutRun(ctx, snap)
	if err != nil {
		log.Warn("archiving run snapshot failed", "error", err)
		return
	}
	snap.Run.SnapshotKey = key
}

func (i *Importer) createDelay() time.Duration {
	return time.Duration(i.imp.CreateDelayMS) * time.Millisecond
}
