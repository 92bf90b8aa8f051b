package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/github"
	"github.com/opentelekomcloud-infra/giji/internal/model"
	"github.com/opentelekomcloud-infra/giji/internal/repository"
)

// StandardLabels returns the label set every target repository carries.
// The importer and the issue templates both depend on these names.
func StandardLabels() []model.Label {
	return []model.Label{
		{Name: "bulk", Color: "59110f", Description: "Issue has been created from blank"},
		{Name: "bug", Color: "d73a4a", Description: "Something isn't working"},
		{Name: "demand", Color: "ec9f36", Description: "Demand feature for Helpcenter"},
		{Name: "documentation_bug", Color: "fe5611", Description: "Bugs in documentation"},
		{Name: "imported-to-jira", Color: "0075ca", Description: "Issue has been imported to Jira"},
	}
}

// LabelOptions narrows a label run to explicit organizations or
// repositories. Empty slices fall back to the configured orgs and the
// squad query.
type LabelOptions struct {
	Orgs  []string
	Repos []string
}

// LabelRepoSummary tallies one repository's label outcomes.
type LabelRepoSummary struct {
	Org     string
	Repo    string
	Created int
	Exists  int
	Failed  int
}

// OK reports whether every label landed (created or already present).
func (s LabelRepoSummary) OK() bool {
	return s.Failed == 0
}

// LabelReport is the outcome of one label run across all organizations.
type LabelReport struct {
	Repos   []LabelRepoSummary
	Created int
	Exists  int
	Failed  int
}

// Labels ensures the standard label set exists on every target
// repository.
type Labels struct {
	gh         GitHubAPI
	categories repository.CategoryRepository
	log        *slog.Logger
	orgs       []string
	imp        config.ImporterConfig
}

// NewLabels wires the label service.
func NewLabels(gh GitHubAPI, categories repository.CategoryRepository, log *slog.Logger, orgs []string, imp config.ImporterConfig) *Labels {
	if log == nil {
		log = slog.Default()
	}
	return &Labels{gh: gh, categories: categories, log: log, orgs: orgs, imp: imp}
}

// EnsureAll creates the standard labels in every target repository of
// every organization. A missing push permission is logged per
// organization but does not stop processing; the label calls themselves
// report the real failures.
func (l *Labels) EnsureAll(ctx context.Context, opts LabelOptions) (*LabelReport, error) {
	repos := opts.Repos
	if len(repos) == 0 {
		cats, err := l.categories.ListBySquads(ctx, l.imp.TargetSquads)
		if err != nil {
			return nil, fmt.Errorf("list repositories for squads: %w", err)
		}
		for _, c := range cats {
			repos = append(repos, c.Repository)
		}
	}

	orgs := opts.Orgs
	if len(orgs) == 0 {
		orgs = l.orgs
	}

	report := &LabelReport{}
	for _, org := range orgs {
		if len(repos) > 0 {
			l.probePermission(ctx, org, repos[0])
		}
		for _, repo := range repos {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			sum := l.ensureRepo(ctx, org, repo)
			report.Repos = append(report.Repos, sum)
			report.Created += sum.Created
			report.Exists += sum.Exists
			report.Failed += sum.Failed
		}
	}
	return report, nil
}

// probePermission warns when the token cannot push to the first
// repository of an organization. Label creation needs push access, so
// this catches a mis-scoped token before a long run of 403s.
func (l *Labels) probePermission(ctx context.Context, org, repo string) {
	push, err := l.gh.HasPushPermission(ctx, org, repo)
	if err != nil {
		l.log.Warn("push permission probe failed", "org", org, "repo", repo, "error", err)
		return
	}
	if !push {
		l.log.Warn("token has no push permission, label creation will likely fail", "org", org, "repo", repo)
	}
}

func (l *Labels) ensureRepo(ctx context.Context, org, repo string) LabelRepoSummary {
	sum := LabelRepoSummary{Org: org, Repo: repo}
	for _, label := range StandardLabels() {
		status, err := l.gh.CreateLabel(ctx, org, repo, label)
		switch {
		case err != nil:
			l.log.Error("label creation failed", "org", org, "repo", repo, "label", label.Name, "error", err)
			sum.Failed++
		case status == github.LabelExists:
			sum.Exists++
		default:
			sum.Created++
		}
		if err := sleep(ctx, time.Duration(l.imp.LabelDelayMS)*time.Millisecond); err != nil {
			return sum
		}
	}
	return sum
}
