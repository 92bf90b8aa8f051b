package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/httpclient"
	"github.com/opentelekomcloud-infra/giji/internal/repository"
)

const (
	templateBranch  = "add_issue_templates"
	templateDir     = ".github/ISSUE_TEMPLATE"
	templatePRTitle = "Add issue templates for bug reports and feature requests"
	templatePRBody  = `This PR adds standardized issue templates to improve issue reporting:

- **bug-report.yml**: Template for bug reports with structured fields
- **demand.yml**: Template for feature requests and demands
- **config.yml**: Configuration for issue template chooser

These templates will help users provide better structured information when creating issues.`

	gitUserName  = "GitHub Actions"
	gitUserEmail = "noreply@github.com"
)

// templateFiles are the issue-form sources shipped with the tool.
var templateFiles = []string{"bug-report.yml", "demand.yml", "config.yml"}

// Template distribution outcomes per repository.
const (
	TemplateSkipped   = "skipped"
	TemplatePRExists  = "pr-exists"
	TemplateNoChanges = "no-changes"
	TemplatePRCreated = "pr-created"
	TemplateFailed    = "failed"
)

// TemplateOptions narrows one distribution run.
type TemplateOptions struct {
	Repos   []string
	Org     string
	WorkDir string
}

// TemplateResult is the outcome for one repository.
type TemplateResult struct {
	Org    string
	Repo   string
	Status string
	PRURL  string
	Error  string
}

// TemplateReport is the outcome of one distribution run.
type TemplateReport struct {
	Results   []TemplateResult
	PRsOpened int
	Skipped   int
	Failed    int
}

// gitRunner executes one git command in dir and returns its stdout.
// Tests replace it to avoid real clones.
type gitRunner func(ctx context.Context, dir string, args ...string) (string, error)

// Templates distributes the issue-form templates to target repositories
// by branch and pull request.
type Templates struct {
	gh         GitHubAPI
	categories repository.CategoryRepository
	log        *slog.Logger
	orgs       []string
	imp        config.ImporterConfig
	token      string

	runGit gitRunner
}

// NewTemplates wires the template distributor. token authenticates the
// git clone/push remote.
func NewTemplates(gh GitHubAPI, categories repository.CategoryRepository, log *slog.Logger, orgs []string, imp config.ImporterConfig, token string) *Templates {
	if log == nil {
		log = slog.Default()
	}
	t := &Templates{
		gh:         gh,
		categories: categories,
		log:        log,
		orgs:       orgs,
		imp:        imp,
		token:      token,
	}
	t.runGit = t.execGit
	return t
}

// Preflight verifies the template sources parse as YAML and that git is
// resolvable on PATH. Called before any repository is touched.
func (t *Templates) Preflight() error {
	for _, name := range templateFiles {
		path := filepath.Join(t.imp.TemplatesDir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("template source %s: %w", name, err)
		}
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("template source %s is not valid YAML: %w", name, err)
		}
	}
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git not found on PATH: %w", err)
	}
	return nil
}

// Distribute pushes the templates to every target repository and opens a
// pull request per repository. Repositories with an open template PR or
// with the templates already in place are counted as successes without
// new work.
func (t *Templates) Distribute(ctx context.Context, opts TemplateOptions) (*TemplateReport, error) {
	if err := t.Preflight(); err != nil {
		return nil, err
	}

	repos := opts.Repos
	if len(repos) == 0 {
		cats, err := t.categories.ListBySquads(ctx, t.imp.TargetSquads)
		if err != nil {
			return nil, fmt.Errorf("list repositories for squads: %w", err)
		}
		for _, c := range cats {
			repos = append(repos, c.Repository)
		}
	}

	orgs := t.orgs
	if opts.Org != "" {
		orgs = []string{opts.Org}
	}

	report := &TemplateReport{}
	for _, org := range orgs {
		for _, repo := range repos {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			res := t.distributeRepo(ctx, org, repo, opts.WorkDir)
			report.Results = append(report.Results, res)
			switch res.Status {
			case TemplatePRCreated:
				report.PRsOpened++
			case TemplateSkipped:
				report.Skipped++
			case TemplateFailed:
				report.Failed++
			}
			if err := sleep(ctx, time.Duration(t.imp.RepoDelayMS)*time.Millisecond); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

func (t *Templates) distributeRepo(ctx context.Context, org, repo, workDir string) TemplateResult {
	res := TemplateResult{Org: org, Repo: repo}
	log := t.log.With("org", org, "repo", repo)

	ghRepo, err := t.gh.GetRepo(ctx, org, repo)
	if err != nil {
		if httpclient.IsStatus(err, 404) {
			log.Info("repository does not exist on github, skipping")
			res.Status = TemplateSkipped
			return res
		}
		res.Status = TemplateFailed
		res.Error = t.redact(err.Error())
		return res
	}

	head := org + ":" + templateBranch
	pulls, err := t.gh.ListPulls(ctx, org, repo, "open", head)
	if err != nil {
		res.Status = TemplateFailed
		res.Error = t.redact(err.Error())
		return res
	}
	if len(pulls) > 0 {
		log.Info("template pull request already open", "url", pulls[0].HTMLURL)
		res.Status = TemplatePRExists
		res.PRURL = pulls[0].HTMLURL
		return res
	}

	defaultBranch := ghRepo.DefaultBranch
	if defaultBranch == "" {
		defaultBranch = "main"
	}

	if err := t.pushTemplates(ctx, log, org, repo, defaultBranch, workDir, &res); err != nil {
		log.Error("template distribution failed", "error", t.redact(err.Error()))
		res.Status = TemplateFailed
		res.Error = t.redact(err.Error())
	}
	return res
}

// pushTemplates does the git work: fresh branch from the default
// branch, template copy, commit, push and pull request.
func (t *Templates) pushTemplates(ctx context.Context, log *slog.Logger, org, repo, defaultBranch, workDir string, res *TemplateResult) error {
	tmp, err := os.MkdirTemp(workDir, "giji-templates-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	clonePath := filepath.Join(tmp, repo)
	remote := fmt.Sprintf("https://%s@github.com/%s/%s.git", t.token, org, repo)

	if _, err := t.runGit(ctx, tmp, "clone", remote, clonePath); err != nil {
		return err
	}
	if _, err := t.runGit(ctx, clonePath, "config", "user.name", gitUserName); err != nil {
		return err
	}
	if _, err := t.runGit(ctx, clonePath, "config", "user.email", gitUserEmail); err != nil {
		return err
	}
	if _, err := t.runGit(ctx, clonePath, "checkout", defaultBranch); err != nil {
		return err
	}
	if _, err := t.runGit(ctx, clonePath, "pull", "origin", defaultBranch); err != nil {
		return err
	}

	// Stale branches from earlier runs are rebuilt from scratch so the
	// PR always carries the current templates.
	if _, err := t.runGit(ctx, clonePath, "branch", "-D", templateBranch); err == nil {
		log.Info("deleted stale local branch", "branch", templateBranch)
	}
	if _, err := t.runGit(ctx, clonePath, "push", "origin", "--delete", templateBranch); err == nil {
		log.Info("deleted stale remote branch", "branch", templateBranch)
	}
	if _, err := t.runGit(ctx, clonePath, "checkout", "-b", templateBranch); err != nil {
		return err
	}

	target := filepath.Join(clonePath, filepath.FromSlash(templateDir))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", templateDir, err)
	}
	for _, name := range templateFiles {
		src := filepath.Join(t.imp.TemplatesDir, name)
		raw, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read template %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(target, name), raw, 0o644); err != nil {
			return fmt.Errorf("write template %s: %w", name, err)
		}
	}

	if _, err := t.runGit(ctx, clonePath, "add", templateDir); err != nil {
		return err
	}
	status, err := t.runGit(ctx, clonePath, "status", "--porcelain")
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) == "" {
		log.Info("templates already up to date, nothing to commit")
		res.Status = TemplateNoChanges
		return nil
	}

	msg := "Add issue templates\n\nAdded templates: " + strings.Join(templateFiles, ", ")
	if _, err := t.runGit(ctx, clonePath, "commit", "-m", msg); err != nil {
		return err
	}
	if _, err := t.runGit(ctx, clonePath, "push", "origin", templateBranch); err != nil {
		return err
	}

	pr, err := t.gh.CreatePull(ctx, org, repo, templatePRTitle, templateBranch, defaultBranch, templatePRBody)
	if err != nil {
		// A 422 means a PR for the branch raced into existence, which
		// is the idempotent success case.
		if httpclient.IsStatus(err, 422) {
			res.Status = TemplatePRExists
			return nil
		}
		return err
	}
	log.Info("pull request created", "number", pr.Number, "url", pr.HTMLURL)
	res.Status = TemplatePRCreated
	res.PRURL = pr.HTMLURL
	return nil
}

// execGit runs git with stderr folded into the error. The authenticated
// remote URL never reaches logs or error text.
func (t *Templates) execGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %s", args[0], err, t.redact(strings.TrimSpace(string(out))))
	}
	return string(out), nil
}

// redact strips the token from any operator-facing text.
func (t *Templates) redact(s string) string {
	if t.token == "" {
		return s
	}
	return strings.ReplaceAll(s, t.token, "***")
}
