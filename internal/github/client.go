// Package github is a thin client for the GitHub REST v3 endpoints the
// importer uses: issue listing, labels, comments and pull requests.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/httpclient"
	"github.com/opentelekomcloud-infra/giji/internal/model"
)

const perPage = 100

// LabelStatus is the outcome of a label creation call.
type LabelStatus string

const (
	LabelCreated LabelStatus = "created"
	LabelExists  LabelStatus = "exists"
)

// Client talks to the GitHub API on behalf of the importer bot.
type Client struct {
	api       *httpclient.Client
	pageDelay time.Duration
}

// New builds a client for cfg. pageDelay is the pause between list
// pages so long repositories do not burn through the API quota.
func New(cfg config.GitHubConfig, pageDelay time.Duration) *Client {
	return &Client{
		api: httpclient.New(httpclient.Config{
			BaseURL:   cfg.APIURL,
			Auth:      httpclient.TokenAuth{Token: cfg.Token},
			Headers:   map[string]string{"Accept": "application/vnd.github.v3+json"},
			UserAgent: "giji-importer",
		}),
		pageDelay: pageDelay,
	}
}

// ListIssues fetches one page of issues. GitHub mixes pull requests
// into this listing; callers filter them via Issue.IsPullRequest.
func (c *Client) ListIssues(ctx context.Context, org, repo, state string, page int) ([]model.Issue, error) {
	q := url.Values{}
	q.Set("state", state)
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))

	resp, err := c.api.Get(ctx, fmt.Sprintf("/repos/%s/%s/issues", org, repo), q)
	if err != nil {
		return nil, fmt.Errorf("list issues %s/%s page %d: %w", org, repo, page, err)
	}
	var issues []model.Issue
	if err := resp.JSON(&issues); err != nil {
		return nil, fmt.Errorf("decode issues %s/%s: %w", org, repo, err)
	}
	return issues, nil
}

// ListAllIssues walks every page of the issue listing until a short or
// empty page signals the end.
func (c *Client) ListAllIssues(ctx context.Context, org, repo, state string) ([]model.Issue, error) {
	var all []model.Issue
	for page := 1; ; page++ {
		batch, err := c.ListIssues(ctx, org, repo, state, page)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
		if err := sleep(ctx, c.pageDelay); err != nil {
			return nil, err
		}
	}
	return all, nil
}

// ListIssueComments returns the comments on an issue, oldest first.
func (c *Client) ListIssueComments(ctx context.Context, org, repo string, number int) ([]model.Comment, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))

	resp, err := c.api.Get(ctx, fmt.Sprintf("/repos/%s/%s/issues/%d/comments", org, repo, number), q)
	if err != nil {
		return nil, fmt.Errorf("list comments %s/%s#%d: %w", org, repo, number, err)
	}
	var comments []model.Comment
	if err := resp.JSON(&comments); err != nil {
		return nil, fmt.Errorf("decode comments %s/%s#%d: %w", org, repo, number, err)
	}
	return comments, nil
}

// AddLabels attaches labels to an issue.
func (c *Client) AddLabels(ctx context.Context, org, repo string, number int, labels []string) error {
	body := map[string][]string{"labels": labels}
	if _, err := c.api.Post(ctx, fmt.Sprintf("/repos/%s/%s/issues/%d/labels", org, repo, number), body); err != nil {
		return fmt.Errorf("add labels %s/%s#%d: %w", org, repo, number, err)
	}
	return nil
}

// AddComment posts a comment on an issue.
func (c *Client) AddComment(ctx context.Context, org, repo string, number int, text string) error {
	body := map[string]string{"body": text}
	if _, err := c.api.Post(ctx, fmt.Sprintf("/repos/%s/%s/issues/%d/comments", org, repo, number), body); err != nil {
		return fmt.Errorf("add comment %s/%s#%d: %w", org, repo, number, err)
	}
	return nil
}

// CreateLabel creates a repository label. A 422 whose payload mentions
// already_exists is reported as LabelExists rather than an error; all
// other failures (403 on read-only repos, 404 on missing ones) come
// back as errors for the caller to classify.
func (c *Client) CreateLabel(ctx context.Context, org, repo string, label model.Label) (LabelStatus, error) {
	_, err := c.api.Post(ctx, fmt.Sprintf("/repos/%s/%s/labels", org, repo), label)
	if err == nil {
		return LabelCreated, nil
	}
	if httpclient.IsStatus(err, 422) && strings.Contains(string(httpclient.ErrorBody(err)), "already_exists") {
		return LabelExists, nil
	}
	return "", fmt.Errorf("create label %q in %s/%s: %w", label.Name, org, repo, err)
}

// Ping verifies the token by fetching the authenticated user.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.Get(ctx, "/user", nil); err != nil {
		return fmt.Errorf("github ping: %w", err)
	}
	return nil
}

// GetRepo fetches repository metadata, including the default branch and
// the bot's permissions.
func (c *Client) GetRepo(ctx context.Context, org, repo string) (*model.Repository, error) {
	resp, err := c.api.Get(ctx, fmt.Sprintf("/repos/%s/%s", org, repo), nil)
	if err != nil {
		return nil, fmt.Errorf("get repo %s/%s: %w", org, repo, err)
	}
	var r model.Repository
	if err := resp.JSON(&r); err != nil {
		return nil, fmt.Errorf("decode repo %s/%s: %w", org, repo, err)
	}
	return &r, nil
}

// HasPushPermission reports whether the token can push to the repo.
func (c *Client) HasPushPermission(ctx context.Context, org, repo string) (bool, error) {
	r, err := c.GetRepo(ctx, org, repo)
	if err != nil {
		return false, err
	}
	return r.Permissions.Push, nil
}

// ListPulls lists pull requests. head filters by "org:branch" and may
// be empty.
func (c *Client) ListPulls(ctx context.Context, org, repo, state, head string) ([]model.PullRequest, error) {
	q := url.Values{}
	q.Set("state", state)
	if head != "" {
		q.Set("head", head)
	}

	resp, err := c.api.Get(ctx, fmt.Sprintf("/repos/%s/%s/pulls", org, repo), q)
	if err != nil {
		return nil, fmt.Errorf("list pulls %s/%s: %w", org, repo, err)
	}
	var pulls []model.PullRequest
	if err := resp.JSON(&pulls); err != nil {
		return nil, fmt.Errorf("decode pulls %s/%s: %w", org, repo, err)
	}
	return pulls, nil
}

// CreatePull opens a pull request from head into base.
func (c *Client) CreatePull(ctx context.Context, org, repo, title, head, base, body string) (*model.PullRequest, error) {
	payload := map[string]string{
		"title": title,
		"head":  head,
		"base":  base,
		"body":  body,
	}
	resp, err := c.api.Post(ctx, fmt.Sprintf("/repos/%s/%s/pulls", org, repo), payload)
	if err != nil {
		return nil, fmt.Errorf("create pull %s/%s: %w", org, repo, err)
	}
	var pr model.PullRequest
	if err := resp.JSON(&pr); err != nil {
		return nil, fmt.Errorf("decode pull %s/%s: %w", org, repo, err)
	}
	return &pr, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
