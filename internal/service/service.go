// Package service contains the use cases of the importer: selecting
// issues, building Jira payloads, creating labels and distributing
// issue templates. Persistence and API access come in through the
// interfaces below so every flow is testable with mocks.
package service

import (
	"context"
	"time"

	"github.com/opentelekomcloud-infra/giji/internal/github"
	"github.com/opentelekomcloud-infra/giji/internal/model"
)

// GitHubAPI is the slice of the GitHub client the services consume.
type GitHubAPI interface {
	ListAllIssues(ctx context.Context, org, repo, state string) ([]model.Issue, error)
	ListIssueComments(ctx context.Context, org, repo string, number int) ([]model.Comment, error)
	AddLabels(ctx context.Context, org, repo string, number int, labels []string) error
	AddComment(ctx context.Context, org, repo string, number int, text string) error
	CreateLabel(ctx context.Context, org, repo string, label model.Label) (github.LabelStatus, error)
	GetRepo(ctx context.Context, org, repo string) (*model.Repository, error)
	HasPushPermission(ctx context.Context, org, repo string) (bool, error)
	ListPulls(ctx context.Context, org, repo, state, head string) ([]model.PullRequest, error)
	CreatePull(ctx context.Context, org, repo, title, head, base, body string) (*model.PullRequest, error)
}

// JiraAPI is the slice of the Jira client the import engine consumes.
type JiraAPI interface {
	IssueExists(ctx context.Context, projectKey, repo string, number int) (bool, error)
	CreateIssue(ctx context.Context, fields map[string]any) (string, error)
	AddComment(ctx context.Context, issueKey, body string) error
	BrowseURL(key string) string
}

// LocationsAPI resolves the affected platform locations for a GitHub
// organization from the cloud-environments metadata.
type LocationsAPI interface {
	AffectedLocations(ctx context.Context, org string) ([]string, error)
}

// Archiver stores run snapshots. The import engine treats it as
// optional; a nil Archiver disables snapshots.
type Archiver interface {
	PutRun(ctx context.Context, snap *model.RunSnapshot) (string, error)
}

// sleep pauses for d unless the context ends first.
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
