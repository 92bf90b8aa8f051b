package model

import (
	"strings"
	"time"
)

// Issue represents a GitHub issue as returned by the REST v3 issues API.
// The issues endpoints also return pull requests; those carry a non-nil
// PullRequest field and are filtered by callers.
type Issue struct {
	Number      int               `json:"number"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	State       string            `json:"state"`
	HTMLURL     string            `json:"html_url"`
	Labels      []Label           `json:"labels"`
	User        User              `json:"user"`
	PullRequest *PullRequestLinks `json:"pull_request,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// PullRequestLinks is present on issues that are actually pull requests.
type PullRequestLinks struct {
	URL string `json:"url"`
}

// IsPullRequest reports whether the issue is a pull request in disguise.
func (i Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// HasLabel reports whether the issue carries the named label,
// case-insensitively.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

// HasAnyLabel reports whether the issue carries at least one of the names.
func (i Issue) HasAnyLabel(names ...string) bool {
	for _, n := range names {
		if i.HasLabel(n) {
			return true
		}
	}
	return false
}

// TitleHasPrefix reports whether the issue title starts with the given
// marker, case-insensitively ("[BUG] broken link" matches "[bug]").
func (i Issue) TitleHasPrefix(prefix string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(i.Title)), strings.ToUpper(prefix))
}

// Comment is a GitHub issue comment.
type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository is the subset of the GitHub repository document the importer
// reads: identity plus the caller's permissions on it.
type Repository struct {
	Name          string          `json:"name"`
	FullName      string          `json:"full_name"`
	DefaultBranch string          `json:"default_branch"`
	Archived      bool            `json:"archived"`
	Permissions   RepoPermissions `json:"permissions"`
}

// RepoPermissions is the authenticated user's access to a repository.
type RepoPermissions struct {
	Admin bool `json:"admin"`
	Push  bool `json:"push"`
	Pull  bool `json:"pull"`
}

// PullRequest is the subset of the pull request payload the template
// distributor needs.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}
