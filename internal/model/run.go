package model

import "time"

// Import outcome statuses recorded per issue.
const (
	ImportStatusImported = "imported"
	ImportStatusSkipped  = "skipped"
	ImportStatusFailed   = "failed"
)

// Skip reasons recorded alongside ImportStatusSkipped.
const (
	SkipReasonAlreadyImported = "already-imported"
	SkipReasonAlreadyInJira   = "already-in-jira"
	SkipReasonDryRun          = "dry-run"
)

// ImportRun is one execution of an import profile over a repository set.
type ImportRun struct {
	ID          string     `json:"id"`
	Profile     string     `json:"profile"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Repos       int        `json:"repos"`
	Imported    int        `json:"imported"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	SnapshotKey string     `json:"snapshot_key,omitempty"`
}

// IssueImport is the recorded outcome for a single issue within a run.
type IssueImport struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	Org         string    `json:"org"`
	Repo        string    `json:"repo"`
	IssueNumber int       `json:"issue_number"`
	IssueTitle  string    `json:"issue_title"`
	JiraKey     string    `json:"jira_key,omitempty"`
	Profile     string    `json:"profile"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RepoSummary tallies one repository's outcomes within a run.
// Scanned counts every issue returned by the API, Selected those matching
// the profile after pull requests are dropped.
type RepoSummary struct {
	Org      string `json:"org"`
	Repo     string `json:"repo"`
	Scanned  int    `json:"scanned"`
	Selected int    `json:"selected"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Error    string `json:"error,omitempty"`
}

// RunSnapshot is the JSON document archived to object storage after a run.
type RunSnapshot struct {
	Run    ImportRun     `json:"run"`
	Repos  []RepoSummary `json:"repos"`
	Issues []IssueImport `json:"issues"`
}
