package model

// RepoCategory is one row of the repo_title_category table maintained by
// the documentation pipeline: a repository, the squad that owns it, and
// its human-readable service title.
type RepoCategory struct {
	Repository string `json:"repository"`
	Squad      string `json:"squad"`
	Title      string `json:"title"`
}
