package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/httpclient"
	"github.com/opentelekomcloud-infra/giji/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.GitHubConfig{Token: "test-token", APIURL: srv.URL}, 0)
}

func issuesPage(n, from int) []model.Issue {
	out := make([]model.Issue, n)
	for i := range out {
		out[i] = model.Issue{Number: from + i, Title: fmt.Sprintf("issue %d", from+i)}
	}
	return out
}

func TestListAllIssuesPaginates(t *testing.T) {
	var pages []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo/issues", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "1" {
			json.NewEncoder(w).Encode(issuesPage(100, 1))
			return
		}
		json.NewEncoder(w).Encode(issuesPage(3, 101))
	}))

	issues, err := c.ListAllIssues(context.Background(), "org", "repo", "open")
	require.NoError(t, err)
	assert.Len(t, issues, 103)
	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Equal(t, 103, issues[102].Number)
}

func TestListAllIssuesStopsOnShortPage(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(issuesPage(2, 1))
	}))

	issues, err := c.ListAllIssues(context.Background(), "org", "repo", "open")
	require.NoError(t, err)
	assert.Len(t, issues, 2)
	assert.Equal(t, 1, calls)
}

func TestListIssueComments(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo/issues/7/comments", r.URL.Path)
		json.NewEncoder(w).Encode([]model.Comment{
			{ID: 1, Body: "first", User: model.User{Login: "alice"}},
			{ID: 2, Body: "second", User: model.User{Login: "bob"}},
		})
	}))

	comments, err := c.ListIssueComments(context.Background(), "org", "repo", 7)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "alice", comments[0].User.Login)
}

func TestAddLabels(t *testing.T) {
	var gotBody map[string][]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/org/repo/issues/5/labels", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))

	err := c.AddLabels(context.Background(), "org", "repo", 5, []string{"imported-to-jira", "bulk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"imported-to-jira", "bulk"}, gotBody["labels"])
}

func TestAddComment(t *testing.T) {
	var gotBody map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo/issues/5/comments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.AddComment(context.Background(), "org", "repo", 5, "Imported to Jira: BM-123")
	require.NoError(t, err)
	assert.Equal(t, "Imported to Jira: BM-123", gotBody["body"])
}

func TestCreateLabel(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus LabelStatus
		wantErr    int
	}{
		{"created", http.StatusCreated, `{}`, LabelCreated, 0},
		{"already exists", 422, `{"errors":[{"code":"already_exists"}]}`, LabelExists, 0},
		{"no permission", http.StatusForbidden, `{}`, "", http.StatusForbidden},
		{"repo missing", http.StatusNotFound, `{}`, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var got model.Label
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				assert.Equal(t, "bug", got.Name)
				assert.Equal(t, "d73a4a", got.Color)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			status, err := c.CreateLabel(context.Background(), "org", "repo", model.Label{
				Name:        "bug",
				Color:       "d73a4a",
				Description: "Something isn't working",
			})
			if tt.wantErr != 0 {
				require.Error(t, err)
				assert.True(t, httpclient.IsStatus(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestGetRepo(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo", r.URL.Path)
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(model.Repository{
			Name:          "repo",
			FullName:      "org/repo",
			DefaultBranch: "main",
			Permissions:   model.RepoPermissions{Push: true, Pull: true},
		})
	}))

	repo, err := c.GetRepo(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.Equal(t, "main", repo.DefaultBranch)

	ok, err := c.HasPushPermission(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListPulls(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo/pulls", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "org:add_issue_templates", r.URL.Query().Get("head"))
		json.NewEncoder(w).Encode([]model.PullRequest{{Number: 12, State: "open"}})
	}))

	pulls, err := c.ListPulls(context.Background(), "org", "repo", "open", "org:add_issue_templates")
	require.NoError(t, err)
	require.Len(t, pulls, 1)
	assert.Equal(t, 12, pulls[0].Number)
}

func TestCreatePull(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "add_issue_templates", got["head"])
		assert.Equal(t, "main", got["base"])
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.PullRequest{Number: 3, HTMLURL: "https://github.com/org/repo/pull/3"})
	}))

	pr, err := c.CreatePull(context.Background(), "org", "repo", "Add issue templates", "add_issue_templates", "main", "body")
	require.NoError(t, err)
	assert.Equal(t, 3, pr.Number)
	assert.Equal(t, "https://github.com/org/repo/pull/3", pr.HTMLURL)
}
