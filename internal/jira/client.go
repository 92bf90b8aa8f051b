// Package jira is a client for the Jira REST v2 API used to create
// issues and sync GitHub comments onto them. The production instance
// sits behind mutual TLS, so the client optionally loads a certificate
// pair next to the bearer token.
package jira

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/httpclient"
)

const requestTimeout = 60 * time.Second

// Client talks to a single Jira instance.
type Client struct {
	api     *httpclient.Client
	baseURL string
}

// New builds a client for cfg. When CertPath and KeyPath are both set
// the pair is loaded for mutual TLS; Validate enforces that they are
// set together.
func New(cfg config.JiraConfig) (*Client, error) {
	var transport http.RoundTripper
	if cfg.CertPath != "" && cfg.KeyPath != "" {
		pair, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load jira client certificate: %w", err)
		}
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				Certificates: []tls.Certificate{pair},
				MinVersion:   tls.VersionTLS12,
			},
		}
	}

	return &Client{
		api: httpclient.New(httpclient.Config{
			BaseURL:   cfg.APIURL,
			Auth:      httpclient.BearerAuth{Token: cfg.Token},
			Timeout:   requestTimeout,
			Transport: transport,
			UserAgent: "giji-importer",
		}),
		baseURL: strings.TrimSuffix(cfg.APIURL, "/"),
	}, nil
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
}

type searchResponse struct {
	Total int `json:"total"`
}

// IssueExists probes whether an issue for the GitHub issue number and
// repository was already created in the project. The summary carries
// both markers ("[repo] title ... #N" via the back-reference search),
// which keeps re-runs idempotent even when the local history table is
// empty.
func (c *Client) IssueExists(ctx context.Context, projectKey, repo string, number int) (bool, error) {
	req := searchRequest{
		JQL:        fmt.Sprintf(`project = %s AND summary ~ "#%d" AND summary ~ "%s"`, projectKey, number, repo),
		MaxResults: 1,
		Fields:     []string{"summary"},
	}
	resp, err := c.api.Post(ctx, "/rest/api/2/search", req)
	if err != nil {
		return false, fmt.Errorf("search %s for %s#%d: %w", projectKey, repo, number, err)
	}
	var out searchResponse
	if err := resp.JSON(&out); err != nil {
		return false, fmt.Errorf("decode search response: %w", err)
	}
	return out.Total > 0, nil
}

type createResponse struct {
	Key string `json:"key"`
}

// CreateIssue submits the fields payload and returns the new issue key.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (string, error) {
	resp, err := c.api.Post(ctx, "/rest/api/2/issue", map[string]any{"fields": fields})
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	var out createResponse
	if err := resp.JSON(&out); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if out.Key == "" {
		return "", fmt.Errorf("create issue: empty key in response")
	}
	return out.Key, nil
}

// AddComment appends a comment to an existing issue.
func (c *Client) AddComment(ctx context.Context, issueKey, body string) error {
	payload := map[string]string{"body": body}
	if _, err := c.api.Post(ctx, fmt.Sprintf("/rest/api/2/issue/%s/comment", issueKey), payload); err != nil {
		return fmt.Errorf("comment on %s: %w", issueKey, err)
	}
	return nil
}

// Ping verifies connectivity and authentication.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.Get(ctx, "/rest/api/2/myself", nil); err != nil {
		return fmt.Errorf("jira ping: %w", err)
	}
	return nil
}

// BrowseURL returns the human-facing URL for an issue key.
func (c *Client) BrowseURL(key string) string {
	return c.baseURL + "/browse/" + key
}
