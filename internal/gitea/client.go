// Package gitea reads the cloud-environments metadata served by the
// internal Gitea instance. Each environment is a YAML document naming a
// public GitHub organization and the platform locations it affects;
// the importer copies those locations onto every Jira issue it creates.
package gitea

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/httpclient"
)

const requestTimeout = 10 * time.Second

// ErrNoLocations means no environment document matched the requested
// organization. Imports must not proceed without locations, so callers
// treat this as fatal for the organization.
var ErrNoLocations = errors.New("no affected locations found")

// Client reads repository contents through the Gitea contents API.
type Client struct {
	api          *httpclient.Client
	metadataPath string
}

// New builds a client for cfg. The metadata path points at the
// cloud_environments directory inside the otc-metadata repository.
func New(cfg config.GiteaConfig) *Client {
	return &Client{
		api: httpclient.New(httpclient.Config{
			BaseURL:   cfg.BaseURL,
			Timeout:   requestTimeout,
			UserAgent: "giji-importer",
		}),
		metadataPath: strings.Trim(cfg.MetadataPath, "/"),
	}
}

type contentEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type fileContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type environmentDoc struct {
	Name              string   `yaml:"name"`
	PublicOrg         string   `yaml:"public_org"`
	AffectedLocations []string `yaml:"affected_locations"`
}

// ListEnvironmentFiles returns the names of the YAML documents in the
// cloud_environments directory.
func (c *Client) ListEnvironmentFiles(ctx context.Context) ([]string, error) {
	resp, err := c.api.Get(ctx, c.metadataPath, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.metadataPath, err)
	}
	var entries []contentEntry
	if err := resp.JSON(&entries); err != nil {
		return nil, fmt.Errorf("decode directory listing: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type == "file" && strings.HasSuffix(e.Name, ".yaml") {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// GetFileContent fetches and decodes one file from the metadata
// directory. Gitea wraps file bodies in base64 with embedded newlines.
func (c *Client) GetFileContent(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.api.Get(ctx, c.metadataPath+"/"+name, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	var fc fileContent
	if err := resp.JSON(&fc); err != nil {
		return nil, fmt.Errorf("decode content envelope for %s: %w", name, err)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(fc.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode base64 content of %s: %w", name, err)
	}
	return raw, nil
}

// AffectedLocations scans the environment documents for the one whose
// public_org matches org and returns its affected locations. The first
// matching document with a non-empty location list wins.
func (c *Client) AffectedLocations(ctx context.Context, org string) ([]string, error) {
	names, err := c.ListEnvironmentFiles(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		raw, err := c.GetFileContent(ctx, name)
		if err != nil {
			return nil, err
		}
		var doc environmentDoc
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if doc.PublicOrg == org && len(doc.AffectedLocations) > 0 {
			return doc.AffectedLocations, nil
		}
	}
	return nil, fmt.Errorf("%w for organization %s", ErrNoLocations, org)
}
