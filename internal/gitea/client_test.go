package gitea

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentelekomcloud-infra/giji/internal/config"
)

const metadataPath = "/repos/infra/otc-metadata-rework/contents/otc_metadata/data/cloud_environments"

// wrapBase64 splits the encoded content with newlines the way the
// Gitea contents API does.
func wrapBase64(raw string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(raw))
	if len(enc) > 8 {
		enc = enc[:8] + "\n" + enc[8:]
	}
	return enc
}

func newTestClient(t *testing.T, files map[string]string) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(metadataPath, func(w http.ResponseWriter, r *http.Request) {
		var entries []contentEntry
		for name := range files {
			entries = append(entries, contentEntry{Name: name, Type: "file"})
		}
		entries = append(entries, contentEntry{Name: "archive", Type: "dir"})
		entries = append(entries, contentEntry{Name: "README.md", Type: "file"})
		json.NewEncoder(w).Encode(entries)
	})
	for name, body := range files {
		mux.HandleFunc(metadataPath+"/"+name, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(fileContent{Content: wrapBase64(body), Encoding: "base64"})
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(config.GiteaConfig{
		BaseURL:      srv.URL,
		MetadataPath: metadataPath,
	})
}

func TestListEnvironmentFiles(t *testing.T) {
	c := newTestClient(t, map[string]string{"eu_de.yaml": "name: eu_de"})

	names, err := c.ListEnvironmentFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"eu_de.yaml"}, names)
}

func TestGetFileContent(t *testing.T) {
	c := newTestClient(t, map[string]string{"eu_de.yaml": "name: eu_de\npublic_org: opentelekomcloud-docs\n"})

	raw, err := c.GetFileContent(context.Background(), "eu_de.yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: eu_de\npublic_org: opentelekomcloud-docs\n", string(raw))
}

func TestAffectedLocations(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"swiss.yaml": "name: swiss\npublic_org: opentelekomcloud-docs-swiss\naffected_locations:\n  - EU-CH2\n",
		"eu_de.yaml": "name: eu_de\npublic_org: opentelekomcloud-docs\naffected_locations:\n  - EU-DE\n  - EU-NL\n",
	})

	locations, err := c.AffectedLocations(context.Background(), "opentelekomcloud-docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"EU-DE", "EU-NL"}, locations)

	locations, err = c.AffectedLocations(context.Background(), "opentelekomcloud-docs-swiss")
	require.NoError(t, err)
	assert.Equal(t, []string{"EU-CH2"}, locations)
}

func TestAffectedLocationsNoMatch(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"eu_de.yaml": "name: eu_de\npublic_org: opentelekomcloud-docs\naffected_locations:\n  - EU-DE\n",
	})

	_, err := c.AffectedLocations(context.Background(), "unknown-org")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoLocations)
	assert.Contains(t, err.Error(), "unknown-org")
}

func TestAffectedLocationsSkipsEmptyLists(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"stub.yaml": "name: stub\npublic_org: opentelekomcloud-docs\naffected_locations: []\n",
	})

	_, err := c.AffectedLocations(context.Background(), "opentelekomcloud-docs")
	assert.ErrorIs(t, err, ErrNoLocations)
}

func TestAffectedLocationsBadYAML(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"broken.yaml": "name: [unclosed\n",
	})

	_, err := c.AffectedLocations(context.Background(), "opentelekomcloud-docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
