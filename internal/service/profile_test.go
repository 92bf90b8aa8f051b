package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/model"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Jira: config.JiraConfig{
			ProjectKey:        "BM",
			IssueType:         "Bug",
			DemandProjectKey:  "OTCPR",
			DemandIssueTypeID: "11001",
		},
		Importer: config.ImporterConfig{ImportedLabel: "imported-to-jira"},
		Fields: config.FieldConfig{
			MasterComponent:   "customfield_17001",
			UsersImpact:       "customfield_24700",
			AffectedLocations: "customfield_10244",
			TestCategory:      "customfield_20100",
			BugType:           "customfield_20101",
			AffectedAreas:     "customfield_10218",
			EstimatedEffort:   "customfield_15700",
			Tier:              "customfield_15237",
			PaysInto:          "customfield_16000",
			TestCategoryIDs:   map[string]string{"QA": "17600", "UAT": "17601", "Security": "17602"},
			Components:        map[string]string{"dedicated-host": "OCH-1027707"},
			DefaultComponent:  "OCH-1027707",
		},
	}
}

func testContext() IssueContext {
	return IssueContext{Org: "opentelekomcloud-docs", Repo: "dedicated-host", Locations: []string{"EU-DE", "EU-NL"}}
}

func bugFormBody() string {
	return strings.Join([]string{
		"### User's Impact",
		"Users cannot find the right page.",
		"### Document URL",
		"https://docs.otc.t-systems.com/dedicated-host/umn/overview.html",
		"### Description",
		"The overview chapter links to a removed section.",
		"### Additional Context",
		"_No response_",
	}, "\n")
}

func demandFormBody() string {
	return strings.Join([]string{
		"### Summary",
		"Need DeH quota documentation",
		"### Feature Description",
		"Please document the quota increase process.",
		"### Documents Requested",
		"- [x] User Guide",
		"- [ ] API Reference",
		"- [X] FAQ",
	}, "\n")
}

func TestProfileForUnknownName(t *testing.T) {
	_, err := ProfileFor(testConfig(), "nope")
	require.ErrorIs(t, err, ErrUnknownProfile)
}

func TestProfileSelectors(t *testing.T) {
	profiles := Profiles(testConfig())

	tests := []struct {
		name    string
		profile string
		issue   model.Issue
		want    bool
	}{
		{"bulk selects unlabeled", "bulk", model.Issue{Title: "x"}, true},
		{"bulk rejects labeled", "bulk", model.Issue{Labels: []model.Label{{Name: "anything"}}}, false},
		{"bug selects label", "bug", model.Issue{Labels: []model.Label{{Name: "Bug"}}}, true},
		{"bug selects title prefix", "bug", model.Issue{Title: "[bug] broken link"}, true},
		{"bug rejects plain issue", "bug", model.Issue{Title: "broken link"}, false},
		{"demand selects label", "demand", model.Issue{Labels: []model.Label{{Name: "demand"}}}, true},
		{"demand selects title prefix", "demand", model.Issue{Title: "[DEMAND] new guide"}, true},
		{"demand rejects bug label", "demand", model.Issue{Labels: []model.Label{{Name: "bug"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, profiles[tt.profile].Selects(tt.issue))
		})
	}
}

func TestBulkProfileFields(t *testing.T) {
	p := Profiles(testConfig())["bulk"]
	issue := model.Issue{Number: 42, Title: "broken diagram", Body: "the diagram 404s", HTMLURL: "https://github.com/o/r/issues/42"}

	fields, err := p.Fields(issue, testContext())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"key": "BM"}, fields["project"])
	assert.Equal(t, "[dedicated-host] broken diagram", fields["summary"])
	assert.Equal(t, map[string]string{"name": "Bug"}, fields["issuetype"])
	assert.Equal(t, map[string]string{"name": "Medium"}, fields["priority"])
	assert.Equal(t, []string{"bulk-import", "github-import", "dedicated-host"}, fields["labels"])
	assert.Equal(t, []map[string]string{{"key": "OCH-1027707"}}, fields["customfield_17001"])
	assert.Equal(t, bulkUsersImpactValue, fields["customfield_24700"])
	assert.Equal(t, []map[string]string{{"value": "EU-DE"}, {"value": "EU-NL"}}, fields["customfield_10244"])
	assert.Equal(t, map[string]string{"id": "17600"}, fields["customfield_20100"])

	desc := fields["description"].(string)
	assert.Contains(t, desc, "the diagram 404s")
	assert.Contains(t, desc, "Bulk imported from [GitHub Issue #42]")
	assert.Equal(t, []string{"imported-to-jira", "bulk"}, p.ImportedLabels())
}

func TestBulkProfileEmptyBodyFallback(t *testing.T) {
	p := Profiles(testConfig())["bulk"]
	issue := model.Issue{Number: 43, Title: "untitled problem", Body: "  \n", HTMLURL: "https://github.com/o/r/issues/43"}

	fields, err := p.Fields(issue, testContext())
	require.NoError(t, err)

	desc := fields["description"].(string)
	assert.True(t, strings.HasPrefix(desc, "No description provided"))
}

func TestBulkProfileUnmappedComponent(t *testing.T) {
	p := Profiles(testConfig())["bulk"]
	ic := testContext()
	ic.Repo = "unmapped-service"

	_, err := p.Fields(model.Issue{Number: 1}, ic)
	require.ErrorIs(t, err, ErrComponentNotMapped)
}

func TestBugProfileFields(t *testing.T) {
	p := Profiles(testConfig())["bug"]
	issue := model.Issue{Number: 7, Title: "[BUG] dead link", Body: bugFormBody(), HTMLURL: "https://github.com/o/r/issues/7"}

	fields, err := p.Fields(issue, testContext())
	require.NoError(t, err)

	assert.Equal(t, []string{"bug", "github-import", "dedicated-host"}, fields["labels"])
	assert.Equal(t, map[string]string{"name": "Medium"}, fields["priority"])
	// The document URL points at a user manual page, so the test
	// category resolves to UAT.
	assert.Equal(t, map[string]string{"id": "17601"}, fields["customfield_20100"])
	assert.Equal(t, "Users cannot find the right page.", fields["customfield_24700"])

	desc := fields["description"].(string)
	assert.Contains(t, desc, "**Document URL:**")
	// "_No response_" collapses to empty, so no Additional Context block.
	assert.NotContains(t, desc, "**Additional Context:**")
}

func TestBugProfileRejectsFreeText(t *testing.T) {
	p := Profiles(testConfig())["bug"]
	issue := model.Issue{Number: 7, Title: "[BUG] dead link", Body: "just some text"}

	_, err := p.Fields(issue, testContext())
	require.ErrorIs(t, err, ErrNotTemplate)
}

func TestBugProfileImpactOmittedWhenAbsent(t *testing.T) {
	p := Profiles(testConfig())["bug"]
	body := "### Description\nsomething broke\n### Document URL\nhttps://docs.example.com/dedicated-host/api-ref/calls.html"
	issue := model.Issue{Number: 8, Title: "[BUG] x", Body: body}

	fields, err := p.Fields(issue, testContext())
	require.NoError(t, err)
	_, present := fields["customfield_24700"]
	assert.False(t, present)
	assert.Equal(t, map[string]string{"id": "17600"}, fields["customfield_20100"], "api-ref URL maps to QA")
}

func TestDemandProfileFields(t *testing.T) {
	p := Profiles(testConfig())["demand"]
	issue := model.Issue{Number: 11, Title: "[DEMAND] quota docs", Body: demandFormBody(), HTMLURL: "https://github.com/o/r/issues/11"}

	fields, err := p.Fields(issue, testContext())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"key": "OTCPR"}, fields["project"])
	assert.Equal(t, map[string]string{"id": "11001"}, fields["issuetype"])
	assert.Equal(t, map[string]string{"name": "Medium"}, fields["priority"])
	assert.Equal(t, map[string]string{"id": demandEffortID}, fields["customfield_15700"])
	assert.Equal(t, map[string]string{"id": demandTierID}, fields["customfield_15237"])
	assert.Equal(t, []map[string]string{{"id": demandPaysIntoID}}, fields["customfield_16000"])

	desc := fields["description"].(string)
	assert.Contains(t, desc, "**Documents Requested:**\nUser Guide, FAQ")
}

func TestDemandProfileFallsBackOnUnmappedComponent(t *testing.T) {
	p := Profiles(testConfig())["demand"]
	ic := testContext()
	ic.Repo = "unmapped-service"
	issue := model.Issue{Number: 12, Title: "[DEMAND] y", Body: demandFormBody()}

	fields, err := p.Fields(issue, ic)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"key": "OCH-1027707"}}, fields["customfield_17001"])
}

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("x", maxDescriptionLen+100)
	assert.Len(t, truncateDescription(long), maxDescriptionLen)
	assert.Equal(t, "short", truncateDescription("short"))
}

// The limit counts characters; a multi-byte rune at the boundary must
// not be split into invalid UTF-8.
func TestTruncateDescriptionMultiByte(t *testing.T) {
	long := strings.Repeat("ä", maxDescriptionLen+1)
	got := truncateDescription(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxDescriptionLen, utf8.RuneCountInString(got))
}

func TestTestCategoryFromURL(t *testing.T) {
	assert.Equal(t, "UAT", testCategoryFromURL("https://docs.example.com/x/umn/page.html"))
	assert.Equal(t, "UAT", testCategoryFromURL("umn"))
	assert.Equal(t, "QA", testCategoryFromURL("https://docs.example.com/x/api-ref/page.html"))
	assert.Equal(t, "QA", testCategoryFromURL("https://example.com/other"))
	assert.Equal(t, "QA", testCategoryFromURL(""))
}

func TestIssueSummaryEmptyTitle(t *testing.T) {
	got := issueSummary("dedicated-host", model.Issue{Number: 9})
	assert.Equal(t, "[dedicated-host] GitHub Issue #9", got)
}
