package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/issueform"
	"github.com/opentelekomcloud-infra/giji/internal/model"
)

// Jira enforces a hard limit on description length.
const maxDescriptionLen = 32767

// Demand option IDs for the effort, tier and pays-into selects. These
// are stable across the Jira instance, unlike the field IDs.
const (
	demandEffortID   = "15104"
	demandTierID     = "14637"
	demandPaysIntoID = "15204"
)

// Form field labels as rendered by the issue templates.
const (
	fieldDocumentURL     = "Document URL"
	fieldBugDescription  = "Description"
	fieldSummary         = "Summary"
	fieldFeatureDesc     = "Feature Description"
	fieldUsersImpact     = "User's Impact"
	fieldAdditionalCtx   = "Additional Context"
	fieldDocsRequested   = "Documents Requested"
	titlePrefixBug       = "[BUG]"
	titlePrefixDemand    = "[DEMAND]"
	labelBug             = "bug"
	labelDemand          = "demand"
	labelGitHubImport    = "github-import"
	labelBulkImport      = "bulk-import"
	labelBulk            = "bulk"
	bulkUsersImpactValue = "Not specified - bulk imported from unlabeled issue"
)

var (
	// ErrNotTemplate means the issue body is not an issue form and the
	// profile cannot extract its required fields.
	ErrNotTemplate = errors.New("issue body is not an issue form")

	// ErrComponentNotMapped means the repository has no master
	// component mapping and the profile does not allow a fallback.
	ErrComponentNotMapped = errors.New("repository has no master component mapping")

	// ErrUnknownProfile is returned for profile names outside
	// bulk/bug/demand.
	ErrUnknownProfile = errors.New("unknown import profile")
)

// IssueContext carries per-issue inputs shared by the payload builders.
type IssueContext struct {
	Org       string
	Repo      string
	Locations []string
}

// Profile defines how one import flavor selects issues and turns them
// into Jira payloads.
type Profile interface {
	// Name is the profile identifier recorded on runs and history rows.
	Name() string

	// ProjectKey is the Jira project the profile creates issues in.
	ProjectKey() string

	// Selects reports whether an open, non-PR, not-yet-imported issue
	// qualifies for this profile.
	Selects(issue model.Issue) bool

	// Fields builds the Jira field payload. ErrNotTemplate marks the
	// issue as skippable; any other error fails it.
	Fields(issue model.Issue, ic IssueContext) (map[string]any, error)

	// ImportedLabels are added to the GitHub issue after a successful
	// import (or when the issue turns out to exist in Jira already).
	ImportedLabels() []string

	// SyncComments reports whether GitHub comments are copied onto the
	// created Jira issue.
	SyncComments() bool
}

// Profiles builds the registry of the three import flavors from the
// configuration.
func Profiles(cfg *config.AppConfig) map[string]Profile {
	base := baseProfile{
		jira:          cfg.Jira,
		fields:        cfg.Fields,
		importedLabel: cfg.Importer.ImportedLabel,
	}
	return map[string]Profile{
		"bulk":   &bulkProfile{base},
		"bug":    &bugProfile{base},
		"demand": &demandProfile{base},
	}
}

// ProfileFor returns the named profile from the registry.
func ProfileFor(cfg *config.AppConfig, name string) (Profile, error) {
	p, ok := Profiles(cfg)[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

type baseProfile struct {
	jira          config.JiraConfig
	fields        config.FieldConfig
	importedLabel string
}

// componentFor resolves the master component key for a repository.
func (b baseProfile) componentFor(repo string) (string, error) {
	if comp, ok := b.fields.Components[repo]; ok {
		return comp, nil
	}
	return "", fmt.Errorf("%w: %s", ErrComponentNotMapped, repo)
}

func (b baseProfile) locationsPayload(locations []string) []map[string]string {
	out := make([]map[string]string, 0, len(locations))
	for _, loc := range locations {
		out = append(out, map[string]string{"value": loc})
	}
	return out
}

func (b baseProfile) testCategoryPayload(name string) map[string]string {
	return map[string]string{"id": b.fields.TestCategoryIDs[name]}
}

// issueSummary renders the Jira summary. The repository prefix and the
// issue number (via the back-reference search) keep summaries unique
// across repositories.
func issueSummary(repo string, issue model.Issue) string {
	title := strings.TrimSpace(issue.Title)
	if title == "" {
		title = fmt.Sprintf("GitHub Issue #%d", issue.Number)
	}
	return fmt.Sprintf("[%s] %s", repo, title)
}

// truncateDescription caps the description at Jira's character limit.
// The limit counts characters, not bytes, so multi-byte text must not
// be cut mid-rune.
func truncateDescription(s string) string {
	if utf8.RuneCountInString(s) <= maxDescriptionLen {
		return s
	}
	return string([]rune(s)[:maxDescriptionLen])
}

// testCategoryFromURL maps a documentation URL onto a test category.
// User manual pages go to UAT, API references and everything else to QA.
func testCategoryFromURL(docURL string) string {
	u := strings.ToLower(docURL)
	switch {
	case strings.Contains(u, "/umn/") || u == "umn":
		return "UAT"
	case strings.Contains(u, "/api-ref/"):
		return "QA"
	default:
		return "QA"
	}
}

// bulkProfile imports every unlabeled issue. It backfills repositories
// whose issues predate the issue templates, hence the fixed users
// impact text and the extra bulk marker label.
type bulkProfile struct {
	baseProfile
}

func (p *bulkProfile) Name() string       { return "bulk" }
func (p *bulkProfile) ProjectKey() string { return p.jira.ProjectKey }
func (p *bulkProfile) SyncComments() bool { return false }

func (p *bulkProfile) Selects(issue model.Issue) bool {
	return len(issue.Labels) == 0
}

func (p *bulkProfile) ImportedLabels() []string {
	return []string{p.importedLabel, labelBulk}
}

func (p *bulkProfile) Fields(issue model.Issue, ic IssueContext) (map[string]any, error) {
	comp, err := p.componentFor(ic.Repo)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(issue.Body)
	if body == "" {
		body = "No description provided"
	}

	var desc strings.Builder
	desc.WriteString(body)
	fmt.Fprintf(&desc, "\n\n*Bulk imported from [GitHub Issue #%d](%s) in repository %s*",
		issue.Number, issue.HTMLURL, ic.Repo)

	return map[string]any{
		"project":                  map[string]string{"key": p.jira.ProjectKey},
		"summary":                  issueSummary(ic.Repo, issue),
		"description":              truncateDescription(desc.String()),
		"issuetype":                map[string]string{"name": p.jira.IssueType},
		"priority":                 map[string]string{"name": "Medium"},
		"labels":                   []string{labelBulkImport, labelGitHubImport, ic.Repo},
		p.fields.MasterComponent:   []map[string]string{{"key": comp}},
		p.fields.UsersImpact:       bulkUsersImpactValue,
		p.fields.BugType:           []map[string]string{{"value": "Documentation"}},
		p.fields.AffectedAreas:     []map[string]string{{"value": "Production"}},
		p.fields.TestCategory:      p.testCategoryPayload("QA"),
		p.fields.AffectedLocations: p.locationsPayload(ic.Locations),
	}, nil
}

// bugProfile imports issues filed through the bug report form.
type bugProfile struct {
	baseProfile
}

func (p *bugProfile) Name() string       { return "bug" }
func (p *bugProfile) ProjectKey() string { return p.jira.ProjectKey }
func (p *bugProfile) SyncComments() bool { return true }

func (p *bugProfile) Selects(issue model.Issue) bool {
	return issue.HasLabel(labelBug) || issue.TitleHasPrefix(titlePrefixBug)
}

func (p *bugProfile) ImportedLabels() []string {
	return []string{p.importedLabel}
}

func (p *bugProfile) Fields(issue model.Issue, ic IssueContext) (map[string]any, error) {
	form := issueform.Parse(issue.Body)
	if !form.IsForm() {
		return nil, ErrNotTemplate
	}

	comp, err := p.componentFor(ic.Repo)
	if err != nil {
		return nil, err
	}
	docURL := form.Value(fieldDocumentURL)

	body := form.Value(fieldBugDescription)
	if body == "" {
		body = issue.Body
	}

	var desc strings.Builder
	desc.WriteString(body)
	if docURL != "" {
		fmt.Fprintf(&desc, "\n\n**Document URL:**\n%s", docURL)
	}
	if ctx := form.Value(fieldAdditionalCtx); ctx != "" {
		fmt.Fprintf(&desc, "\n\n**Additional Context:**\n%s", ctx)
	}
	fmt.Fprintf(&desc, "\n\n*Imported from [GitHub Issue #%d](%s) in repository %s*",
		issue.Number, issue.HTMLURL, ic.Repo)

	fields := map[string]any{
		"project":                  map[string]string{"key": p.jira.ProjectKey},
		"summary":                  issueSummary(ic.Repo, issue),
		"description":              truncateDescription(desc.String()),
		"issuetype":                map[string]string{"name": p.jira.IssueType},
		"priority":                 map[string]string{"name": "Medium"},
		"labels":                   []string{labelBug, labelGitHubImport, ic.Repo},
		p.fields.MasterComponent:   []map[string]string{{"key": comp}},
		p.fields.BugType:           []map[string]string{{"value": "Documentation"}},
		p.fields.AffectedAreas:     []map[string]string{{"value": "Production"}},
		p.fields.TestCategory:      p.testCategoryPayload(testCategoryFromURL(docURL)),
		p.fields.AffectedLocations: p.locationsPayload(ic.Locations),
	}
	if impact := form.Value(fieldUsersImpact); impact != "" {
		fields[p.fields.UsersImpact] = impact
	}
	return fields, nil
}

// demandProfile imports documentation requests into the demand project.
type demandProfile struct {
	baseProfile
}

func (p *demandProfile) Name() string       { return "demand" }
func (p *demandProfile) ProjectKey() string { return p.jira.DemandProjectKey }
func (p *demandProfile) SyncComments() bool { return true }

func (p *demandProfile) Selects(issue model.Issue) bool {
	return issue.HasLabel(labelDemand) || issue.TitleHasPrefix(titlePrefixDemand)
}

func (p *demandProfile) ImportedLabels() []string {
	return []string{p.importedLabel}
}

func (p *demandProfile) Fields(issue model.Issue, ic IssueContext) (map[string]any, error) {
	form := issueform.Parse(issue.Body)
	if !form.IsForm() {
		return nil, ErrNotTemplate
	}

	// Demands fall back to the default component so requests against
	// unmapped repositories still land in the demand board.
	comp, err := p.componentFor(ic.Repo)
	if err != nil {
		comp = p.fields.DefaultComponent
	}

	body := form.Value(fieldFeatureDesc)
	if body == "" {
		body = form.Value(fieldSummary)
	}
	if body == "" {
		body = issue.Body
	}

	var desc strings.Builder
	desc.WriteString(body)
	if docs := form.CheckedBoxes(fieldDocsRequested); len(docs) > 0 {
		fmt.Fprintf(&desc, "\n\n**Documents Requested:**\n%s", strings.Join(docs, ", "))
	}
	if ctx := form.Value(fieldAdditionalCtx); ctx != "" {
		fmt.Fprintf(&desc, "\n\n**Additional Context:**\n%s", ctx)
	}
	fmt.Fprintf(&desc, "\n\n*Imported from [GitHub Issue #%d](%s) in repository %s*",
		issue.Number, issue.HTMLURL, ic.Repo)

	return map[string]any{
		"project":                  map[string]string{"key": p.jira.DemandProjectKey},
		"summary":                  issueSummary(ic.Repo, issue),
		"description":              truncateDescription(desc.String()),
		"issuetype":                map[string]string{"id": p.jira.DemandIssueTypeID},
		"priority":                 map[string]string{"name": "Medium"},
		"labels":                   []string{labelDemand, labelGitHubImport, ic.Repo},
		p.fields.MasterComponent:   []map[string]string{{"key": comp}},
		p.fields.EstimatedEffort:   map[string]string{"id": demandEffortID},
		p.fields.Tier:              map[string]string{"id": demandTierID},
		p.fields.PaysInto:          []map[string]string{{"id": demandPaysIntoID}},
		p.fields.AffectedLocations: p.locationsPayload(ic.Locations),
	}, nil
}
