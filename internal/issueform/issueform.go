// Package issueform parses GitHub issue form bodies. Forms render as
// Markdown with one "### Label" heading per field, so parsing is a
// matter of slicing the body between headings.
package issueform

import (
	"regexp"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`(?m)^###\s+(.+?)\s*$`)
	checkedRe = regexp.MustCompile(`(?m)^\s*-\s*\[[xX]\]\s*(.+?)\s*$`)
)

// Form is a parsed issue form body.
type Form struct {
	sections []section
}

type section struct {
	heading string
	value   string
}

// Parse slices body into sections, one per "### Label" heading. Bodies
// without headings parse into an empty form; IsForm distinguishes them.
func Parse(body string) *Form {
	matches := headingRe.FindAllStringSubmatchIndex(body, -1)
	f := &Form{}
	for i, m := range matches {
		heading := body[m[2]:m[3]]
		start := m[1]
		end := len(body)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		f.sections = append(f.sections, section{
			heading: heading,
			value:   cleanValue(body[start:end]),
		})
	}
	return f
}

// cleanValue trims a section body and maps the placeholders GitHub
// inserts for unanswered optional fields to the empty string.
func cleanValue(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "_No response_" || v == "None" {
		return ""
	}
	return v
}

// IsForm reports whether the body contained any form sections at all.
// Free-text issues (no template) fail this check and are skipped by the
// profile importers that require structured fields.
func (f *Form) IsForm() bool {
	return len(f.sections) > 0
}

// Value returns the content under the named heading, or "" when the
// field is absent or was left unanswered.
func (f *Form) Value(heading string) string {
	for _, s := range f.sections {
		if strings.EqualFold(s.heading, heading) {
			return s.value
		}
	}
	return ""
}

// Has reports whether the named field is present with a non-empty
// answer.
func (f *Form) Has(heading string) bool {
	return f.Value(heading) != ""
}

// CheckedBoxes returns the labels of the ticked checkboxes under the
// named heading.
func (f *Form) CheckedBoxes(heading string) []string {
	var out []string
	for _, m := range checkedRe.FindAllStringSubmatch(f.Value(heading), -1) {
		out = append(out, m[1])
	}
	return out
}
