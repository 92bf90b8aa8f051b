package jira

import (
	"fmt"
	"regexp"

	"github.com/opentelekomcloud-infra/giji/internal/model"
)

var (
	htmlImageRe     = regexp.MustCompile(`<img[^>]+src="([^"]+)"[^>]*>`)
	markdownImageRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
)

// ConvertImagesToWiki rewrites HTML <img> tags and Markdown image
// embeds into Jira wiki image syntax, !url!, so screenshots attached to
// GitHub issues render inside Jira.
func ConvertImagesToWiki(text string) string {
	text = htmlImageRe.ReplaceAllString(text, "!$1!")
	text = markdownImageRe.ReplaceAllString(text, "!$2!")
	return text
}

// FormatComment renders a GitHub comment for posting to Jira, keeping
// the author and date visible since the bot account posts them all.
func FormatComment(c model.Comment) string {
	return fmt.Sprintf("*Comment by %s on %s:*\n\n%s",
		c.User.Login, c.CreatedAt.Format("2006-01-02"), ConvertImagesToWiki(c.Body))
}
