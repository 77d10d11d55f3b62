package export

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/reqdb/pkg/model"
)

// GenerateMarkdown renders the pruned catalogue as a heading hierarchy.
//
// The catalogue title is the H1. A topic at depth d (top level is 1) gets a
// heading of d+1 hashes, followed by its description, its child topics and
// then its requirements one level deeper. Each requirement lists its tags,
// its description and its extras, each extra as a further sub-heading.
// Heading depth is not capped at six.
func GenerateMarkdown(c *ExportCatalogue) (string, error) {
	if c == nil {
		return "", fmt.Errorf("generate markdown: nil catalogue")
	}
	var sb strings.Builder

	writeHeading(&sb, 1, c.Title)
	writeParagraph(&sb, c.Description)

	for _, t := range c.Topics {
		writeTopic(&sb, t, 1)
	}
	return sb.String(), nil
}

func writeTopic(sb *strings.Builder, t *ExportTopic, depth int) {
	writeHeading(sb, depth+1, bracketed(t.Key, t.Title))
	writeParagraph(sb, t.Description)

	for _, child := range t.Children {
		writeTopic(sb, child, depth+1)
	}
	for _, r := range t.Requirements {
		writeRequirement(sb, r, depth+2)
	}
}

func writeRequirement(sb *strings.Builder, r *model.Requirement, level int) {
	writeHeading(sb, level, bracketed(r.Key, r.Title))
	if names := r.TagNames(); len(names) > 0 {
		writeParagraph(sb, "Tags: "+strings.Join(names, ", "))
	}
	writeParagraph(sb, r.Description)

	for _, e := range r.Extras {
		writeHeading(sb, level+1, e.Heading())
		writeParagraph(sb, e.Content)
	}
}

func writeHeading(sb *strings.Builder, level int, text string) {
	sb.WriteString(strings.Repeat("#", level))
	sb.WriteByte(' ')
	sb.WriteString(text)
	sb.WriteString("\n\n")
}

func writeParagraph(sb *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	sb.WriteString(text)
	sb.WriteString("\n\n")
}

// bracketed renders "[key] title". The brackets are literal text, not a
// link.
func bracketed(key, title string) string {
	return "[" + key + "] " + title
}
