package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/reqdb/pkg/model"
)

// DetailMarkdown renders one row as a markdown document: heading, topic
// breadcrumb, tags, description, one section per projected extra and the
// comment threads. Extras are listed in header id order; kinds decides how
// each is laid out.
func DetailMarkdown(r model.Row, headers map[int]string, kinds map[int]model.ExtraKind) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# [%s] %s\n\n", r.Key, r.Title)
	if crumb := r.Breadcrumb(); crumb != "" {
		fmt.Fprintf(&sb, "*%s*\n\n", crumb)
	}
	if len(r.Tags) > 0 {
		tags := make([]string, len(r.Tags))
		for i, t := range r.Tags {
			tags[i] = "`" + t + "`"
		}
		fmt.Fprintf(&sb, "Tags: %s\n\n", strings.Join(tags, " "))
	}
	if d := strings.TrimSpace(r.Description); d != "" {
		sb.WriteString(d)
		sb.WriteString("\n\n")
	}

	for _, id := range sortedIDs(headers) {
		content := strings.TrimSpace(r.Extra(id))
		if content == "" {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", headers[id])
		if kinds[id] == model.ExtraBadges {
			for _, b := range (model.Extra{Content: content}).Badges() {
				fmt.Fprintf(&sb, "- %s\n", b)
			}
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}

	if len(r.Comments) > 0 {
		fmt.Fprintf(&sb, "## Comments (%d open)\n\n", r.OpenComments())
		for _, c := range model.ThreadRoots(r.Comments) {
			writeComment(&sb, r.Comments, c, 0)
		}
	}
	return sb.String()
}

func sortedIDs(headers map[int]string) []int {
	ids := make([]int, 0, len(headers))
	for id := range headers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func writeComment(sb *strings.Builder, all []model.Comment, c model.Comment, depth int) {
	indent := strings.Repeat("  ", depth)
	done := ""
	if c.Completed {
		done = " ✓"
	}
	when := ""
	if c.Created > 0 {
		when = " · " + FormatTimeRel(c.CreatedAt())
	}
	text := strings.Join(strings.Fields(c.Comment), " ")
	fmt.Fprintf(sb, "%s- **%s**%s%s: %s\n", indent, c.AuthorName(), when, done, text)
	for _, reply := range model.Replies(all, c.ID) {
		writeComment(sb, all, reply, depth+1)
	}
	if depth == 0 {
		sb.WriteString("\n")
	}
}

// DetailRenderer turns DetailMarkdown output into terminal text with
// glamour and caches the result per row and width.
type DetailRenderer struct {
	width    int
	renderer *glamour.TermRenderer
	cache    map[int]string
}

// NewDetailRenderer creates a renderer wrapping at width columns.
func NewDetailRenderer(width int) *DetailRenderer {
	d := &DetailRenderer{cache: map[int]string{}}
	d.SetWidth(width)
	return d
}

// SetWidth changes the wrap width and drops cached output.
func (d *DetailRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == d.width && d.renderer != nil {
		return
	}
	d.width = width
	d.cache = map[int]string{}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		d.renderer = nil
		return
	}
	d.renderer = r
}

// Reset drops cached output, e.g. after the tree was reloaded.
func (d *DetailRenderer) Reset() {
	d.cache = map[int]string{}
}

// Render returns the rendered detail for row id. If glamour fails the raw
// markdown is returned.
func (d *DetailRenderer) Render(id int, markdown string) string {
	if out, ok := d.cache[id]; ok {
		return out
	}
	out := markdown
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(markdown); err == nil {
			out = strings.TrimRight(rendered, "\n")
		}
	}
	d.cache[id] = out
	return out
}
