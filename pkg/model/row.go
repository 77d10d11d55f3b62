package model

import "strings"

// Row is the flattened, denormalized view of one requirement used by the
// browse table. Rows exist only for the duration of a browse session.
type Row struct {
	ID          int            `json:"id"`
	Key         string         `json:"key"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Topics      []string       `json:"topics"` // ancestor topic titles, root first
	Path        []string       `json:"path"`   // ancestor topic keys, root first
	Tags        []string       `json:"tags"`
	Comments    []Comment      `json:"comments,omitempty"`
	Extras      map[int]string `json:"extras,omitempty"` // ExtraType id -> content
}

// Breadcrumb joins the topic chain for display.
func (r Row) Breadcrumb() string {
	return strings.Join(r.Topics, " › ")
}

// Extra returns the content projected for the given ExtraType id, or "".
func (r Row) Extra(typeID int) string {
	if r.Extras == nil {
		return ""
	}
	return r.Extras[typeID]
}

// OpenComments counts comments not marked completed.
func (r Row) OpenComments() int {
	n := 0
	for _, c := range r.Comments {
		if !c.Completed {
			n++
		}
	}
	return n
}
