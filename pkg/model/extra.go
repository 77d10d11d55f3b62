package model

import (
	"fmt"
	"strings"
)

// ExtraKind is the content type of an ExtraType.
type ExtraKind int

const (
	ExtraPlaintext ExtraKind = 1
	ExtraMarkdown  ExtraKind = 2
	ExtraBadges    ExtraKind = 3
)

// String returns the lowercase kind name.
func (k ExtraKind) String() string {
	switch k {
	case ExtraPlaintext:
		return "plaintext"
	case ExtraMarkdown:
		return "markdown"
	case ExtraBadges:
		return "badges"
	default:
		return fmt.Sprintf("extra(%d)", int(k))
	}
}

// IsValid reports whether k is one of the known kinds.
func (k ExtraKind) IsValid() bool {
	return k >= ExtraPlaintext && k <= ExtraBadges
}

// ExtraType describes a column of auxiliary requirement content.
type ExtraType struct {
	ID          int       `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	ExtraType   ExtraKind `json:"extraType" yaml:"extraType"`
}

// Extra is one piece of typed content attached to a requirement.
type Extra struct {
	ID            int        `json:"id" yaml:"id"`
	Content       string     `json:"content" yaml:"content"`
	ExtraTypeID   int        `json:"extraTypeId" yaml:"extraTypeId"`
	RequirementID int        `json:"requirementId" yaml:"requirementId"`
	ExtraType     *ExtraType `json:"extraType,omitempty" yaml:"extraType,omitempty"`
}

// Badges splits semicolon-delimited content into trimmed, non-empty badges.
func (e Extra) Badges() []string {
	parts := strings.Split(e.Content, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ContentKind returns the content kind, or 0 when the type isn't embedded.
func (e Extra) ContentKind() ExtraKind {
	if e.ExtraType == nil {
		return 0
	}
	return e.ExtraType.ExtraType
}

// Heading returns the title used when the extra is rendered as a section.
func (e Extra) Heading() string {
	if e.ExtraType != nil && e.ExtraType.Title != "" {
		return e.ExtraType.Title
	}
	return fmt.Sprintf("Extra %d", e.ExtraTypeID)
}
