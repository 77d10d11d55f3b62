package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned by ParseEntityKind for unrecognized names.
var ErrUnknownKind = errors.New("unknown entity kind")

// EntityKind identifies an editable backend entity. Each kind maps to its
// REST collection so editors dispatch on the kind instead of page names.
type EntityKind int

const (
	KindCatalogue EntityKind = iota + 1
	KindTopic
	KindRequirement
	KindTag
	KindExtraType
	KindExtraEntry
	KindUser
	KindComment
)

var kindNames = map[EntityKind]string{
	KindCatalogue:   "catalogue",
	KindTopic:       "topic",
	KindRequirement: "requirement",
	KindTag:         "tag",
	KindExtraType:   "extraType",
	KindExtraEntry:  "extraEntry",
	KindUser:        "user",
	KindComment:     "comment",
}

var kindPaths = map[EntityKind]string{
	KindCatalogue:   "catalogues",
	KindTopic:       "topics",
	KindRequirement: "requirements",
	KindTag:         "tags",
	KindExtraType:   "extraTypes",
	KindExtraEntry:  "extraEntries",
	KindUser:        "users",
	KindComment:     "comments",
}

// AllKinds lists every kind in declaration order.
func AllKinds() []EntityKind {
	return []EntityKind{
		KindCatalogue, KindTopic, KindRequirement, KindTag,
		KindExtraType, KindExtraEntry, KindUser, KindComment,
	}
}

func (k EntityKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Path returns the REST collection path for the kind.
func (k EntityKind) Path() string {
	return kindPaths[k]
}

// ParseEntityKind accepts the kind name, its collection path, or a plural
// form, case-insensitively.
func ParseEntityKind(s string) (EntityKind, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, k := range AllKinds() {
		if strings.ToLower(kindNames[k]) == needle ||
			strings.ToLower(kindPaths[k]) == needle {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Entity is implemented by every editable model type.
type Entity interface {
	Kind() EntityKind
	EntityID() int
}

func (c *Catalogue) Kind() EntityKind   { return KindCatalogue }
func (c *Catalogue) EntityID() int      { return c.ID }
func (t *Topic) Kind() EntityKind       { return KindTopic }
func (t *Topic) EntityID() int          { return t.ID }
func (r *Requirement) Kind() EntityKind { return KindRequirement }
func (r *Requirement) EntityID() int    { return r.ID }
func (t *Tag) Kind() EntityKind         { return KindTag }
func (t *Tag) EntityID() int            { return t.ID }
func (e *ExtraType) Kind() EntityKind   { return KindExtraType }
func (e *ExtraType) EntityID() int      { return e.ID }
func (e *Extra) Kind() EntityKind       { return KindExtraEntry }
func (e *Extra) EntityID() int          { return e.ID }
func (c *Comment) Kind() EntityKind     { return KindComment }
func (c *Comment) EntityID() int        { return c.ID }
