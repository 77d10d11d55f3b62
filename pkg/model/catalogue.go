// Package model defines the ReqDB entities as they arrive from the backend
// and the derived Row used by the browse table.
package model

import (
	"fmt"
)

// Catalogue is the root entity being browsed or exported.
type Catalogue struct {
	ID          int      `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Topics      []*Topic `json:"topics" yaml:"topics"`
	Tags        []Tag    `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// CatalogueRef is the short form of a catalogue embedded in a topic.
type CatalogueRef struct {
	ID    int    `json:"id" yaml:"id"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Topic groups requirements and child topics.
type Topic struct {
	ID           int            `json:"id" yaml:"id"`
	Key          string         `json:"key" yaml:"key"`
	Title        string         `json:"title" yaml:"title"`
	Description  string         `json:"description" yaml:"description"`
	ParentID     *int           `json:"parentId" yaml:"parentId"`
	Parent       *Topic         `json:"parent,omitempty" yaml:"-"`
	Children     []*Topic       `json:"children" yaml:"children"`
	Requirements []*Requirement `json:"requirements" yaml:"requirements"`
	Catalogues   []CatalogueRef `json:"catalogues,omitempty" yaml:"catalogues,omitempty"`
}

// Requirement is the unit that gets tagged, commented on and exported.
type Requirement struct {
	ID          int       `json:"id" yaml:"id"`
	Key         string    `json:"key" yaml:"key"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	ParentID    int       `json:"parentId" yaml:"parentId"`
	Tags        []Tag     `json:"tags" yaml:"tags"`
	Extras      []Extra   `json:"extras" yaml:"extras"`
	Comments    []Comment `json:"comments,omitempty" yaml:"comments,omitempty"`
	Visible     bool      `json:"visible" yaml:"visible"`
}

// Tag labels requirements and catalogues.
type Tag struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// TagNames returns the requirement's tag names in declared order.
func (r *Requirement) TagNames() []string {
	if len(r.Tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Clone returns a deep copy of the requirement. Slices are copied so the
// result can be modified without touching the original tree.
func (r *Requirement) Clone() *Requirement {
	if r == nil {
		return nil
	}
	c := *r
	if r.Tags != nil {
		c.Tags = append([]Tag(nil), r.Tags...)
	}
	if r.Extras != nil {
		c.Extras = make([]Extra, len(r.Extras))
		for i, e := range r.Extras {
			c.Extras[i] = e
			if e.ExtraType != nil {
				et := *e.ExtraType
				c.Extras[i].ExtraType = &et
			}
		}
	}
	if r.Comments != nil {
		c.Comments = make([]Comment, len(r.Comments))
		for i, cm := range r.Comments {
			c.Comments[i] = cm.Clone()
		}
	}
	return &c
}

// Walk visits every topic under the catalogue in pre-order. Returning false
// from fn stops descent into that topic's children.
func (c *Catalogue) Walk(fn func(t *Topic, depth int) bool) {
	if c == nil {
		return
	}
	for _, t := range c.Topics {
		walkTopic(t, 1, fn)
	}
}

func walkTopic(t *Topic, depth int, fn func(*Topic, int) bool) {
	if t == nil {
		return
	}
	if !fn(t, depth) {
		return
	}
	for _, child := range t.Children {
		walkTopic(child, depth+1, fn)
	}
}

// RequirementCount returns the number of requirements in the whole tree.
func (c *Catalogue) RequirementCount() int {
	n := 0
	c.Walk(func(t *Topic, _ int) bool {
		for _, r := range t.Requirements {
			if r != nil {
				n++
			}
		}
		return true
	})
	return n
}

// RequirementIDs returns every requirement id in pre-order, requirements of a
// topic before those of its children.
func (c *Catalogue) RequirementIDs() []int {
	var ids []int
	c.Walk(func(t *Topic, _ int) bool {
		for _, r := range t.Requirements {
			if r != nil {
				ids = append(ids, r.ID)
			}
		}
		return true
	})
	return ids
}

// Validate checks structural invariants the flattener and projector rely on:
// no nil topics, and requirement ids unique across the tree.
func (c *Catalogue) Validate() error {
	if c == nil {
		return fmt.Errorf("catalogue is nil")
	}
	seen := make(map[int]string)
	var err error
	c.Walk(func(t *Topic, depth int) bool {
		if err != nil {
			return false
		}
		for i, child := range t.Children {
			if child == nil {
				err = fmt.Errorf("topic %q: child %d is nil", t.Key, i)
				return false
			}
		}
		for _, r := range t.Requirements {
			if r == nil {
				continue
			}
			if prev, ok := seen[r.ID]; ok {
				err = fmt.Errorf("duplicate requirement id %d (topics %q and %q)", r.ID, prev, t.Key)
				return false
			}
			seen[r.ID] = t.Key
		}
		return true
	})
	if err != nil {
		return err
	}
	for i, t := range c.Topics {
		if t == nil {
			return fmt.Errorf("catalogue %d: topic %d is nil", c.ID, i)
		}
	}
	return nil
}

// Root returns a synthetic topic whose children are the catalogue's top-level
// topics. The flattener starts from it.
func (c *Catalogue) Root() *Topic {
	if c == nil {
		return &Topic{}
	}
	return &Topic{ID: 0, Title: c.Title, Children: c.Topics}
}
