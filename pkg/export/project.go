// Package export prunes a catalogue to the selected requirements and renders
// the result as CSV, JSON, YAML, Markdown or SQLite.
package export

import (
	"github.com/vanderheijden86/reqdb/pkg/metrics"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

// ExportCatalogue is the pruned catalogue written by the JSON, YAML,
// Markdown and SQLite serializers.
type ExportCatalogue struct {
	ID          int            `json:"id" yaml:"id"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description" yaml:"description"`
	Topics      []*ExportTopic `json:"topics" yaml:"topics"`
}

// ExportTopic holds only the whitelisted topic fields. Everything else on
// model.Topic (parent back-pointer, catalogue refs) is dropped.
type ExportTopic struct {
	ID           int                  `json:"id" yaml:"id"`
	Key          string               `json:"key" yaml:"key"`
	Title        string               `json:"title" yaml:"title"`
	Description  string               `json:"description" yaml:"description"`
	ParentID     *int                 `json:"parentId" yaml:"parentId"`
	Children     []*ExportTopic       `json:"children" yaml:"children"`
	Requirements []*model.Requirement `json:"requirements" yaml:"requirements"`
}

// IDSet builds a selection set from ids.
func IDSet(ids ...int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Project returns a pruned copy of topic holding only the selected
// requirements and the descendants that contain some. It returns nil when
// nothing under topic is selected. topic is never modified.
func Project(topic *model.Topic, selected map[int]struct{}) *ExportTopic {
	if topic == nil {
		return nil
	}
	reqs := filterRequirements(topic.Requirements, selected)
	children := make([]*ExportTopic, 0, len(topic.Children))
	for _, c := range topic.Children {
		if p := Project(c, selected); p != nil {
			children = append(children, p)
		}
	}
	if len(reqs) == 0 && len(children) == 0 {
		return nil
	}
	return &ExportTopic{
		ID:           topic.ID,
		Key:          topic.Key,
		Title:        topic.Title,
		Description:  topic.Description,
		ParentID:     copyIntPtr(topic.ParentID),
		Children:     children,
		Requirements: reqs,
	}
}

// Prune applies the same projection to an already exported topic, so
// Prune(Project(t, s), s) equals Project(t, s).
func Prune(topic *ExportTopic, selected map[int]struct{}) *ExportTopic {
	if topic == nil {
		return nil
	}
	reqs := filterRequirements(topic.Requirements, selected)
	children := make([]*ExportTopic, 0, len(topic.Children))
	for _, c := range topic.Children {
		if p := Prune(c, selected); p != nil {
			children = append(children, p)
		}
	}
	if len(reqs) == 0 && len(children) == 0 {
		return nil
	}
	return &ExportTopic{
		ID:           topic.ID,
		Key:          topic.Key,
		Title:        topic.Title,
		Description:  topic.Description,
		ParentID:     copyIntPtr(topic.ParentID),
		Children:     children,
		Requirements: reqs,
	}
}

// ProjectCatalogue projects every top-level topic of c. An empty selection
// yields a catalogue with no topics.
func ProjectCatalogue(c *model.Catalogue, selected map[int]struct{}) *ExportCatalogue {
	defer metrics.Timer(metrics.Project)()

	out := &ExportCatalogue{Topics: []*ExportTopic{}}
	if c == nil {
		return out
	}
	out.ID = c.ID
	out.Title = c.Title
	out.Description = c.Description
	for _, t := range c.Topics {
		if p := Project(t, selected); p != nil {
			out.Topics = append(out.Topics, p)
		}
	}
	return out
}

// PruneCatalogue re-projects an exported catalogue.
func PruneCatalogue(c *ExportCatalogue, selected map[int]struct{}) *ExportCatalogue {
	out := &ExportCatalogue{ID: c.ID, Title: c.Title, Description: c.Description, Topics: []*ExportTopic{}}
	for _, t := range c.Topics {
		if p := Prune(t, selected); p != nil {
			out.Topics = append(out.Topics, p)
		}
	}
	return out
}

// RequirementCount returns the number of requirements in the pruned tree.
func (c *ExportCatalogue) RequirementCount() int {
	n := 0
	c.Walk(func(t *ExportTopic, _ int) {
		n += len(t.Requirements)
	})
	return n
}

// Walk visits every topic in pre-order; top-level topics have depth 1.
func (c *ExportCatalogue) Walk(fn func(t *ExportTopic, depth int)) {
	var visit func(t *ExportTopic, depth int)
	visit = func(t *ExportTopic, depth int) {
		fn(t, depth)
		for _, child := range t.Children {
			visit(child, depth+1)
		}
	}
	for _, t := range c.Topics {
		visit(t, 1)
	}
}

func filterRequirements(in []*model.Requirement, selected map[int]struct{}) []*model.Requirement {
	out := make([]*model.Requirement, 0, len(in))
	for _, r := range in {
		if r == nil {
			continue
		}
		if _, ok := selected[r.ID]; ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
