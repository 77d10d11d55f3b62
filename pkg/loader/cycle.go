package loader

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/reqdb/pkg/model"
)

// ErrCycle is returned when a parent assignment would make a topic its own
// ancestor.
var ErrCycle = errors.New("topic parent would create a cycle")

// ErrTopicNotFound is returned when a topic id is not part of the catalogue.
var ErrTopicNotFound = errors.New("topic not found")

// CheckParent reports whether topicID may be moved under newParent (nil
// means top level). The topic forest with the move applied is built as a
// directed parent→child graph and must still sort topologically.
func CheckParent(c *model.Catalogue, topicID int, newParent *int) error {
	parents := parentMap(c)
	if _, ok := parents[topicID]; !ok {
		return fmt.Errorf("%w: %d", ErrTopicNotFound, topicID)
	}
	if newParent == nil {
		return nil
	}
	if _, ok := parents[*newParent]; !ok {
		return fmt.Errorf("%w: %d", ErrTopicNotFound, *newParent)
	}
	if *newParent == topicID {
		return fmt.Errorf("%w: topic %d cannot be its own parent", ErrCycle, topicID)
	}

	g := simple.NewDirectedGraph()
	for id := range parents {
		g.AddNode(simple.Node(int64(id)))
	}
	for child, parent := range parents {
		if child == topicID {
			parent = newParent
		}
		if parent == nil {
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(int64(*parent)), g.Node(int64(child))))
	}

	if _, err := topo.Sort(g); err != nil {
		return fmt.Errorf("%w: moving topic %d under %d", ErrCycle, topicID, *newParent)
	}
	return nil
}

// ParentCandidates returns the topics that topicID may be moved under, in
// tree pre-order.
func ParentCandidates(c *model.Catalogue, topicID int) []*model.Topic {
	var out []*model.Topic
	c.Walk(func(t *model.Topic, _ int) bool {
		if t.ID == topicID {
			// Descendants can never be candidates.
			return false
		}
		id := t.ID
		if CheckParent(c, topicID, &id) == nil {
			out = append(out, t)
		}
		return true
	})
	return out
}

// parentMap maps every topic id to its parent id (nil for top-level topics)
// using the nesting of the tree, not the possibly stale ParentID fields.
func parentMap(c *model.Catalogue) map[int]*int {
	parents := make(map[int]*int)
	if c == nil {
		return parents
	}
	for _, t := range c.Topics {
		if t != nil {
			parents[t.ID] = nil
		}
	}
	c.Walk(func(t *model.Topic, _ int) bool {
		for _, child := range t.Children {
			if child == nil {
				continue
			}
			id := t.ID
			parents[child.ID] = &id
		}
		return true
	})
	return parents
}
