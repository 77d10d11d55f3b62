// Package rows flattens a catalogue's topic tree into table rows.
//
// The walk is depth-first pre-order over declared slice order. With
// RequirementsFirst a topic's own requirements are emitted before any of its
// children; ChildrenFirst emits them after the children. Either way every
// requirement yields exactly one row and the order is deterministic.
package rows

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/metrics"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

// Order selects where a topic's requirements go relative to its children.
type Order int

const (
	RequirementsFirst Order = iota
	ChildrenFirst
)

func (o Order) String() string {
	if o == ChildrenFirst {
		return "children-first"
	}
	return "requirements-first"
}

// ParseOrder maps the config spelling to an Order. Empty means the default.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "requirements-first":
		return RequirementsFirst, nil
	case "children-first":
		return ChildrenFirst, nil
	default:
		return RequirementsFirst, fmt.Errorf("unknown flatten order %q", s)
	}
}

// Options configures Flatten.
type Options struct {
	// Headers maps ExtraType id to column header. Each row gets the content of
	// the first extra of every listed type.
	Headers map[int]string
	Order   Order
}

// Result holds the rows and the label indexes collected while flattening.
type Result struct {
	Rows   []model.Row
	Tags   *Index
	Topics *Index
}

// FromCatalogue returns the synthetic root whose children are c's top-level
// topics.
func FromCatalogue(c *model.Catalogue) *model.Topic {
	return c.Root()
}

// Flatten walks the tree under root. root itself is synthetic: its title is
// not part of any row's topic chain.
func Flatten(root *model.Topic, opts Options) Result {
	defer metrics.Timer(metrics.Flatten)()
	start := time.Now()

	res := Result{Tags: NewIndex(), Topics: NewIndex()}
	f := flattener{
		tags:    res.Tags,
		topics:  res.Topics,
		out:     &res.Rows,
		headers: opts.Headers,
		order:   opts.Order,
	}
	f.walkRoot(root)

	debug.LogTiming(fmt.Sprintf("Flatten(%d rows)", len(res.Rows)), time.Since(start))
	return res
}

// FlattenCatalogue is Flatten(FromCatalogue(c), opts).
func FlattenCatalogue(c *model.Catalogue, opts Options) Result {
	return Flatten(FromCatalogue(c), opts)
}

// FlattenInto appends the rows under root to out and the tag names it meets
// to tags. Either accumulator may already hold data from earlier calls.
func FlattenInto(root *model.Topic, tags *Index, out *[]model.Row, headers map[int]string, order Order) {
	if out == nil {
		return
	}
	f := flattener{tags: tags, out: out, headers: headers, order: order}
	f.walkRoot(root)
}

type flattener struct {
	tags    *Index
	topics  *Index
	out     *[]model.Row
	headers map[int]string
	order   Order
}

func (f *flattener) walkRoot(root *model.Topic) {
	if root == nil {
		return
	}
	f.walk(root, nil, nil)
}

func (f *flattener) walk(t *model.Topic, titles, keys []string) {
	if f.order == RequirementsFirst {
		f.emit(t, titles, keys)
	}
	for _, child := range t.Children {
		if child == nil {
			continue
		}
		// Full slice expressions keep siblings from sharing a backing array.
		childTitles := append(titles[:len(titles):len(titles)], child.Title)
		childKeys := append(keys[:len(keys):len(keys)], child.Key)
		f.walk(child, childTitles, childKeys)
	}
	if f.order == ChildrenFirst {
		f.emit(t, titles, keys)
	}
}

func (f *flattener) emit(t *model.Topic, titles, keys []string) {
	for _, r := range t.Requirements {
		if r == nil {
			continue
		}
		row := model.Row{
			ID:          r.ID,
			Key:         r.Key,
			Title:       r.Title,
			Description: r.Description,
			Topics:      append([]string(nil), titles...),
			Path:        append([]string(nil), keys...),
			Tags:        r.TagNames(),
		}
		if len(r.Comments) > 0 {
			row.Comments = make([]model.Comment, len(r.Comments))
			for i, c := range r.Comments {
				row.Comments[i] = c.Clone()
			}
		}
		if len(f.headers) > 0 {
			row.Extras = make(map[int]string, len(f.headers))
			for id := range f.headers {
				row.Extras[id] = firstExtra(r, id)
			}
		}

		if f.tags != nil {
			for _, name := range row.Tags {
				f.tags.Add(name)
			}
		}
		if f.topics != nil {
			for _, title := range row.Topics {
				f.topics.Add(title)
			}
		}
		*f.out = append(*f.out, row)
	}
}

// firstExtra returns the content of r's first extra of type typeID, or "".
func firstExtra(r *model.Requirement, typeID int) string {
	for _, e := range r.Extras {
		if e.ExtraTypeID == typeID || (e.ExtraTypeID == 0 && e.ExtraType != nil && e.ExtraType.ID == typeID) {
			return e.Content
		}
	}
	return ""
}
