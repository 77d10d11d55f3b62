// Package browse implements the filter, sort and selection state behind the
// browse table.
//
// State is a value. Every update function returns a new State and leaves its
// receiver untouched, so a State can be kept as an undo point or handed to a
// concurrent export without copying.
package browse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/reqdb/pkg/rows"
)

// Field names a searchable row field.
type Field int

const (
	FieldKey Field = iota
	FieldTitle
	FieldDescription
	FieldTags
	FieldTopics
)

var fieldNames = []string{"key", "title", "description", "tags", "topics"}

func (f Field) String() string {
	if int(f) >= 0 && int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField accepts the lowercase field name.
func ParseField(s string) (Field, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for i, name := range fieldNames {
		if name == needle {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown search field %q", s)
}

// ParseFields parses a list of field names, rejecting unknown ones.
func ParseFields(names []string) ([]Field, error) {
	out := make([]Field, 0, len(names))
	for _, n := range names {
		f, err := ParseField(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// DefaultSearchFields are searched when no fields are configured.
func DefaultSearchFields() []Field {
	return []Field{FieldKey, FieldTitle, FieldDescription}
}

// Selection is the set of active labels for one filter dimension. When All is
// set the dimension does not filter at all.
type Selection struct {
	All    bool
	Labels map[string]struct{}
}

// SelectAll returns a selection holding every label of ix with All set.
func SelectAll(ix *rows.Index) Selection {
	labels := ix.Labels()
	s := Selection{All: true, Labels: make(map[string]struct{}, len(labels))}
	for _, l := range labels {
		s.Labels[l] = struct{}{}
	}
	return s
}

// SelectNone returns an empty selection that matches no row.
func SelectNone() Selection {
	return Selection{Labels: map[string]struct{}{}}
}

// Toggle flips label. Toggling clears All, so the remaining labels start to
// filter.
func (s Selection) Toggle(label string) Selection {
	out := Selection{Labels: make(map[string]struct{}, len(s.Labels)+1)}
	for l := range s.Labels {
		out.Labels[l] = struct{}{}
	}
	if _, ok := out.Labels[label]; ok {
		delete(out.Labels, label)
	} else {
		out.Labels[label] = struct{}{}
	}
	return out
}

// Has reports whether label is selected (explicitly or through All).
func (s Selection) Has(label string) bool {
	if s.All {
		return true
	}
	_, ok := s.Labels[label]
	return ok
}

// Count returns the number of explicitly selected labels.
func (s Selection) Count() int {
	return len(s.Labels)
}

// Sorted returns the selected labels in ascending order.
func (s Selection) Sorted() []string {
	out := make([]string, 0, len(s.Labels))
	for l := range s.Labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// matchesAny reports whether any of labels is selected.
func (s Selection) matchesAny(labels []string) bool {
	if s.All {
		return true
	}
	for _, l := range labels {
		if _, ok := s.Labels[l]; ok {
			return true
		}
	}
	return false
}

// State is the complete browse-table state.
type State struct {
	Search       string
	SearchFields []Field
	Tags         Selection
	Topics       Selection
	SortByKey    bool
	Selected     map[int]struct{}
}

// NewState returns the initial state for a freshly flattened result: empty
// search, every tag and topic selected, nothing marked for export.
func NewState(res rows.Result) State {
	return State{
		SearchFields: DefaultSearchFields(),
		Tags:         SelectAll(res.Tags),
		Topics:       SelectAll(res.Topics),
		Selected:     map[int]struct{}{},
	}
}

// WithSearch returns s with a new search string.
func (s State) WithSearch(q string) State {
	s.Search = q
	return s
}

// WithSearchFields returns s searching the given fields.
func (s State) WithSearchFields(fields ...Field) State {
	s.SearchFields = append([]Field(nil), fields...)
	return s
}

// WithTags returns s with a new tag selection.
func (s State) WithTags(sel Selection) State {
	s.Tags = sel
	return s
}

// WithTopics returns s with a new topic selection.
func (s State) WithTopics(sel Selection) State {
	s.Topics = sel
	return s
}

// ToggleTag returns s with label flipped in the tag selection.
func (s State) ToggleTag(label string) State {
	s.Tags = s.Tags.Toggle(label)
	return s
}

// ToggleTopic returns s with label flipped in the topic selection.
func (s State) ToggleTopic(label string) State {
	s.Topics = s.Topics.Toggle(label)
	return s
}

// WithSortByKey returns s with key sorting switched on or off.
func (s State) WithSortByKey(on bool) State {
	s.SortByKey = on
	return s
}

// ToggleRow flips the export mark on row id.
func (s State) ToggleRow(id int) State {
	sel := s.copySelected()
	if _, ok := sel[id]; ok {
		delete(sel, id)
	} else {
		sel[id] = struct{}{}
	}
	s.Selected = sel
	return s
}

// SelectRows marks every id for export.
func (s State) SelectRows(ids ...int) State {
	sel := s.copySelected()
	for _, id := range ids {
		sel[id] = struct{}{}
	}
	s.Selected = sel
	return s
}

// ClearSelection unmarks every row.
func (s State) ClearSelection() State {
	s.Selected = map[int]struct{}{}
	return s
}

// IsSelected reports whether id is marked for export.
func (s State) IsSelected(id int) bool {
	_, ok := s.Selected[id]
	return ok
}

// SelectedIDs returns the marked ids in ascending order.
func (s State) SelectedIDs() []int {
	ids := make([]int, 0, len(s.Selected))
	for id := range s.Selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SelectedSet returns a copy of the marked ids as a set.
func (s State) SelectedSet() map[int]struct{} {
	return s.copySelected()
}

func (s State) copySelected() map[int]struct{} {
	out := make(map[int]struct{}, len(s.Selected)+1)
	for id := range s.Selected {
		out[id] = struct{}{}
	}
	return out
}
