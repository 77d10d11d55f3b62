package browse

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vanderheijden86/reqdb/pkg/metrics"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

// collator is not safe for concurrent use, so sorts share it under a lock.
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English)
)

// Visible returns the rows passing search, tag and topic filters. Flatten
// order is kept unless SortByKey is set, in which case rows are stably sorted
// by key with an English collator. rows is never modified.
func Visible(all []model.Row, s State) []model.Row {
	defer metrics.Timer(metrics.Filter)()

	needle := strings.ToLower(s.Search)
	fields := s.SearchFields
	if len(fields) == 0 {
		fields = DefaultSearchFields()
	}

	out := make([]model.Row, 0, len(all))
	for _, r := range all {
		if !matchesSearch(r, needle, fields) {
			continue
		}
		if !s.Tags.matchesAny(r.Tags) {
			continue
		}
		if !s.Topics.matchesAny(r.Topics) {
			continue
		}
		out = append(out, r)
	}

	if s.SortByKey {
		SortByKey(out)
	}
	return out
}

// SortByKey stably sorts rows in place by key, locale-aware.
func SortByKey(rs []model.Row) {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	sort.SliceStable(rs, func(i, j int) bool {
		return collator.CompareString(rs[i].Key, rs[j].Key) < 0
	})
}

// SelectVisible returns s with every row of visible marked for export.
func (s State) SelectVisible(visible []model.Row) State {
	ids := make([]int, len(visible))
	for i, r := range visible {
		ids[i] = r.ID
	}
	return s.SelectRows(ids...)
}

func matchesSearch(r model.Row, needle string, fields []Field) bool {
	if needle == "" {
		return true
	}
	for _, f := range fields {
		switch f {
		case FieldKey:
			if containsFold(r.Key, needle) {
				return true
			}
		case FieldTitle:
			if containsFold(r.Title, needle) {
				return true
			}
		case FieldDescription:
			if containsFold(r.Description, needle) {
				return true
			}
		case FieldTags:
			for _, t := range r.Tags {
				if containsFold(t, needle) {
					return true
				}
			}
		case FieldTopics:
			for _, t := range r.Topics {
				if containsFold(t, needle) {
					return true
				}
			}
		}
	}
	return false
}

// containsFold reports whether lowerNeedle occurs in s, ignoring case.
func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}
