package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/reqdb/pkg/model"
)

// SourceDiff represents differences between two catalogue versions
type SourceDiff struct {
	// SourceA is the name of the first (older) version
	SourceA string
	// SourceB is the name of the second (newer) version
	SourceB string
	// MissingInA contains requirement keys present in B but not in A
	MissingInA []string
	// MissingInB contains requirement keys present in A but not in B
	MissingInB []string
	// Changed lists field differences for requirements present in both
	Changed []FieldDifference
	// CountA is the number of requirements in A
	CountA int
	// CountB is the number of requirements in B
	CountB int
}

// FieldDifference is one changed field of one requirement
type FieldDifference struct {
	Key    string `json:"key"`
	Field  string `json:"field"`
	ValueA string `json:"value_a"`
	ValueB string `json:"value_b"`
}

// HasChanges returns true if the versions differ
func (d SourceDiff) HasChanges() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.Changed) > 0
}

// Short is a one-line summary for status bars, e.g. "+2 −1 ~3".
func (d SourceDiff) Short() string {
	if !d.HasChanges() {
		return "no changes"
	}
	return fmt.Sprintf("+%d −%d ~%d", len(d.MissingInA), len(d.MissingInB), len(d.changedKeys()))
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("Sources match (%d requirements each)", d.CountA)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Differences between %s and %s:\n", d.SourceA, d.SourceB)

	if d.CountA != d.CountB {
		fmt.Fprintf(&sb, "  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	if len(d.MissingInA) > 0 {
		fmt.Fprintf(&sb, "  - %d requirements added\n", len(d.MissingInA))
		listKeys(&sb, d.MissingInA)
	}
	if len(d.MissingInB) > 0 {
		fmt.Fprintf(&sb, "  - %d requirements removed\n", len(d.MissingInB))
		listKeys(&sb, d.MissingInB)
	}
	if len(d.Changed) > 0 {
		fmt.Fprintf(&sb, "  - %d requirements changed\n", len(d.changedKeys()))
		if len(d.Changed) <= 5 {
			for _, c := range d.Changed {
				fmt.Fprintf(&sb, "    - %s: %s\n", c.Key, c.Field)
			}
		}
	}
	return sb.String()
}

func listKeys(sb *strings.Builder, keys []string) {
	if len(keys) > 5 {
		return
	}
	for _, k := range keys {
		fmt.Fprintf(sb, "    - %s\n", k)
	}
}

func (d SourceDiff) changedKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, c := range d.Changed {
		if !seen[c.Key] {
			seen[c.Key] = true
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// CompareFields specifies which fields to compare: title, description,
	// tags, topic, extras (empty = all)
	CompareFields []string
	// MaxDifferences limits the number of differences tracked (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{MaxDifferences: 100}
}

func (o DiffOptions) compares(field string) bool {
	if len(o.CompareFields) == 0 {
		return true
	}
	for _, f := range o.CompareFields {
		if f == field {
			return true
		}
	}
	return false
}

func (o DiffOptions) full(n int) bool {
	return o.MaxDifferences > 0 && n >= o.MaxDifferences
}

type snapshot struct {
	req   *model.Requirement
	topic string
}

func index(c *model.Catalogue) map[string]snapshot {
	out := make(map[string]snapshot)
	c.Walk(func(t *model.Topic, _ int) bool {
		for _, r := range t.Requirements {
			if r != nil {
				out[r.Key] = snapshot{req: r, topic: t.Key}
			}
		}
		return true
	})
	return out
}

// DetectChanges compares two catalogues by requirement key. Results are
// sorted by key.
func DetectChanges(a, b *model.Catalogue, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	diff := SourceDiff{SourceA: sourceA, SourceB: sourceB}

	mapA := index(a)
	mapB := index(b)
	diff.CountA = len(mapA)
	diff.CountB = len(mapB)

	for _, key := range sortedKeys(mapA) {
		if _, ok := mapB[key]; !ok && !opts.full(len(diff.MissingInB)) {
			diff.MissingInB = append(diff.MissingInB, key)
		}
	}

	for _, key := range sortedKeys(mapB) {
		sb := mapB[key]
		sa, ok := mapA[key]
		if !ok {
			if !opts.full(len(diff.MissingInA)) {
				diff.MissingInA = append(diff.MissingInA, key)
			}
			continue
		}
		for _, fd := range compareRequirement(key, sa, sb, opts) {
			if opts.full(len(diff.Changed)) {
				break
			}
			diff.Changed = append(diff.Changed, fd)
		}
	}
	return diff
}

func compareRequirement(key string, a, b snapshot, opts DiffOptions) []FieldDifference {
	var out []FieldDifference
	add := func(field, va, vb string) {
		if va != vb && opts.compares(field) {
			out = append(out, FieldDifference{Key: key, Field: field, ValueA: va, ValueB: vb})
		}
	}
	add("title", a.req.Title, b.req.Title)
	add("description", a.req.Description, b.req.Description)
	add("tags", strings.Join(a.req.TagNames(), ", "), strings.Join(b.req.TagNames(), ", "))
	add("topic", a.topic, b.topic)
	add("extras", extrasDigest(a.req), extrasDigest(b.req))
	return out
}

func extrasDigest(r *model.Requirement) string {
	parts := make([]string, 0, len(r.Extras))
	for _, e := range r.Extras {
		parts = append(parts, fmt.Sprintf("%d=%s", e.ExtraTypeID, e.Content))
	}
	return strings.Join(parts, "\x1f")
}

func sortedKeys(m map[string]snapshot) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CompareSources loads and compares two data sources
func CompareSources(ctx context.Context, sourceA, sourceB DataSource, opts DiffOptions, load LoadOptions) (*SourceDiff, error) {
	treeA, err := Load(ctx, sourceA, load)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}
	treeB, err := Load(ctx, sourceB, load)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}
	diff := DetectChanges(treeA.Catalogue, treeB.Catalogue, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}
