package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/reqdb/pkg/model"
)

// AssertRowCount verifies the expected number of rows.
func AssertRowCount(t *testing.T, rows []model.Row, expected int) {
	t.Helper()
	if len(rows) != expected {
		t.Errorf("expected %d rows, got %d", expected, len(rows))
	}
}

// AssertNoDuplicateIDs verifies all row ids are unique.
func AssertNoDuplicateIDs(t *testing.T, rows []model.Row) {
	t.Helper()
	seen := make(map[int]bool)
	for _, r := range rows {
		if seen[r.ID] {
			t.Errorf("duplicate row id: %d", r.ID)
		}
		seen[r.ID] = true
	}
}

// AssertRowKeys verifies the exact row order by key.
func AssertRowKeys(t *testing.T, rows []model.Row, keys ...string) {
	t.Helper()
	got := RowKeys(rows)
	if strings.Join(got, ",") != strings.Join(keys, ",") {
		t.Errorf("expected rows %v, got %v", keys, got)
	}
}

// AssertSameIDs verifies two id lists hold the same set, ignoring order.
func AssertSameIDs(t *testing.T, expected, actual []int) {
	t.Helper()
	e := append([]int(nil), expected...)
	a := append([]int(nil), actual...)
	sort.Ints(e)
	sort.Ints(a)
	if len(e) != len(a) {
		t.Errorf("expected %d ids, got %d (%v vs %v)", len(e), len(a), e, a)
		return
	}
	for i := range e {
		if e[i] != a[i] {
			t.Errorf("id sets differ: %v vs %v", e, a)
			return
		}
	}
}

// RowKeys returns the keys of rows in order.
func RowKeys(rows []model.Row) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	return keys
}

// RowIDs returns the ids of rows in order.
func RowIDs(rows []model.Row) []int {
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

// GoldenFile compares output against a checked-in file.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()
	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) == actual {
		return
	}
	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// WriteCatalogueFile writes c as indented JSON to dir/name and returns the
// path.
func WriteCatalogueFile(t *testing.T, dir, name string, c *model.Catalogue) string {
	t.Helper()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal catalogue: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write catalogue: %v", err)
	}
	return path
}

// FindRequirement returns the requirement with the given id, or nil.
func FindRequirement(c *model.Catalogue, id int) *model.Requirement {
	var found *model.Requirement
	c.Walk(func(t *model.Topic, _ int) bool {
		for _, r := range t.Requirements {
			if r != nil && r.ID == id {
				found = r
				return false
			}
		}
		return found == nil
	})
	return found
}
