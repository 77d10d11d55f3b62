package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/reqdb/pkg/testutil"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"cat.json", FormatJSON},
		{"cat.JSON", FormatJSON},
		{"cat.yaml", FormatYAML},
		{"cat.yml", FormatYAML},
		{"cat.txt", FormatUnknown},
		{"cat", FormatUnknown},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParseCatalogue_JSON(t *testing.T) {
	input := `{"id": 1, "title": "Cat", "description": "", "topics": [
		{"id": 10, "key": "A", "title": "A", "children": [
			{"id": 11, "key": "A.1", "title": "A1", "children": [], "requirements": [
				{"id": 100, "key": "R1", "title": "r", "tags": []}
			]}
		], "requirements": []}
	]}`

	cat, err := ParseCatalogue(strings.NewReader(input), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	child := cat.Topics[0].Children[0]
	if child.ParentID == nil || *child.ParentID != 10 {
		t.Errorf("expected child parentId 10, got %v", child.ParentID)
	}
	if child.Requirements[0].ParentID != 11 {
		t.Errorf("expected requirement parentId 11, got %d", child.Requirements[0].ParentID)
	}
}

func TestParseCatalogue_Envelope(t *testing.T) {
	input := `{"status": 200, "data": {"id": 4, "title": "Wrapped", "topics": []}}`
	cat, err := ParseCatalogue(strings.NewReader(input), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.ID != 4 || cat.Title != "Wrapped" {
		t.Errorf("envelope not unwrapped: %+v", cat)
	}
}

func TestParseCatalogue_BOM(t *testing.T) {
	input := "\xEF\xBB\xBF" + `{"id": 1, "title": "BOM", "topics": []}`
	cat, err := ParseCatalogue(strings.NewReader(input), FormatJSON)
	if err != nil {
		t.Fatalf("BOM should be stripped: %v", err)
	}
	if cat.Title != "BOM" {
		t.Errorf("unexpected title %q", cat.Title)
	}
}

func TestParseCatalogue_YAML(t *testing.T) {
	input := `
id: 2
title: YAML catalogue
topics:
  - id: 1
    key: A
    title: Topic A
    requirements:
      - id: 5
        key: R5
        title: Five
        tags:
          - id: 1
            name: urgent
`
	cat, err := ParseCatalogue(strings.NewReader(input), FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cat.RequirementIDs(); len(got) != 1 || got[0] != 5 {
		t.Errorf("unexpected requirement ids %v", got)
	}
}

func TestParseCatalogue_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		want   string
	}{
		{"empty", "   ", FormatJSON, "empty"},
		{"malformed", "{not json", FormatJSON, "invalid catalogue JSON"},
		{"duplicate ids", `{"id":1,"topics":[
			{"id":1,"key":"A","requirements":[{"id":9,"key":"X"}]},
			{"id":2,"key":"B","requirements":[{"id":9,"key":"Y"}]}]}`, FormatJSON, "duplicate requirement id 9"},
		{"unknown format", "{}", FormatUnknown, "unknown snapshot format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalogue(strings.NewReader(tt.input), tt.format)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseCatalogue_MaxSize(t *testing.T) {
	input := `{"id": 1, "title": "Too big", "topics": []}`
	_, err := ParseCatalogueWithOptions(strings.NewReader(input), FormatJSON, ParseOptions{MaxSize: 10})
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestParseCatalogue_Warnings(t *testing.T) {
	input := `{"id":1,"topics":[{"id":1,"key":"A","requirements":[
		{"id":9,"key":"X","extras":[{"id":3,"content":"?"}]}]}]}`
	var warnings []string
	_, err := ParseCatalogueWithOptions(strings.NewReader(input), FormatJSON, ParseOptions{
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "has no type") {
		t.Errorf("expected one untyped-extra warning, got %v", warnings)
	}
}

func TestLoadCatalogueFromFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteCatalogueFile(t, dir, "example.json", testutil.WorkedExample())

	cat, err := LoadCatalogueFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cat.RequirementIDs(); len(got) != 2 || got[0] != testutil.ReqR1 || got[1] != testutil.ReqR2 {
		t.Errorf("unexpected ids %v", got)
	}
}

func TestLoadCatalogueFromFile_Missing(t *testing.T) {
	_, err := LoadCatalogueFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil || !strings.Contains(err.Error(), "no catalogue snapshot") {
		t.Errorf("expected missing-file error, got %v", err)
	}
}

func TestLoadCatalogueFromFile_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.txt")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadCatalogueFromFile(path)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
