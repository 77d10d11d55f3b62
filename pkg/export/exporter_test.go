package export

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/reqdb/pkg/model"
	"github.com/vanderheijden86/reqdb/pkg/rows"
	"github.com/vanderheijden86/reqdb/pkg/testutil"
)

func workedRequest(format Format, outDir string, ids ...int) Request {
	c := testutil.WorkedExample()
	headers := map[int]string{2: "Guidance"}
	return Request{
		Format:    format,
		Catalogue: c,
		ExtraTypes: []model.ExtraType{
			{ID: 2, Title: "Guidance", ExtraType: model.ExtraMarkdown},
		},
		Rows:     rows.FlattenCatalogue(c, rows.Options{Headers: headers}).Rows,
		Headers:  headers,
		Selected: IDSet(ids...),
		OutDir:   outDir,
	}
}

func TestExporter_WritesFixedFilename(t *testing.T) {
	for _, f := range AllFormats() {
		t.Run(string(f), func(t *testing.T) {
			dir := t.TempDir()
			exp := NewExporter()
			if exp.Stage() != StageIdle {
				t.Fatalf("expected idle, got %s", exp.Stage())
			}

			res, err := exp.Export(context.Background(), workedRequest(f, dir, testutil.ReqR2))
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if exp.Stage() != StageDelivered {
				t.Errorf("expected delivered, got %s", exp.Stage())
			}
			wantPath := filepath.Join(dir, f.Filename())
			if res.Path != wantPath {
				t.Errorf("expected %s, got %s", wantPath, res.Path)
			}
			if res.Requirements != 1 {
				t.Errorf("expected 1 requirement, got %d", res.Requirements)
			}
			if res.MIME != f.MIME() {
				t.Errorf("expected mime %s, got %s", f.MIME(), res.MIME)
			}

			info, err := os.Stat(wantPath)
			if err != nil {
				t.Fatal(err)
			}
			if int(info.Size()) != res.Bytes {
				t.Errorf("size %d does not match result %d", info.Size(), res.Bytes)
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				t.Errorf("expected only the export file, found %d entries", len(entries))
			}
		})
	}
}

func TestExporter_Stdout(t *testing.T) {
	var buf bytes.Buffer
	req := workedRequest(FormatMarkdown, Stdout, testutil.ReqR2)
	req.Stdout = &buf

	res, err := NewExporter().Export(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != Stdout {
		t.Errorf("expected stdout path, got %q", res.Path)
	}
	if !strings.Contains(buf.String(), "## [C] Topic C") {
		t.Errorf("unexpected stdout content:\n%s", buf.String())
	}
}

func TestExporter_NoSelection(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter()
	_, err := exp.Export(context.Background(), workedRequest(FormatJSON, dir))
	if !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if exp.Stage() != StageFailed {
		t.Errorf("expected failed, got %s", exp.Stage())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files, found %d", len(entries))
	}
}

func TestExporter_UnknownFormatWritesNothing(t *testing.T) {
	dir := t.TempDir()
	_, err := NewExporter().Export(context.Background(), workedRequest(Format("pdf"), dir, testutil.ReqR1))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files, found %d", len(entries))
	}
}

func TestExporter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExporter().Export(ctx, workedRequest(FormatCSV, t.TempDir(), testutil.ReqR1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExporter_OverwritesPreviousExport(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter()
	if _, err := exp.Export(context.Background(), workedRequest(FormatCSV, dir, testutil.ReqR1, testutil.ReqR2)); err != nil {
		t.Fatal(err)
	}
	if _, err := exp.Export(context.Background(), workedRequest(FormatCSV, dir, testutil.ReqR1)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, FormatCSV.Filename()))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "R2") {
		t.Errorf("stale content after overwrite:\n%s", data)
	}
	if exp.Last().Requirements != 1 {
		t.Errorf("expected last result to count 1 requirement, got %d", exp.Last().Requirements)
	}
}

func TestSQLiteExport(t *testing.T) {
	c := testutil.WorkedExample()
	path := filepath.Join(t.TempDir(), "out.sqlite")
	exp := NewSQLiteExporter(ProjectCatalogue(c, IDSet(c.RequirementIDs()...)), nil)
	if err := exp.ExportToFile(path); err != nil {
		t.Fatalf("export: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	counts := map[string]int{
		"topics":           3,
		"requirements":     2,
		"tags":             1,
		"requirement_tags": 1,
		"extras":           1,
		"extra_types":      1,
		"comments":         1,
		"requirement_rows": 2,
	}
	for table, want := range counts {
		var got int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&got); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != want {
			t.Errorf("%s: expected %d rows, got %d", table, want, got)
		}
	}

	var parent sql.NullInt64
	if err := db.QueryRow(`SELECT parent_id FROM topics WHERE key = 'B'`).Scan(&parent); err != nil {
		t.Fatal(err)
	}
	if !parent.Valid || parent.Int64 != testutil.TopicA {
		t.Errorf("expected B under A, got %+v", parent)
	}

	var tags string
	if err := db.QueryRow(`SELECT tags FROM requirement_rows WHERE key = 'R2'`).Scan(&tags); err != nil {
		t.Fatal(err)
	}
	if tags != "urgent" {
		t.Errorf("expected tags 'urgent', got %q", tags)
	}

	var version string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != "1" {
		t.Errorf("expected schema version 1, got %s", version)
	}
}
