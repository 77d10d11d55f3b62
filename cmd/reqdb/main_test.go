package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/reqdb/internal/datasource"
	"github.com/vanderheijden86/reqdb/pkg/config"
	"github.com/vanderheijden86/reqdb/pkg/export"
	"github.com/vanderheijden86/reqdb/pkg/loader"
	"github.com/vanderheijden86/reqdb/pkg/model"
	"github.com/vanderheijden86/reqdb/pkg/rows"
	"github.com/vanderheijden86/reqdb/pkg/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// runCLI executes the root command in-process with an isolated config.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvAPI, "")
	t.Setenv(config.EnvToken, "")
	t.Setenv(datasource.EnvSnapshotDir, "")

	root, a := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)

	err := root.Execute()
	a.finish(&stderr)
	return stdout.String(), stderr.String(), err
}

func workedFile(t *testing.T) string {
	t.Helper()
	return testutil.WriteCatalogueFile(t, t.TempDir(), "catalogue.json", testutil.WorkedExample())
}

// fakeAPI serves the envelope format of the ReqDB backend and records every
// request it sees.
type fakeAPI struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func newFakeAPI(t *testing.T, routes map[string]any) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{bodies: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line := r.Method + " " + r.URL.Path
		if r.URL.RawQuery != "" {
			line += "?" + r.URL.RawQuery
		}
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, line)
		f.bodies[r.Method+" "+r.URL.Path] = string(b)
		f.mu.Unlock()

		data, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":404,"error":"NotFound","message":"no such route"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 200, "data": data})
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func TestRowsTable(t *testing.T) {
	out, _, err := runCLI(t, "rows", "-f", workedFile(t))
	require.NoError(t, err)

	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "R1")
	assert.Contains(t, out, "Topic A › Topic B")
	assert.Contains(t, out, "urgent")
	assert.Contains(t, out, "2 of 2 requirements")
	assert.Less(t, strings.Index(out, "R1"), strings.Index(out, "R2"))
}

func TestRowsFilters(t *testing.T) {
	path := workedFile(t)
	tests := []struct {
		name string
		args []string
		want string
		not  string
	}{
		{"tag", []string{"--tag", "urgent"}, "R2", "R1"},
		{"search", []string{"--search", "FIRST"}, "R1", "R2"},
		{"topic", []string{"--topic", "Topic A"}, "R1", "R2"},
		{"search by key only", []string{"--search", "text", "--fields", "key"}, "0 of 2", "R1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, append([]string{"rows", "-f", path}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, tt.not)
		})
	}
}

func TestRowsUnknownLabel(t *testing.T) {
	_, _, err := runCLI(t, "rows", "-f", workedFile(t), "--tag", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tag "nope"`)

	_, _, err = runCLI(t, "rows", "-f", workedFile(t), "--fields", "body")
	require.Error(t, err)
}

func TestRowsJSON(t *testing.T) {
	out, _, err := runCLI(t, "rows", "-f", workedFile(t), "--json")
	require.NoError(t, err)

	var got []model.Row
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	testutil.AssertRowKeys(t, got, "R1", "R2")
	assert.Equal(t, "Use MFA", got[1].Extras[2])
}

func TestRowsEmptyJSONIsArray(t *testing.T) {
	out, _, err := runCLI(t, "rows", "-f", workedFile(t), "--search", "zzz", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestRowsDiscoversSnapshot(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteCatalogueFile(t, dir, "catalogue.json", testutil.WorkedExample())

	out, _, err := runCLI(t, "rows", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 requirements")

	_, _, err = runCLI(t, "rows", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshot found")
}

func TestSourceFlagsExclusive(t *testing.T) {
	_, _, err := runCLI(t, "rows", "-f", "x.json", "-c", "7")
	require.Error(t, err)
}

func TestExportCSVToDirectory(t *testing.T) {
	outDir := t.TempDir()
	out, _, err := runCLI(t, "export", "-f", workedFile(t), "--format", "csv", "--out", outDir)
	require.NoError(t, err)

	path := filepath.Join(outDir, "ReqDB-Export.csv")
	assert.Contains(t, out, "Exported 2 requirements to "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "R1")
	assert.Contains(t, string(data), "R2")
}

func TestExportSelectToStdout(t *testing.T) {
	out, stderr, err := runCLI(t, "export", "-f", workedFile(t), "--format", "md", "--select", "102", "--out", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "[R2] Second")
	assert.NotContains(t, out, "First")
	assert.NotContains(t, out, "Topic B", "topics without selected requirements are dropped")
	assert.Contains(t, stderr, "Exported 1 requirements")
}

func TestExportFiltersSelectVisibleRows(t *testing.T) {
	out, _, err := runCLI(t, "export", "-f", workedFile(t), "--format", "json", "--tag", "urgent", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"Second"`)
	assert.NotContains(t, out, `"First"`)
}

func TestExportErrors(t *testing.T) {
	path := workedFile(t)

	_, _, err := runCLI(t, "export", "-f", path, "--format", "csv", "--select", "999", "--out", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requirement 999")

	_, _, err = runCLI(t, "export", "-f", path, "--format", "csv", "--search", "zzz", "--out", "-")
	assert.True(t, errors.Is(err, export.ErrNoSelection))

	_, _, err = runCLI(t, "export", "-f", path, "--format", "pdf", "--out", "-")
	assert.True(t, errors.Is(err, export.ErrUnknownFormat))

	_, _, err = runCLI(t, "export", "-f", path, "--select", "101", "--tag", "urgent")
	require.Error(t, err)
}

func TestExportDefaultFormatFromConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("export:\n  default_format: yaml\n"), 0o644))

	out, _, err := runCLI(t, "--config", cfgPath, "export", "-f", workedFile(t), "--no-wizard", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Worked Example")
}

func TestExportSQLiteThenSearch(t *testing.T) {
	outDir := t.TempDir()
	_, _, err := runCLI(t, "export", "-f", workedFile(t), "--format", "sqlite", "--out", outDir)
	require.NoError(t, err)

	db := filepath.Join(outDir, "ReqDB-Export.sqlite")
	out, _, err := runCLI(t, "rows", "-f", db)
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 requirements")

	out, _, err = runCLI(t, "rows", "-f", db, "--fts", "second")
	require.NoError(t, err)
	assert.Contains(t, out, "R2")
	assert.Contains(t, out, "1 of 2 requirements")

	_, _, err = runCLI(t, "rows", "-f", workedFile(t), "--fts", "second")
	require.Error(t, err)
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	older := testutil.WriteCatalogueFile(t, dir, "old.json", testutil.WorkedExample())

	changed := testutil.WorkedExample()
	testutil.FindRequirement(changed, testutil.ReqR1).Title = "First, revised"
	changed.Topics[1].Requirements = nil
	newer := testutil.WriteCatalogueFile(t, dir, "new.json", changed)

	out, _, err := runCLI(t, "diff", older, newer)
	require.NoError(t, err)
	assert.Contains(t, out, "1 requirements removed")
	assert.Contains(t, out, "R2")
	assert.Contains(t, out, "R1: title")

	out, _, err = runCLI(t, "diff", older, older)
	require.NoError(t, err)
	assert.Contains(t, out, "Sources match")

	out, _, err = runCLI(t, "diff", older, newer, "--json")
	require.NoError(t, err)
	var d datasource.SourceDiff
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, []string{"R2"}, d.MissingInB)
}

func TestDiffAgainstAPI(t *testing.T) {
	api, srv := newFakeAPI(t, map[string]any{
		"GET /catalogues/7": testutil.WorkedExample(),
		"GET /extraTypes":   []model.ExtraType{{ID: 2, Title: "Guidance", ExtraType: model.ExtraMarkdown}},
	})

	out, _, err := runCLI(t, "--api", srv.URL, "diff", workedFile(t), "api:7")
	require.NoError(t, err)
	assert.Contains(t, out, "Sources match")
	assert.Contains(t, api.requests, "GET /catalogues/7?expandTopics=true")

	_, _, err = runCLI(t, "diff", workedFile(t), "api:x")
	require.Error(t, err)
}

func TestSources(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteCatalogueFile(t, dir, "catalogue.json", testutil.WorkedExample())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("topics: [\n"), 0o644))

	out, _, err := runCLI(t, "sources", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "catalogue.json")
	assert.NotContains(t, out, "broken.yaml")
	assert.Contains(t, out, "*")

	out, _, err = runCLI(t, "sources", "--dir", dir, "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "broken.yaml")
}

func TestCatalogues(t *testing.T) {
	_, srv := newFakeAPI(t, map[string]any{
		"GET /catalogues": []model.Catalogue{{ID: 7, Title: "Worked Example", Description: "Catalogue for tests"}},
	})
	out, _, err := runCLI(t, "--api", srv.URL, "catalogues")
	require.NoError(t, err)
	assert.Contains(t, out, "Worked Example")
	assert.Contains(t, out, "Catalogue for tests")
}

func TestDeleteWithYes(t *testing.T) {
	api, srv := newFakeAPI(t, map[string]any{"DELETE /topics/12": nil})

	out, _, err := runCLI(t, "--api", srv.URL, "--token", "secret", "delete", "topic", "12", "--yes", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted topic 12")
	assert.Equal(t, []string{"DELETE /topics/12?force=true"}, api.requests)

	_, _, err = runCLI(t, "--api", srv.URL, "delete", "topic", "13", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, _, err = runCLI(t, "--api", srv.URL, "delete", "widget", "1", "--yes")
	assert.True(t, errors.Is(err, model.ErrUnknownKind))
}

func TestMoveTopic(t *testing.T) {
	api, srv := newFakeAPI(t, map[string]any{
		"GET /catalogues/7": testutil.WorkedExample(),
		"PUT /topics/2":     nil,
	})

	out, _, err := runCLI(t, "--api", srv.URL, "move-topic", "2", "3", "-c", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Moved topic 2 to topic 3")
	assert.JSONEq(t, `{"parentId":3}`, api.bodies["PUT /topics/2"])

	out, _, err = runCLI(t, "--api", srv.URL, "move-topic", "2", "root", "-c", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "to the top level")
	assert.JSONEq(t, `{"parentId":null}`, api.bodies["PUT /topics/2"])
}

func TestMoveTopicRejectsCycle(t *testing.T) {
	api, srv := newFakeAPI(t, map[string]any{"GET /catalogues/7": testutil.WorkedExample()})

	_, _, err := runCLI(t, "--api", srv.URL, "move-topic", "1", "2", "-c", "7")
	assert.True(t, errors.Is(err, loader.ErrCycle))
	for _, r := range api.requests {
		assert.False(t, strings.HasPrefix(r, "PUT"), "no update may be sent for a cycle")
	}

	_, _, err = runCLI(t, "--api", srv.URL, "move-topic", "1", "2")
	require.Error(t, err, "--catalogue is required")
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "reqdb v"), out)
}

func TestConfigErrorsSurface(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("browse:\n  order: sideways\n"), 0o644))

	_, _, err := runCLI(t, "--config", cfgPath, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browse.order")
}

func TestSelection(t *testing.T) {
	res := rows.FlattenCatalogue(testutil.WorkedExample(), rows.Options{})

	sel, err := selection(res.Rows, res.Rows[:1], nil)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{testutil.ReqR1: {}}, sel)

	sel, err = selection(res.Rows, nil, []int{testutil.ReqR2, testutil.ReqR2})
	require.NoError(t, err)
	assert.Len(t, sel, 1)
}

func TestPickLabelsIgnoresRepeats(t *testing.T) {
	ix := rows.NewIndex()
	ix.Add("urgent")
	sel, err := pickLabels(ix, []string{"urgent", "urgent"}, "tag")
	require.NoError(t, err)
	assert.True(t, sel.Has("urgent"))
	assert.False(t, sel.All)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Error: boom", errorText(errors.New("boom")))
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func writeHooks(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".reqdb"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".reqdb", "hooks.yaml"), []byte(content), 0o644))
}

func TestExportRunsHooks(t *testing.T) {
	path := workedFile(t)
	work := t.TempDir()
	writeHooks(t, work, `
hooks:
  post-export:
    - name: record
      command: printf '%s %s %s' "$REQDB_EXPORT_FORMAT" "$REQDB_REQUIREMENT_COUNT" "$REQDB_CATALOGUE" > hook.out
`)
	chdir(t, work)

	_, _, err := runCLI(t, "export", "-f", path, "--format", "csv", "--out", "out")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(work, "hook.out"))
	require.NoError(t, err)
	assert.Equal(t, "csv 2 Worked Example", string(data))

	require.NoError(t, os.Remove(filepath.Join(work, "hook.out")))
	_, _, err = runCLI(t, "export", "-f", path, "--format", "csv", "--out", "out", "--no-hooks")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(work, "hook.out"))
	assert.True(t, os.IsNotExist(err), "--no-hooks must skip hooks")
}

func TestExportPreHookCancels(t *testing.T) {
	path := workedFile(t)
	work := t.TempDir()
	writeHooks(t, work, "hooks:\n  pre-export:\n    - name: gate\n      command: exit 1\n")
	chdir(t, work)

	_, stderr, err := runCLI(t, "export", "-f", path, "--format", "md", "--out", "out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pre-export hook "gate"`)
	assert.Contains(t, stderr, "0 succeeded, 1 failed")
	_, statErr := os.Stat(filepath.Join(work, "out", "ReqDB-Export.md"))
	assert.True(t, os.IsNotExist(statErr), "a failed pre-export hook must cancel the export")
}
