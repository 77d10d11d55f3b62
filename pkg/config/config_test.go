package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Browse.Order != OrderRequirementsFirst {
		t.Errorf("expected default order %q, got %q", OrderRequirementsFirst, cfg.Browse.Order)
	}
	if len(cfg.Browse.SearchFields) != 3 {
		t.Errorf("expected 3 default search fields, got %v", cfg.Browse.SearchFields)
	}
	if cfg.Browse.ExtraHeaders == nil {
		t.Error("expected extra headers map to be initialized")
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.API.Timeout)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	t.Setenv(EnvAPI, "")
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Export.DefaultFormat != "md" {
		t.Errorf("expected default config, got format %q", cfg.Export.DefaultFormat)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	t.Setenv(EnvAPI, "")
	t.Setenv(EnvToken, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
api:
  base_url: https://reqdb.example.com/api
  timeout: 5s
browse:
  order: children-first
  search_fields: [key, tags]
  extra_headers:
    3: Controls
    1: Notes
export:
  default_format: csv
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "https://reqdb.example.com/api" {
		t.Errorf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.API.Timeout)
	}
	if cfg.Browse.Order != OrderChildrenFirst {
		t.Errorf("unexpected order %q", cfg.Browse.Order)
	}
	if cfg.Browse.ExtraHeaders[3] != "Controls" {
		t.Errorf("unexpected extra headers %v", cfg.Browse.ExtraHeaders)
	}
	ids := cfg.ExtraHeaderIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("expected sorted ids [1 3], got %v", ids)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFrom_InvalidOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("browse:\n  order: sideways\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFrom(path)
	if err == nil || !strings.Contains(err.Error(), "browse.order") {
		t.Fatalf("expected order validation error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPI, "http://override/api")
	t.Setenv(EnvToken, "secret")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "http://override/api" || cfg.API.Token != "secret" {
		t.Errorf("env overrides not applied: %+v", cfg.API)
	}
}

func TestSaveTo_OmitsToken(t *testing.T) {
	t.Setenv(EnvToken, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.Token = "do-not-persist"
	cfg.Browse.ExtraHeaders[2] = "Guidance"
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "do-not-persist") {
		t.Error("token was written to disk")
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Browse.ExtraHeaders[2] != "Guidance" {
		t.Errorf("round trip lost extra headers: %v", loaded.Browse.ExtraHeaders)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg", "reqdb") {
		t.Errorf("unexpected config dir %q", got)
	}
	if got := ConfigPath(); got != filepath.Join("/tmp/xdg", "reqdb", "config.yaml") {
		t.Errorf("unexpected config path %q", got)
	}
}
