package export

import (
	"path/filepath"
	"testing"
)

func TestNewWizardDefaults(t *testing.T) {
	w := NewWizard(WizardConfig{}, 3)
	cfg := w.GetConfig()
	if cfg.Format != FormatMarkdown || cfg.OutputDir != "." {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestWizardConfigDestination(t *testing.T) {
	cfg := WizardConfig{Format: FormatCSV, OutputDir: "out"}
	if got := cfg.Destination(); got != filepath.Join("out", "ReqDB-Export.csv") {
		t.Errorf("unexpected destination %q", got)
	}
	cfg.OutputDir = Stdout
	if got := cfg.Destination(); got != "stdout" {
		t.Errorf("unexpected destination %q", got)
	}
}

func TestWizardConfigSaveLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	loaded, err := LoadWizardConfig()
	if err != nil || loaded != nil {
		t.Fatalf("expected nothing saved yet, got %+v, %v", loaded, err)
	}

	if err := SaveWizardConfig(&WizardConfig{Format: FormatYAML, OutputDir: "/tmp/x"}); err != nil {
		t.Fatal(err)
	}
	loaded, err = LoadWizardConfig()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Format != FormatYAML || loaded.OutputDir != "/tmp/x" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
