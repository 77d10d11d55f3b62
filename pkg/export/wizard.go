package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/reqdb/pkg/config"
)

// WizardConfig holds the answers collected by the export wizard.
type WizardConfig struct {
	Format    Format `json:"format"`
	OutputDir string `json:"output_dir"`
	Confirm   bool   `json:"-"`
}

// Wizard interactively picks the export format and destination.
type Wizard struct {
	config   *WizardConfig
	selected int
	out      io.Writer
}

// NewWizard creates a wizard seeded with defaults. selected is the number of
// requirements about to be exported and is shown in the summary.
func NewWizard(defaults WizardConfig, selected int) *Wizard {
	cfg := defaults
	if cfg.Format == "" {
		cfg.Format = FormatMarkdown
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return &Wizard{config: &cfg, selected: selected, out: os.Stdout}
}

// ErrWizardCanceled is returned when the user declines the final prompt.
var ErrWizardCanceled = errors.New("export canceled")

// IsTerminal reports whether stdin is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run executes the wizard and returns the chosen settings.
func (w *Wizard) Run() (*WizardConfig, error) {
	if saved, err := LoadWizardConfig(); err == nil && saved != nil {
		if saved.Format != "" {
			w.config.Format = saved.Format
		}
		if saved.OutputDir != "" {
			w.config.OutputDir = saved.OutputDir
		}
	}

	format := string(w.config.Format)
	outDir := w.config.OutputDir
	w.config.Confirm = true

	options := make([]huh.Option[string], 0, len(AllFormats()))
	for _, f := range AllFormats() {
		options = append(options, huh.NewOption(f.Label(), string(f)))
	}

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Export format").
				Description(strconv.Itoa(w.selected)+" requirement(s) selected").
				Options(options...).
				Value(&format),
			huh.NewInput().
				Title("Output directory").
				Description(`Use "-" to write to stdout`).
				Value(&outDir).
				Placeholder("."),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Write the export now?").
				Value(&w.config.Confirm).
				Affirmative("Export").
				Negative("Cancel"),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}
	if !w.config.Confirm {
		return nil, ErrWizardCanceled
	}

	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	w.config.Format = f
	if outDir != "" {
		w.config.OutputDir = outDir
	}

	if err := SaveWizardConfig(w.config); err != nil {
		fmt.Fprintf(w.out, "warning: could not save export settings: %v\n", err)
	}
	return w.config, nil
}

// GetConfig returns the collected wizard configuration.
func (w *Wizard) GetConfig() *WizardConfig {
	return w.config
}

// Destination describes where the configured export will land.
func (c WizardConfig) Destination() string {
	if c.OutputDir == Stdout {
		return "stdout"
	}
	return filepath.Join(c.OutputDir, c.Format.Filename())
}

// WizardConfigPath returns the path to the wizard config file.
func WizardConfigPath() string {
	return filepath.Join(config.ConfigDir(), "export-wizard.json")
}

// LoadWizardConfig loads previously saved wizard configuration. It returns
// nil, nil when nothing was saved.
func LoadWizardConfig() (*WizardConfig, error) {
	data, err := os.ReadFile(WizardConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cfg WizardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", WizardConfigPath(), err)
	}
	return &cfg, nil
}

// SaveWizardConfig saves wizard configuration for future runs.
func SaveWizardConfig(cfg *WizardConfig) error {
	path := WizardConfigPath()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}
