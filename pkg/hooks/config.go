// Package hooks runs user commands around an export. Hooks are configured in
// .reqdb/hooks.yaml of the working directory and run before the export file
// is written (pre-export) and after it landed (post-export).
//
//	hooks:
//	  pre-export:
//	    - name: lint
//	      command: ./scripts/check-selection.sh
//	      timeout: 10s
//	  post-export:
//	    - command: cp "$REQDB_EXPORT_PATH" /srv/share/
//	      on_error: fail
package hooks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Phase is the point of an export at which a hook runs.
type Phase string

const (
	// PreExport hooks run before anything is written. A failure cancels the
	// export.
	PreExport Phase = "pre-export"
	// PostExport hooks run once the file is in place.
	PostExport Phase = "post-export"
)

// Policy says what a failing hook does to the export command.
type Policy string

const (
	Fail     Policy = "fail"
	Continue Policy = "continue"
)

const (
	ConfigDir      = ".reqdb"
	ConfigFile     = "hooks.yaml"
	DefaultTimeout = 30 * time.Second
)

// Hook is one configured command. Command runs with sh -c; Env values are
// ${VAR} expanded against the reqdb process environment.
type Hook struct {
	Name    string
	Command string
	Timeout time.Duration
	Env     map[string]string
	OnError Policy
}

// Config is the parsed hook file.
type Config struct {
	Pre  []Hook
	Post []Hook
}

type fileLayout struct {
	Hooks struct {
		Pre  []Hook `yaml:"pre-export"`
		Post []Hook `yaml:"post-export"`
	} `yaml:"hooks"`
}

// ExportContext describes the export a hook runs for.
type ExportContext struct {
	ExportPath       string // output file, or "-" for stdout
	ExportFormat     string
	RequirementCount int
	CatalogueTitle   string
	Timestamp        time.Time
}

// Environ renders c as REQDB_* environment entries.
func (c ExportContext) Environ() []string {
	return []string{
		"REQDB_EXPORT_PATH=" + c.ExportPath,
		"REQDB_EXPORT_FORMAT=" + c.ExportFormat,
		"REQDB_REQUIREMENT_COUNT=" + strconv.Itoa(c.RequirementCount),
		"REQDB_CATALOGUE=" + c.CatalogueTitle,
		"REQDB_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// Path is the hook file for the project in dir.
func Path(dir string) string {
	return filepath.Join(dir, ConfigDir, ConfigFile)
}

// Load reads the hook file of dir. A missing file yields an empty config.
// The returned warnings name entries that were skipped or corrected.
func Load(dir string) (*Config, []string, error) {
	path := Path(dir)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read hooks: %w", err)
	}

	var layout fileLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var warnings []string
	cfg := &Config{}
	cfg.Pre = settle(layout.Hooks.Pre, PreExport, &warnings)
	cfg.Post = settle(layout.Hooks.Post, PostExport, &warnings)
	return cfg, warnings, nil
}

// settle fills defaults and drops hooks without a command.
func settle(in []Hook, phase Phase, warnings *[]string) []Hook {
	out := make([]Hook, 0, len(in))
	for i, h := range in {
		pos := i + 1
		if strings.TrimSpace(h.Command) == "" {
			*warnings = append(*warnings, fmt.Sprintf("%s hook %d: no command, skipped", phase, pos))
			continue
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("%s-%d", phase, pos)
		}
		if h.Timeout <= 0 {
			h.Timeout = DefaultTimeout
		}
		switch h.OnError {
		case Fail, Continue:
		case "":
			h.OnError = phase.defaultPolicy()
		default:
			*warnings = append(*warnings, fmt.Sprintf("%s hook %d: on_error %q is not fail or continue, using fail", phase, pos, h.OnError))
			h.OnError = Fail
		}
		out = append(out, h)
	}
	return out
}

func (p Phase) defaultPolicy() Policy {
	if p == PreExport {
		return Fail
	}
	return Continue
}

// For returns the hooks of one phase.
func (c *Config) For(p Phase) []Hook {
	switch p {
	case PreExport:
		return c.Pre
	case PostExport:
		return c.Post
	}
	return nil
}

// Empty reports whether no hook is configured.
func (c *Config) Empty() bool {
	return len(c.Pre) == 0 && len(c.Post) == 0
}

// UnmarshalYAML accepts the timeout as a duration ("10s") or in seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout"`
		Env     map[string]string `yaml:"env"`
		OnError Policy            `yaml:"on_error"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	timeout, err := parseTimeout(raw.Timeout)
	if err != nil {
		return fmt.Errorf("hook %q: %w", raw.Name, err)
	}
	*h = Hook{Name: raw.Name, Command: raw.Command, Timeout: timeout, Env: raw.Env, OnError: raw.OnError}
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
