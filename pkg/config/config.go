// Package config handles loading and saving reqdb configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/reqdb/config.yaml
//
// Environment variables REQDB_API and REQDB_TOKEN override the file; CLI
// flags override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvAPI   = "REQDB_API"
	EnvToken = "REQDB_TOKEN"
)

// Flatten orders accepted by BrowseConfig.Order.
const (
	OrderRequirementsFirst = "requirements-first"
	OrderChildrenFirst     = "children-first"
)

// APIConfig locates the ReqDB backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Token   string        `yaml:"token,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// BrowseConfig controls row flattening and filtering.
type BrowseConfig struct {
	Order        string         `yaml:"order,omitempty"`
	SearchFields []string       `yaml:"search_fields,omitempty"`
	ExtraHeaders map[int]string `yaml:"extra_headers,omitempty"` // ExtraType id -> column header
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	DefaultFormat string `yaml:"default_format,omitempty"`
	OutputDir     string `yaml:"output_dir,omitempty"`
}

// UIConfig holds TUI preferences.
type UIConfig struct {
	Theme      string `yaml:"theme,omitempty"` // auto, dark, light
	DetailPane bool   `yaml:"detail_pane,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	API    APIConfig    `yaml:"api,omitempty"`
	Browse BrowseConfig `yaml:"browse,omitempty"`
	Export ExportConfig `yaml:"export,omitempty"`
	UI     UIConfig     `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 30 * time.Second,
		},
		Browse: BrowseConfig{
			Order:        OrderRequirementsFirst,
			SearchFields: []string{"key", "title", "description"},
			ExtraHeaders: make(map[int]string),
		},
		Export: ExportConfig{
			DefaultFormat: "md",
			OutputDir:     ".",
		},
		UI: UIConfig{
			Theme:      "auto",
			DetailPane: true,
		},
	}
}

// ConfigDir returns the XDG config directory for reqdb.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "reqdb")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "reqdb")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory and applies
// environment overrides. Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path and applies environment
// overrides. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Browse.ExtraHeaders == nil {
		cfg.Browse.ExtraHeaders = make(map[int]string)
	}
	cfg.Export.OutputDir = expandHome(cfg.Export.OutputDir)
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPI)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		c.API.Token = v
	}
}

// Validate rejects values the rest of the program can't interpret.
func (c Config) Validate() error {
	switch c.Browse.Order {
	case "", OrderRequirementsFirst, OrderChildrenFirst:
	default:
		return fmt.Errorf("invalid browse.order %q (want %s or %s)",
			c.Browse.Order, OrderRequirementsFirst, OrderChildrenFirst)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("invalid api.timeout %v", c.API.Timeout)
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path. The token is never written;
// it belongs in REQDB_TOKEN.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	cfg.API.Token = ""
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ExtraHeaderIDs returns the configured ExtraType ids in ascending order.
func (c Config) ExtraHeaderIDs() []int {
	ids := make([]int, 0, len(c.Browse.ExtraHeaders))
	for id := range c.Browse.ExtraHeaders {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
