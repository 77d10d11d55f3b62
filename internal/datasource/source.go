// Package datasource discovers, validates and selects the catalogue source to
// browse: the ReqDB API or a local snapshot (SQLite export, JSON or YAML).
// Among local snapshots the freshest valid one wins; ties go to the more
// authoritative type.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/reqdb/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeAPI is a live ReqDB backend
	SourceTypeAPI SourceType = "api"
	// SourceTypeSQLite is a SQLite export written by reqdb
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is a JSON catalogue snapshot
	SourceTypeJSON SourceType = "json"
	// SourceTypeYAML is a YAML catalogue snapshot
	SourceTypeYAML SourceType = "yaml"
)

// Priority values for source types (higher = more authoritative)
const (
	PriorityAPI    = 200
	PrioritySQLite = 100
	PriorityJSON   = 80
	PriorityYAML   = 60
)

// EnvSnapshotDir overrides the directory scanned for snapshots.
const EnvSnapshotDir = "REQDB_SNAPSHOT_DIR"

// DataSource represents a potential source of catalogue data
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute file path, or the base URL for API sources
	Path string `json:"path"`
	// CatalogueID selects the catalogue for API sources
	CatalogueID int `json:"catalogue_id,omitempty"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// RequirementCount is set during validation
	RequirementCount int `json:"requirement_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// APISource describes a catalogue served by the backend at baseURL. API
// sources are not validated by ValidateSource; reachability is only known
// when loading.
func APISource(baseURL string, catalogueID int) DataSource {
	return DataSource{
		Type:        SourceTypeAPI,
		Path:        baseURL,
		CatalogueID: catalogueID,
		Priority:    PriorityAPI,
		ModTime:     time.Now(),
		Valid:       true,
	}
}

// FileSource describes a snapshot file, typed by its extension.
func FileSource(path string) (DataSource, error) {
	typ, prio, ok := classify(filepath.Base(path))
	if !ok {
		return DataSource{}, fmt.Errorf("%s: %w", path, loader.ErrUnknownFormat)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return DataSource{
		Type:     typ,
		Path:     abs,
		Priority: prio,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// IsFile reports whether the source is a local snapshot.
func (s DataSource) IsFile() bool {
	return s.Type != SourceTypeAPI
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	if s.Type == SourceTypeAPI {
		return fmt.Sprintf("%s (api, catalogue=%d)", s.Path, s.CatalogueID)
	}
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, requirements=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.RequirementCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the directory scanned for snapshots (default: $REQDB_SNAPSHOT_DIR, then cwd)
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// DiscoverSources finds every catalogue snapshot in the snapshot directory,
// freshest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dir := opts.Dir
	if dir == "" {
		if envDir := os.Getenv(EnvSnapshotDir); envDir != "" {
			dir = envDir
		} else {
			var err error
			dir, err = os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
		}
	}

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if skipSnapshot(name) {
			continue
		}
		typ, prio, ok := classify(name)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, name)
		sources = append(sources, DataSource{
			Type:     typ,
			Path:     path,
			Priority: prio,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", typ, path, info.ModTime().Format(time.RFC3339)))
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

// ValidateSource loads the source far enough to count its requirements and
// records the outcome on s.
func ValidateSource(s *DataSource) error {
	s.Valid = false
	s.ValidationError = ""
	s.RequirementCount = 0

	if s.Type == SourceTypeAPI {
		s.Valid = true
		return nil
	}

	info, err := os.Stat(s.Path)
	if err != nil {
		return s.fail(fmt.Errorf("stat: %w", err))
	}
	if info.Size() == 0 {
		return s.fail(fmt.Errorf("file is empty"))
	}
	s.Size = info.Size()
	s.ModTime = info.ModTime()

	var count int
	switch s.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(*s)
		if err != nil {
			return s.fail(err)
		}
		defer reader.Close()
		count, err = reader.CountRequirements()
		if err != nil {
			return s.fail(err)
		}
	case SourceTypeJSON, SourceTypeYAML:
		c, err := loader.LoadCatalogueFromFile(s.Path)
		if err != nil {
			return s.fail(err)
		}
		count = c.RequirementCount()
	default:
		return s.fail(fmt.Errorf("unknown source type: %s", s.Type))
	}

	s.Valid = true
	s.RequirementCount = count
	return nil
}

func (s *DataSource) fail(err error) error {
	s.Valid = false
	s.ValidationError = err.Error()
	return err
}

// SelectBestSource returns the freshest valid source. Ties on modification
// time go to the higher priority.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DataSource{}, fmt.Errorf("no valid sources among %d candidates", len(sources))
	}
	sortSources(valid)
	return valid[0], nil
}

func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}

func classify(name string) (SourceType, int, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".sqlite", ".sqlite3", ".db":
		return SourceTypeSQLite, PrioritySQLite, true
	case ".json":
		return SourceTypeJSON, PriorityJSON, true
	case ".yaml", ".yml":
		return SourceTypeYAML, PriorityYAML, true
	default:
		return "", 0, false
	}
}

// skipSnapshot filters out temp files, backups and our own config files.
func skipSnapshot(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, ".tmp") ||
		strings.Contains(name, ".backup") ||
		strings.Contains(name, ".orig") ||
		name == "config.yaml" ||
		name == "export-wizard.json"
}
