// Package loader builds catalogue trees from the ReqDB API or local snapshot
// files and guards topic re-parenting against cycles.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/reqdb/pkg/model"
)

// Format is the encoding of a catalogue snapshot file.
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// ErrUnknownFormat is returned when a snapshot's encoding can't be determined.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// DefaultMaxSnapshotSize bounds how much of a snapshot file is read (64MB).
const DefaultMaxSnapshotSize = 64 << 20

// ParseOptions configures ParseCatalogue.
type ParseOptions struct {
	// WarningHandler is called for recoverable problems (e.g. extras without
	// a known type). If nil, warnings are discarded.
	WarningHandler func(string)

	// MaxSize caps the number of bytes read. If 0, DefaultMaxSnapshotSize.
	MaxSize int64
}

// DetectFormat guesses the snapshot format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// LoadCatalogueFromFile reads a JSON or YAML catalogue snapshot.
func LoadCatalogueFromFile(path string) (*model.Catalogue, error) {
	return LoadCatalogueFromFileWithOptions(path, ParseOptions{})
}

// LoadCatalogueFromFileWithOptions reads a snapshot with custom options.
func LoadCatalogueFromFileWithOptions(path string, opts ParseOptions) (*model.Catalogue, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no catalogue snapshot found at %s", path)
		}
		return nil, fmt.Errorf("failed to open catalogue snapshot: %w", err)
	}
	defer file.Close()

	cat, err := ParseCatalogueWithOptions(file, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalogue decodes a catalogue from r.
func ParseCatalogue(r io.Reader, format Format) (*model.Catalogue, error) {
	return ParseCatalogueWithOptions(r, format, ParseOptions{})
}

// ParseCatalogueWithOptions decodes a catalogue from r. The document may be a
// bare catalogue or a saved API response wrapped in {"data": ...}. A UTF-8
// BOM is stripped. The result is normalized and validated.
func ParseCatalogueWithOptions(r io.Reader, format Format, opts ParseOptions) (*model.Catalogue, error) {
	limit := opts.MaxSize
	if limit <= 0 {
		limit = DefaultMaxSnapshotSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("error reading catalogue: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("catalogue exceeds %d bytes", limit)
	}
	data = stripBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("catalogue is empty")
	}

	var cat model.Catalogue
	switch format {
	case FormatJSON:
		var wrapped struct {
			Data *model.Catalogue `json:"data"`
		}
		if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
			cat = *wrapped.Data
		} else if err := json.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("invalid catalogue JSON: %w", err)
		}
	case FormatYAML:
		var wrapped struct {
			Data *model.Catalogue `yaml:"data"`
		}
		if err := yaml.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
			cat = *wrapped.Data
		} else if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("invalid catalogue YAML: %w", err)
		}
	default:
		return nil, ErrUnknownFormat
	}

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(string) {}
	}
	Normalize(&cat, warn)

	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalogue: %w", err)
	}
	return &cat, nil
}

// Normalize fills parent ids the backend leaves implicit in nested payloads:
// child topics get their parent's id and requirements their topic's id.
// Topic.Parent back-pointers are cleared so the tree can be re-encoded.
func Normalize(c *model.Catalogue, warn func(string)) {
	if c == nil {
		return
	}
	for _, t := range c.Topics {
		if t != nil {
			t.ParentID = nil
		}
	}
	c.Walk(func(t *model.Topic, _ int) bool {
		t.Parent = nil
		for _, child := range t.Children {
			if child == nil {
				continue
			}
			if child.ParentID == nil {
				id := t.ID
				child.ParentID = &id
			}
		}
		for _, r := range t.Requirements {
			if r == nil {
				continue
			}
			if r.ParentID == 0 {
				r.ParentID = t.ID
			}
			for _, e := range r.Extras {
				if e.ExtraTypeID == 0 && e.ExtraType == nil && warn != nil {
					warn(fmt.Sprintf("requirement %q: extra %d has no type", r.Key, e.ID))
				}
			}
		}
		return true
	})
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
