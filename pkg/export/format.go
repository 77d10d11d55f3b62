package export

import (
	"errors"
	"fmt"
	"strings"
)

// Format is an export output format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "md"
	FormatSQLite   Format = "sqlite"
)

var (
	// ErrUnknownFormat is returned by ParseFormat for unsupported names.
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrNoSelection is returned when an export is requested with no rows
	// selected.
	ErrNoSelection = errors.New("no requirements selected for export")
)

// FileBaseName is the fixed stem of every export file.
const FileBaseName = "ReqDB-Export"

// AllFormats lists the supported formats in menu order.
func AllFormats() []Format {
	return []Format{FormatMarkdown, FormatCSV, FormatJSON, FormatYAML, FormatSQLite}
}

// ParseFormat accepts a format name or one of its aliases, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Filename returns the fixed output file name, e.g. ReqDB-Export.csv.
func (f Format) Filename() string {
	return FileBaseName + "." + string(f)
}

// MIME returns the content type declared for the format.
func (f Format) MIME() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "text/json"
	case FormatYAML:
		return "text/yaml"
	case FormatMarkdown:
		return "text/plain"
	case FormatSQLite:
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}

// Label is the human-readable name shown in menus.
func (f Format) Label() string {
	switch f {
	case FormatCSV:
		return "CSV (spreadsheet)"
	case FormatJSON:
		return "JSON"
	case FormatYAML:
		return "YAML"
	case FormatMarkdown:
		return "Markdown"
	case FormatSQLite:
		return "SQLite database"
	default:
		return string(f)
	}
}

// Binary reports whether the output should not be written to a terminal.
func (f Format) Binary() bool {
	return f == FormatSQLite
}
