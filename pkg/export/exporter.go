package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/metrics"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

// Stdout is the OutDir value that routes an export to Request.Stdout.
const Stdout = "-"

// Stage is the exporter's delivery state.
type Stage int

const (
	StageIdle Stage = iota
	StageBuilding
	StageDelivered
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageBuilding:
		return "building"
	case StageDelivered:
		return "delivered"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Request describes one export.
type Request struct {
	Format     Format
	Catalogue  *model.Catalogue
	ExtraTypes []model.ExtraType
	// Rows is the flattened row list in display order. Only CSV reads it.
	Rows     []model.Row
	Headers  map[int]string
	Selected map[int]struct{}
	// OutDir is the destination directory, or Stdout.
	OutDir string
	Stdout io.Writer
}

// Result describes a delivered export.
type Result struct {
	Path         string
	Format       Format
	MIME         string
	Bytes        int
	Requirements int
}

// Exporter serializes selections and delivers them to disk or stdout. One
// export runs at a time.
type Exporter struct {
	mu    sync.Mutex
	stage Stage
	last  Result
}

// NewExporter returns an idle exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Stage returns the current delivery state.
func (e *Exporter) Stage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stage
}

// Last returns the most recent delivered result.
func (e *Exporter) Last() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Exporter) setStage(s Stage) {
	e.mu.Lock()
	e.stage = s
	e.mu.Unlock()
}

// Export builds the complete output in memory and then delivers it. Nothing
// is written when building fails.
func (e *Exporter) Export(ctx context.Context, req Request) (Result, error) {
	e.setStage(StageBuilding)
	res, err := e.export(ctx, req)
	if err != nil {
		e.setStage(StageFailed)
		debug.Logw("export failed", "format", string(req.Format), "err", err)
		return Result{}, err
	}

	e.mu.Lock()
	e.stage = StageDelivered
	e.last = res
	e.mu.Unlock()
	debug.Logw("export delivered", "format", string(res.Format), "path", res.Path, "bytes", res.Bytes)
	return res, nil
}

func (e *Exporter) export(ctx context.Context, req Request) (Result, error) {
	defer debug.LogEnterExit("export " + string(req.Format))()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(req.Selected) == 0 {
		return Result{}, ErrNoSelection
	}

	data, count, err := render(req)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{
		Format:       req.Format,
		MIME:         req.Format.MIME(),
		Bytes:        len(data),
		Requirements: count,
	}

	if req.OutDir == Stdout {
		w := req.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := w.Write(data); err != nil {
			return Result{}, fmt.Errorf("write export to stdout: %w", err)
		}
		res.Path = Stdout
		return res, nil
	}

	dir := req.OutDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, req.Format.Filename())
	if err := writeFileAtomic(path, data); err != nil {
		return Result{}, err
	}
	res.Path = path
	return res, nil
}

// Render returns the serialized selection without delivering it.
func Render(req Request) ([]byte, error) {
	data, _, err := render(req)
	return data, err
}

func render(req Request) ([]byte, int, error) {
	defer metrics.Timer(metrics.Serialize)()

	if req.Format == FormatCSV {
		data, err := EncodeCSV(req.Rows, req.Selected, req.Headers)
		if err != nil {
			return nil, 0, err
		}
		count := 0
		for _, r := range req.Rows {
			if _, ok := req.Selected[r.ID]; ok {
				count++
			}
		}
		return data, count, nil
	}

	if req.Catalogue == nil {
		return nil, 0, fmt.Errorf("export %s: no catalogue loaded", req.Format)
	}
	pruned := ProjectCatalogue(req.Catalogue, req.Selected)

	var (
		data []byte
		err  error
	)
	switch req.Format {
	case FormatJSON:
		data, err = EncodeJSON(pruned)
	case FormatYAML:
		data, err = EncodeYAML(pruned)
	case FormatMarkdown:
		var s string
		s, err = GenerateMarkdown(pruned)
		data = []byte(s)
	case FormatSQLite:
		data, err = NewSQLiteExporter(pruned, req.ExtraTypes).Bytes()
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownFormat, string(req.Format))
	}
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s: %w", req.Format, err)
	}
	return data, pruned.RequirementCount(), nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename export file: %w", err)
	}
	success = true
	return nil
}
