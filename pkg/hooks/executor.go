package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/reqdb/pkg/debug"
)

// maxSummaryStderr caps the stderr excerpt shown per failed hook.
const maxSummaryStderr = 200

// Result is the outcome of one hook run.
type Result struct {
	Hook     Hook
	Phase    Phase
	Stdout   string
	Stderr   string
	Duration time.Duration
	Err      error
}

// OK reports whether the hook exited cleanly within its timeout.
func (r Result) OK() bool { return r.Err == nil }

// Executor runs the hooks of one export and records their results.
type Executor struct {
	cfg     *Config
	export  ExportContext
	results []Result
}

// NewExecutor returns an executor for cfg that passes export to every hook.
func NewExecutor(cfg *Config, export ExportContext) *Executor {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Executor{cfg: cfg, export: export}
}

// Prepare loads the hook file of dir. It returns a nil executor when skip is
// set or no hook is configured.
func Prepare(dir string, export ExportContext, skip bool) (*Executor, error) {
	if skip {
		return nil, nil
	}
	cfg, warnings, err := Load(dir)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		debug.Log("hooks: %s", w)
	}
	if cfg.Empty() {
		return nil, nil
	}
	return NewExecutor(cfg, export), nil
}

// SetExport replaces the export context, e.g. once the written path is known.
func (e *Executor) SetExport(export ExportContext) {
	e.export = export
}

// BeforeExport runs the pre-export hooks in order and stops at the first one
// that fails unless its policy is continue.
func (e *Executor) BeforeExport() error {
	for _, h := range e.cfg.Pre {
		if r := e.run(h, PreExport); !r.OK() && h.OnError != Continue {
			return fmt.Errorf("pre-export hook %q: %w", h.Name, r.Err)
		}
	}
	return nil
}

// AfterExport runs every post-export hook. Failures of hooks with policy fail
// are joined into the returned error.
func (e *Executor) AfterExport() error {
	var errs []error
	for _, h := range e.cfg.Post {
		if r := e.run(h, PostExport); !r.OK() && h.OnError == Fail {
			errs = append(errs, fmt.Errorf("post-export hook %q: %w", h.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}

func (e *Executor) run(h Hook, phase Phase) Result {
	if h.Timeout <= 0 {
		h.Timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), e.export.Environ()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	// Grandchildren holding the pipes are abandoned a second after the deadline.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %v", h.Timeout)
	}
	r := Result{
		Hook:     h,
		Phase:    phase,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
		Err:      err,
	}
	debug.Logw("hook finished", "phase", phase, "name", h.Name, "ok", r.OK(), "took", r.Duration)

	e.results = append(e.results, r)
	return r
}

// Results lists every hook run so far, in run order.
func (e *Executor) Results() []Result {
	return e.results
}

// Summary reports failed hooks for the terminal. It is empty when nothing ran.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	failed := 0
	for _, r := range e.results {
		if !r.OK() {
			failed++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hooks: %d succeeded, %d failed\n", len(e.results)-failed, failed)
	for _, r := range e.results {
		if r.OK() {
			continue
		}
		fmt.Fprintf(&sb, "  ✗ %s (%s): %v\n", r.Hook.Name, r.Phase, r.Err)
		if r.Stderr != "" {
			fmt.Fprintf(&sb, "    stderr: %s\n", clip(strings.ReplaceAll(r.Stderr, "\n", " "), maxSummaryStderr))
		}
	}
	return sb.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
