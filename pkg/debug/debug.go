// Package debug provides conditional debug logging for reqdb.
//
// Debug logging is enabled by setting the REQDB_DEBUG environment variable
// or passing --debug:
//
//	REQDB_DEBUG=1 reqdb export -f catalogue.json --format md
//
// When enabled, messages are written to stderr through a zap development
// logger. When disabled (default), every function is a no-op.
//
// Usage:
//
//	debug.Log("flattened %d rows", len(rows))
//	debug.Logw("fetched catalogue", "id", id, "topics", len(c.Topics))
//	defer debug.LogEnterExit("export")()
package debug

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  = zap.NewNop().Sugar()
)

func init() {
	if os.Getenv("REQDB_DEBUG") != "" {
		SetEnabled(true)
	}
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "debug: falling back to no-op logger: %v\n", err)
		return zap.NewNop().Sugar()
	}
	return l.Named("reqdb").Sugar()
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetEnabled switches debug logging on or off at runtime.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	if e == enabled {
		return
	}
	enabled = e
	if e {
		logger = newLogger()
		return
	}
	_ = logger.Sync()
	logger = zap.NewNop().Sugar()
}

// Logger returns the underlying sugared logger. It is a no-op logger when
// debugging is disabled.
func Logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if !Enabled() {
		return
	}
	Logger().Debugf(format, args...)
}

// Logw writes a debug message with structured key/value pairs.
func Logw(msg string, keysAndValues ...any) {
	if !Enabled() {
		return
	}
	Logger().Debugw(msg, keysAndValues...)
}

// LogTiming writes a timing message.
func LogTiming(name string, d time.Duration) {
	if !Enabled() {
		return
	}
	Logger().Debugw("timing", "op", name, "took", d)
}

// LogEnterExit logs function entry and exit with timing.
//
//	defer debug.LogEnterExit("project")()
func LogEnterExit(name string) func() {
	if !Enabled() {
		return func() {}
	}
	Logger().Debugf("-> %s", name)
	start := time.Now()
	return func() {
		Logger().Debugf("<- %s (%v)", name, time.Since(start))
	}
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger().Sync()
}
