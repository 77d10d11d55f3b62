package debug

import (
	"testing"
	"time"
)

func TestSetEnabledSwapsLogger(t *testing.T) {
	t.Cleanup(func() { SetEnabled(false) })

	SetEnabled(false)
	if Enabled() {
		t.Fatal("expected disabled")
	}
	if Logger().Desugar().Core().Enabled(-1) {
		t.Error("disabled logger should be a no-op")
	}

	SetEnabled(true)
	if !Enabled() {
		t.Fatal("expected enabled")
	}
	if !Logger().Desugar().Core().Enabled(-1) {
		t.Error("enabled logger should accept debug entries")
	}
}

func TestHelpersAreNoOpsWhenDisabled(t *testing.T) {
	SetEnabled(false)

	Log("rows %d", 3)
	Logw("fetched", "id", 7)
	LogTiming("flatten", time.Millisecond)
	done := LogEnterExit("export")
	if done == nil {
		t.Fatal("LogEnterExit must return a callable")
	}
	done()
	Sync()
}
