package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("expected count 2, got %d", s.Count)
	}
	if s.MaxMs != 4 || s.MinMs != 2 || s.AvgMs != 3 {
		t.Errorf("unexpected stats %+v", s)
	}

	m.Reset()
	if m.Count() != 0 {
		t.Error("expected reset to clear count")
	}
}

func TestTimerDisabled(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("off")
	Timer(m)()
	if m.Count() != 0 {
		t.Error("expected no measurement while disabled")
	}
}

func TestWriteSummary(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	var buf bytes.Buffer
	if err := WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no metrics") {
		t.Errorf("expected empty summary, got %q", buf.String())
	}

	Flatten.Record(time.Millisecond)
	buf.Reset()
	if err := WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "flatten") {
		t.Errorf("expected flatten row, got %q", buf.String())
	}
	ResetAll()
}
