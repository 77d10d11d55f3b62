package ui

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

func TestTruncate_UTF8Safe(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{name: "zero max", input: "hello", maxWidth: 0, want: ""},
		{name: "fits", input: "hello", maxWidth: 10, want: "hello"},
		{name: "ellipsis", input: "requirement", maxWidth: 6, want: "requi…"},
		{name: "wide runes", input: "要件管理システム", maxWidth: 7, want: "要件管…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxWidth)
			if got != tt.want {
				t.Fatalf("truncate(%q, %d) = %q; want %q", tt.input, tt.maxWidth, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("truncate output is not valid UTF-8: %q", got)
			}
			if w := runewidth.StringWidth(got); w > tt.maxWidth {
				t.Fatalf("truncate output is %d cells; max %d", w, tt.maxWidth)
			}
		})
	}
}

func TestPadRightWide(t *testing.T) {
	got := padRight("要件", 6)
	if runewidth.StringWidth(got) != 6 {
		t.Errorf("padRight width = %d, want 6 (%q)", runewidth.StringWidth(got), got)
	}
	if padRight("abcdef", 3) != "abcdef" {
		t.Error("padRight must not truncate")
	}
}

func TestCellFlattensAndFits(t *testing.T) {
	got := cell("Topic A\r\nTopic  B", 12)
	if got != "Topic A Top…" {
		t.Errorf("cell = %q", got)
	}
	if w := lipgloss.Width(cell("x", 5)); w != 5 {
		t.Errorf("cell width = %d, want 5", w)
	}
}

func TestFormatTimeRel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{-time.Hour, "now"},
		{30 * time.Second, "now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{2 * 24 * time.Hour, "2d ago"},
		{14 * 24 * time.Hour, "2w ago"},
		{90 * 24 * time.Hour, "3mo ago"},
	}
	for _, tt := range tests {
		if got := formatTimeRelFrom(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("formatTimeRelFrom(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if got := FormatTimeRel(time.Time{}); got != "unknown" {
		t.Errorf("zero time = %q, want unknown", got)
	}
}
