package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Labels
	Tag   lipgloss.AdaptiveColor
	Topic lipgloss.AdaptiveColor
	Key   lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed cell styles, created once instead of per frame.
	MutedText   lipgloss.Style
	KeyText     lipgloss.Style
	TagText     lipgloss.Style
	TopicText   lipgloss.Style
	PrimaryBold lipgloss.Style
	Marked      lipgloss.Style
	StatusOK    lipgloss.Style
	StatusError lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive).
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   ColorPrimary,
		Secondary: ColorSecondary,
		Subtext:   ColorSubtext,

		Tag:   lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Topic: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Key:   lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: ColorBgHighlight,
		Muted:     ColorMuted,
	}

	t.Base = r.NewStyle().Foreground(ColorText)

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.KeyText = r.NewStyle().Foreground(t.Key).Bold(true)
	t.TagText = r.NewStyle().Foreground(t.Tag)
	t.TopicText = r.NewStyle().Foreground(t.Topic)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.Marked = r.NewStyle().Foreground(ThemeFg("#FFD700")).Bold(true)
	t.StatusOK = r.NewStyle().Foreground(ColorSuccess)
	t.StatusError = r.NewStyle().Foreground(ColorDanger).Bold(true)

	return t
}

// ThemeFor returns DefaultTheme with the background forced to the ui.theme
// config value ("dark" or "light"). Anything else keeps auto detection.
func ThemeFor(r *lipgloss.Renderer, name string) Theme {
	switch name {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
	return DefaultTheme(r)
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
