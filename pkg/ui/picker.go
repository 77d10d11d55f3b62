package ui

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/reqdb/pkg/browse"
)

// PickerModel is a fuzzy-search popup over the tag or topic index. Unlike a
// single-choice picker it edits a whole browse.Selection: enter toggles the
// highlighted label and the popup stays open until esc.
type PickerModel struct {
	title         string
	allLabels     []string
	filtered      []string
	selection     browse.Selection
	input         textinput.Model
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewPickerModel creates a picker over labels starting from sel.
func NewPickerModel(title string, labels []string, sel browse.Selection, theme Theme) PickerModel {
	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.Strings(sorted)

	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 50
	ti.Width = 30
	ti.Focus()

	return PickerModel{
		title:     title,
		allLabels: sorted,
		filtered:  sorted,
		selection: sel,
		input:     ti,
		theme:     theme,
	}
}

// SetSize updates the picker dimensions
func (m *PickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetLabels updates the available labels
func (m *PickerModel) SetLabels(labels []string) {
	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.Strings(sorted)
	m.allLabels = sorted
	m.filterLabels()
}

// MoveUp moves the cursor up
func (m *PickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves the cursor down
func (m *PickerModel) MoveDown() {
	if m.selectedIndex < len(m.filtered)-1 {
		m.selectedIndex++
	}
}

// Current returns the label under the cursor, or "".
func (m *PickerModel) Current() string {
	if len(m.filtered) == 0 || m.selectedIndex >= len(m.filtered) {
		return ""
	}
	return m.filtered[m.selectedIndex]
}

// ToggleCurrent flips the label under the cursor.
func (m *PickerModel) ToggleCurrent() {
	if label := m.Current(); label != "" {
		m.selection = m.selection.Toggle(label)
	}
}

// SelectAll resets the selection to every label with All set.
func (m *PickerModel) SelectAll() {
	sel := browse.Selection{All: true, Labels: make(map[string]struct{}, len(m.allLabels))}
	for _, l := range m.allLabels {
		sel.Labels[l] = struct{}{}
	}
	m.selection = sel
}

// SelectNone empties the selection.
func (m *PickerModel) SelectNone() {
	m.selection = browse.SelectNone()
}

// Selection returns the edited selection.
func (m *PickerModel) Selection() browse.Selection {
	return m.selection
}

// UpdateInput processes a key message for the text input
func (m *PickerModel) UpdateInput(msg interface{}) {
	m.input, _ = m.input.Update(msg)
	m.filterLabels()
}

// Reset clears the input and resets the cursor
func (m *PickerModel) Reset() {
	m.input.SetValue("")
	m.filterLabels()
}

// filterLabels filters the labels based on current input using fuzzy matching
func (m *PickerModel) filterLabels() {
	query := strings.ToLower(strings.TrimSpace(m.input.Value()))
	if query == "" {
		m.filtered = m.allLabels
		m.selectedIndex = 0
		return
	}

	type scored struct {
		label string
		score int
	}

	var matches []scored
	for _, label := range m.allLabels {
		if score := fuzzyScore(label, query); score > 0 {
			matches = append(matches, scored{label, score})
		}
	}

	// Sort by score (higher is better), then alphabetically
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].label < matches[j].label
	})

	m.filtered = make([]string, len(matches))
	for i, match := range matches {
		m.filtered[i] = match.label
	}

	if m.selectedIndex >= len(m.filtered) {
		m.selectedIndex = len(m.filtered) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}

// fuzzyScore returns a score for how well query matches label (0 = no match)
// Uses fzf-style scoring: consecutive matches, word boundary bonuses
func fuzzyScore(label, query string) int {
	label = strings.ToLower(label)
	query = strings.ToLower(query)

	if label == query {
		return 1000
	}
	if strings.HasPrefix(label, query) {
		return 500 + len(query)
	}
	if strings.Contains(label, query) {
		return 200 + len(query)
	}

	// Fuzzy subsequence match
	li, qi := 0, 0
	score := 0
	consecutive := 0
	lastMatchIdx := -1

	for li < len(label) && qi < len(query) {
		if label[li] == query[qi] {
			qi++
			matchScore := 10

			if lastMatchIdx == li-1 {
				consecutive++
				matchScore += consecutive * 5
			} else {
				consecutive = 0
			}

			if li == 0 || !unicode.IsLetter(rune(label[li-1])) {
				matchScore += 15
			}

			score += matchScore
			lastMatchIdx = li
		}
		li++
	}

	if qi == len(query) {
		return score
	}
	return 0
}

// View renders the picker overlay
func (m *PickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 44
	if m.width < 54 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	maxVisible := 10
	if m.height < 16 {
		maxVisible = m.height - 8
	}
	if maxVisible < 3 {
		maxVisible = 3
	}

	var lines []string

	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true)
	summary := "all"
	if !m.selection.All {
		summary = strconv.Itoa(m.selection.Count()) + " selected"
	}
	lines = append(lines, titleStyle.Render(m.title)+t.MutedText.Render("  ("+summary+")"))
	lines = append(lines, "")

	inputStyle := t.Renderer.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(t.Secondary).
		Padding(0, 1).
		Width(boxWidth - 6)
	lines = append(lines, inputStyle.Render(m.input.View()))
	lines = append(lines, "")

	if len(m.filtered) == 0 {
		dimStyle := t.Renderer.NewStyle().
			Foreground(t.Secondary).
			Italic(true)
		lines = append(lines, dimStyle.Render("  No matching labels"))
	} else {
		start := 0
		if m.selectedIndex >= maxVisible {
			start = m.selectedIndex - maxVisible + 1
		}
		end := start + maxVisible
		if end > len(m.filtered) {
			end = len(m.filtered)
		}

		for i := start; i < end; i++ {
			label := m.filtered[i]
			isCursor := i == m.selectedIndex

			itemStyle := t.Renderer.NewStyle()
			if isCursor {
				itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
			} else {
				itemStyle = itemStyle.Foreground(t.Base.GetForeground())
			}

			prefix := "  "
			if isCursor {
				prefix = "> "
			}
			mark := "[ ] "
			if m.selection.Has(label) {
				mark = "[x] "
			}

			displayLabel := truncateRunesHelper(label, boxWidth-12, "...")
			lines = append(lines, itemStyle.Render(prefix+mark+displayLabel))
		}

		if len(m.filtered) > maxVisible {
			countStyle := t.Renderer.NewStyle().
				Foreground(t.Secondary).
				Italic(true)
			lines = append(lines, "")
			lines = append(lines, countStyle.Render(
				"  "+strings.Repeat(" ", boxWidth/2-10)+
					"("+strconv.Itoa(m.selectedIndex+1)+"/"+strconv.Itoa(len(m.filtered))+")",
			))
		}
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("enter: toggle | ctrl+a: all | ctrl+x: none | esc: done"))

	content := strings.Join(lines, "\n")

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(content),
	)
}

// InputValue returns the current input value
func (m *PickerModel) InputValue() string {
	return m.input.Value()
}

// FilteredCount returns the number of filtered labels
func (m *PickerModel) FilteredCount() int {
	return len(m.filtered)
}
