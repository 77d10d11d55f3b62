package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/reqdb/internal/datasource"
	"github.com/vanderheijden86/reqdb/pkg/browse"
	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/export"
	"github.com/vanderheijden86/reqdb/pkg/loader"
	"github.com/vanderheijden86/reqdb/pkg/model"
	"github.com/vanderheijden86/reqdb/pkg/rows"
	"github.com/vanderheijden86/reqdb/pkg/watcher"
)

// View width thresholds for adaptive layout
const (
	SplitViewThreshold = 100
	WideViewThreshold  = 140
	MinDetailPaneWidth = 40
)

// DefaultLoadTimeout bounds one load started from the TUI.
const DefaultLoadTimeout = 60 * time.Second

// focus represents which UI element has keyboard focus
type focus int

const (
	focusList focus = iota
	focusSearch
	focusPicker
	focusExport
	focusDetail
	focusHelp
)

var focusNames = map[focus]string{
	focusList:   "list",
	focusSearch: "search",
	focusPicker: "picker",
	focusExport: "export",
	focusDetail: "detail",
	focusHelp:   "help",
}

type pickerKind int

const (
	pickerTags pickerKind = iota
	pickerTopics
)

// LoadFunc loads the catalogue tree. It is called for the first load, for
// manual reloads and for watch-mode reloads.
type LoadFunc func(ctx context.Context) (*loader.Tree, error)

// Options configures the browse view.
type Options struct {
	// Source is shown in the header (URL or file path).
	Source string
	// Tree is an already loaded tree. When nil, Init runs Load.
	Tree *loader.Tree
	Load LoadFunc
	// Watcher triggers reloads when the snapshot file changes.
	Watcher *watcher.Watcher
	Order   rows.Order
	// Headers overrides the extra columns taken from the tree.
	Headers      map[int]string
	SearchFields []browse.Field
	// OutDir is where exports are written.
	OutDir string
}

// TreeLoadedMsg carries the result of a load started with Token.
type TreeLoadedMsg struct {
	Token loader.Token
	Tree  *loader.Tree
	Err   error
}

// FileChangedMsg is sent when the watched snapshot changed on disk.
type FileChangedMsg struct{}

// ExportDoneMsg reports a finished export.
type ExportDoneMsg struct {
	Result export.Result
	Err    error
}

// LoadCmd runs load and reports the result tagged with tok.
func LoadCmd(ctx context.Context, tok loader.Token, load LoadFunc) tea.Cmd {
	return func() tea.Msg {
		tree, err := load(ctx)
		return TreeLoadedMsg{Token: tok, Tree: tree, Err: err}
	}
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// ExportCmd runs the export off the event loop.
func ExportCmd(e *export.Exporter, req export.Request) tea.Cmd {
	return func() tea.Msg {
		res, err := e.Export(context.Background(), req)
		return ExportDoneMsg{Result: res, Err: err}
	}
}

// Model is the Bubble Tea model of the browse view.
type Model struct {
	opts  Options
	theme Theme

	session    *loader.Session
	cancelLoad context.CancelFunc
	loading    bool
	loadErr    error

	tree    *loader.Tree
	headers map[int]string
	kinds   map[int]model.ExtraKind
	result  rows.Result
	state   browse.State
	visible []model.Row

	cursor int
	offset int

	focused    focus
	prevFocus  focus
	search     textinput.Model
	picker     PickerModel
	pickerKind pickerKind
	formats    []export.Format
	formatIdx  int
	exporter   *export.Exporter

	showDetail bool
	detail     *DetailRenderer
	viewport   viewport.Model

	statusMsg     string
	statusIsError bool

	width  int
	height int
}

// NewModel creates the browse view. Call Init through tea.NewProgram.
func NewModel(opts Options, theme Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "search key, title, description..."
	ti.Prompt = "/ "
	ti.CharLimit = 200

	if opts.OutDir == "" || opts.OutDir == export.Stdout {
		opts.OutDir = "."
	}

	m := Model{
		opts:     opts,
		theme:    theme,
		session:  &loader.Session{},
		search:   ti,
		formats:  export.AllFormats(),
		exporter: export.NewExporter(),
		detail:   NewDetailRenderer(60),
		viewport: viewport.New(60, 20),
		width:    80,
		height:   24,
	}
	if opts.Tree != nil {
		m.applyTree(opts.Tree)
	}
	return m
}

// Init starts the first load (unless a tree was supplied) and the watcher.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.tree == nil && m.opts.Load != nil {
		cmds = append(cmds, m.startLoad())
	}
	if m.opts.Watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

// startLoad supersedes any running load and returns the command for a new
// one.
func (m *Model) startLoad() tea.Cmd {
	if m.opts.Load == nil {
		return nil
	}
	if m.cancelLoad != nil {
		m.cancelLoad()
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultLoadTimeout)
	m.cancelLoad = cancel
	m.loading = true
	tok := m.session.Begin()
	debug.Logw("load started", "token", tok, "source", m.opts.Source)
	return LoadCmd(ctx, tok, m.opts.Load)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case TreeLoadedMsg:
		if !m.session.Current(msg.Token) {
			debug.Logw("dropping stale load", "token", msg.Token)
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.loadErr = msg.Err
			m.setStatus(fmt.Sprintf("Load failed: %v", msg.Err), true)
			return m, nil
		}
		m.loadErr = nil
		m.applyTree(msg.Tree)
		return m, nil

	case FileChangedMsg:
		cmds := []tea.Cmd{m.startLoad()}
		if m.opts.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
		}
		return m, tea.Batch(cmds...)

	case ExportDoneMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Export failed: %v", msg.Err), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Exported %d requirements to %s", msg.Result.Requirements, msg.Result.Path), false)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		switch m.focused {
		case focusSearch:
			return m.handleSearchKeys(msg)
		case focusPicker:
			return m.handlePickerKeys(msg), nil
		case focusExport:
			return m.handleExportKeys(msg)
		case focusDetail:
			return m.handleDetailKeys(msg)
		case focusHelp:
			m.focused = m.prevFocus
			return m, nil
		default:
			return m.handleListKeys(msg)
		}
	}
	return m, nil
}

func (m *Model) quit() tea.Cmd {
	if m.cancelLoad != nil {
		m.cancelLoad()
	}
	return tea.Quit
}

func (m *Model) setStatus(s string, isErr bool) {
	m.statusMsg = s
	m.statusIsError = isErr
}

// applyTree flattens tree and carries the browse state over from the
// previous tree: search, sort, label selections and row marks that still
// resolve.
func (m *Model) applyTree(tree *loader.Tree) {
	prev := m.tree

	headers := m.opts.Headers
	if headers == nil {
		headers = tree.Headers()
	}
	res := rows.Flatten(rows.FromCatalogue(tree.Catalogue), rows.Options{Headers: headers, Order: m.opts.Order})

	m.tree = tree
	m.headers = headers
	m.kinds = make(map[int]model.ExtraKind, len(tree.ExtraTypes))
	for _, et := range tree.ExtraTypes {
		m.kinds[et.ID] = et.ExtraType
	}
	m.state = carryState(m.state, prev != nil, res, m.opts.SearchFields)
	m.result = res
	m.detail.Reset()
	m.refresh()

	if prev == nil {
		m.setStatus(fmt.Sprintf("Loaded %d requirements", len(res.Rows)), false)
		return
	}
	diff := datasource.DetectChanges(prev.Catalogue, tree.Catalogue, "previous", "current", datasource.DefaultDiffOptions())
	m.setStatus("Reloaded: "+diff.Short(), false)
}

func carryState(old browse.State, hadTree bool, res rows.Result, fields []browse.Field) browse.State {
	s := browse.NewState(res)
	if len(fields) > 0 {
		s = s.WithSearchFields(fields...)
	}
	if !hadTree {
		return s
	}
	s = s.WithSearch(old.Search).
		WithSearchFields(old.SearchFields...).
		WithSortByKey(old.SortByKey).
		WithTags(carrySelection(old.Tags, res.Tags)).
		WithTopics(carrySelection(old.Topics, res.Topics))

	present := make(map[int]struct{}, len(res.Rows))
	for _, r := range res.Rows {
		present[r.ID] = struct{}{}
	}
	var keep []int
	for _, id := range old.SelectedIDs() {
		if _, ok := present[id]; ok {
			keep = append(keep, id)
		}
	}
	return s.SelectRows(keep...)
}

func carrySelection(old browse.Selection, ix *rows.Index) browse.Selection {
	if old.All {
		return browse.SelectAll(ix)
	}
	sel := browse.SelectNone()
	for l := range old.Labels {
		if ix.Contains(l) {
			sel.Labels[l] = struct{}{}
		}
	}
	return sel
}

// refresh recomputes the visible rows and clamps the cursor.
func (m *Model) refresh() {
	m.visible = browse.Visible(m.result.Rows, m.state)
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scrollToCursor()
	m.updateViewportContent()
}

func (m *Model) setState(s browse.State) {
	m.state = s
	m.refresh()
}

func (m *Model) bodyHeight() int {
	// header, column header, footer
	h := m.height - 3
	if m.searchBarVisible() {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) searchBarVisible() bool {
	return m.focused == focusSearch || m.state.Search != ""
}

func (m *Model) scrollToCursor() {
	h := m.bodyHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scrollToCursor()
	m.updateViewportContent()
}

func (m *Model) isSplitView() bool {
	return m.showDetail && m.width >= SplitViewThreshold && m.detailPaneWidth() >= MinDetailPaneWidth
}

func (m *Model) detailPaneWidth() int {
	if m.width >= WideViewThreshold {
		return m.width / 2
	}
	return m.width * 2 / 5
}

func (m *Model) resize() {
	w := m.width
	if m.isSplitView() {
		w = m.detailPaneWidth()
	}
	m.viewport.Width = w - 2
	m.viewport.Height = m.height - 2
	m.detail.SetWidth(w - 4)
	m.picker.SetSize(m.width, m.height)
	m.scrollToCursor()
	m.updateViewportContent()
}

func (m *Model) updateViewportContent() {
	r, ok := m.currentRow()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(m.detail.Render(r.ID, DetailMarkdown(r, m.headers, m.kinds)))
	m.viewport.GotoTop()
}

func (m *Model) currentRow() (model.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return model.Row{}, false
	}
	return m.visible[m.cursor], true
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, m.quit()
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "ctrl+d", "pgdown":
		m.moveCursor(m.bodyHeight() / 2)
	case "ctrl+u", "pgup":
		m.moveCursor(-m.bodyHeight() / 2)
	case "g", "home":
		m.moveCursor(-len(m.visible))
	case "G", "end":
		m.moveCursor(len(m.visible))
	case "/":
		m.focused = focusSearch
		m.search.SetValue(m.state.Search)
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd
	case "esc":
		if m.state.Search != "" {
			m.setState(m.state.WithSearch(""))
		}
	case "t":
		m.openPicker(pickerTags)
	case "o":
		m.openPicker(pickerTopics)
	case "s":
		m.setState(m.state.WithSortByKey(!m.state.SortByKey))
		if m.state.SortByKey {
			m.setStatus("Sorted by key", false)
		} else {
			m.setStatus("Tree order", false)
		}
	case " ", "space", "x":
		if r, ok := m.currentRow(); ok {
			m.state = m.state.ToggleRow(r.ID)
			m.moveCursor(1)
		}
	case "a":
		m.state = m.state.SelectVisible(m.visible)
		m.setStatus(fmt.Sprintf("%d requirements selected", len(m.state.Selected)), false)
	case "A":
		m.state = m.state.ClearSelection()
		m.setStatus("Selection cleared", false)
	case "e":
		if m.tree == nil {
			return m, nil
		}
		if len(m.state.Selected) == 0 {
			m.setStatus("Nothing selected: mark rows with space or a", true)
			return m, nil
		}
		m.focused = focusExport
	case "enter":
		m.showDetail = !m.showDetail
		m.resize()
		if m.showDetail && !m.isSplitView() {
			m.focused = focusDetail
		}
	case "tab":
		if m.isSplitView() {
			m.focused = focusDetail
		}
	case "y":
		m.copyToClipboard(false)
	case "C":
		m.copyToClipboard(true)
	case "r":
		if m.opts.Load == nil {
			m.setStatus("Nothing to reload", true)
			return m, nil
		}
		m.setStatus("Reloading...", false)
		return m, m.startLoad()
	case "?":
		m.prevFocus = m.focused
		m.focused = focusHelp
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.focused = focusList
		m.search.Blur()
		return m, nil
	case "esc":
		m.focused = focusList
		m.search.Blur()
		m.search.SetValue("")
		m.setState(m.state.WithSearch(""))
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != m.state.Search {
		m.setState(m.state.WithSearch(v))
	}
	return m, cmd
}

func (m *Model) openPicker(kind pickerKind) {
	if m.tree == nil {
		return
	}
	m.pickerKind = kind
	if kind == pickerTags {
		m.picker = NewPickerModel("Filter by Tag", m.result.Tags.Labels(), m.state.Tags, m.theme)
	} else {
		m.picker = NewPickerModel("Filter by Topic", m.result.Topics.Labels(), m.state.Topics, m.theme)
	}
	m.picker.SetSize(m.width, m.height)
	m.focused = focusPicker
}

func (m Model) handlePickerKeys(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.focused = focusList
		return m
	case "j", "down", "ctrl+n":
		m.picker.MoveDown()
		return m
	case "k", "up", "ctrl+p":
		m.picker.MoveUp()
		return m
	case "enter":
		m.picker.ToggleCurrent()
	case "ctrl+a":
		m.picker.SelectAll()
	case "ctrl+x":
		m.picker.SelectNone()
	default:
		m.picker.UpdateInput(msg)
		return m
	}
	// Filters apply live while the picker is open.
	if m.pickerKind == pickerTags {
		m.setState(m.state.WithTags(m.picker.Selection()))
	} else {
		m.setState(m.state.WithTopics(m.picker.Selection()))
	}
	return m
}

func (m Model) handleExportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.focused = focusList
	case "j", "down":
		if m.formatIdx < len(m.formats)-1 {
			m.formatIdx++
		}
	case "k", "up":
		if m.formatIdx > 0 {
			m.formatIdx--
		}
	case "enter":
		m.focused = focusList
		f := m.formats[m.formatIdx]
		m.setStatus(fmt.Sprintf("Exporting %s...", f.Label()), false)
		return m, ExportCmd(m.exporter, m.exportRequest(f))
	}
	return m, nil
}

// exportRequest snapshots the current selection. Rows are passed in flatten
// order so CSV output does not depend on the table's sort.
func (m *Model) exportRequest(f export.Format) export.Request {
	return export.Request{
		Format:     f,
		Catalogue:  m.tree.Catalogue,
		ExtraTypes: m.tree.ExtraTypes,
		Rows:       m.result.Rows,
		Headers:    m.headers,
		Selected:   m.state.SelectedSet(),
		OutDir:     m.opts.OutDir,
	}
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, m.quit()
	case "esc", "tab":
		m.focused = focusList
		if !m.isSplitView() {
			m.showDetail = false
			m.resize()
		}
		return m, nil
	case "enter":
		m.focused = focusList
		m.showDetail = false
		m.resize()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) copyToClipboard(full bool) {
	r, ok := m.currentRow()
	if !ok {
		m.setStatus("No requirement under cursor", true)
		return
	}
	text := r.Key
	if full {
		text = DetailMarkdown(r, m.headers, m.kinds)
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %s to clipboard", r.Key), false)
}

// View renders the current screen.
func (m Model) View() string {
	if m.tree == nil {
		return m.renderLoadingScreen()
	}
	switch m.focused {
	case focusPicker:
		return m.picker.View()
	case focusExport:
		return m.renderExportMenu()
	case focusHelp:
		return m.renderHelpOverlay()
	}
	if m.showDetail && !m.isSplitView() {
		return m.renderDetailOnly()
	}

	body := m.renderTable(m.tableWidth())
	if m.isSplitView() {
		style := PanelStyle
		if m.focused == focusDetail {
			style = FocusedPanelStyle
		}
		pane := style.Width(m.detailPaneWidth() - 2).Height(m.bodyHeight() + 1).
			Render(m.renderDetailHeader() + "\n" + m.viewport.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, pane)
	}

	parts := []string{m.renderHeader()}
	if m.searchBarVisible() {
		parts = append(parts, m.search.View())
	}
	parts = append(parts, body, m.renderFooter())
	return strings.Join(parts, "\n")
}

func (m Model) tableWidth() int {
	if m.isSplitView() {
		return m.width - m.detailPaneWidth()
	}
	return m.width
}

func (m Model) renderLoadingScreen() string {
	t := m.theme
	var msg string
	if m.loadErr != nil {
		msg = t.StatusError.Render("Load failed: "+m.loadErr.Error()) + "\n\n" +
			t.MutedText.Render("r: retry | q: quit")
	} else {
		msg = t.PrimaryBold.Render("Loading "+m.opts.Source+"...")
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
}

func (m Model) renderHeader() string {
	t := m.theme
	title := t.Header.Render("ReqDB")
	name := m.tree.Catalogue.Title
	if name == "" {
		name = m.opts.Source
	}

	filters := []string{
		fmt.Sprintf("%d/%d rows", len(m.visible), len(m.result.Rows)),
		fmt.Sprintf("%d selected", len(m.state.Selected)),
		"tags: " + selectionLabel(m.state.Tags),
		"topics: " + selectionLabel(m.state.Topics),
	}
	if m.state.SortByKey {
		filters = append(filters, "sort: key")
	}
	if m.loading {
		filters = append(filters, "loading...")
	}
	if m.opts.Watcher != nil {
		filters = append(filters, "watching")
	}
	line := title + " " + t.PrimaryBold.Render(name) + "  " + t.MutedText.Render(strings.Join(filters, " · "))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func selectionLabel(s browse.Selection) string {
	if s.All {
		return "all"
	}
	return fmt.Sprintf("%d", s.Count())
}

// column widths for the table; title takes what is left.
func (m Model) columnWidths(total int) (key, title, tags, topic int) {
	key = 10
	for _, r := range m.visible {
		if w := lipgloss.Width(r.Key); w > key {
			key = w
		}
	}
	if key > 18 {
		key = 18
	}
	tags, topic = 16, 22
	if total < 90 {
		tags, topic = 12, 0
	}
	title = total - key - tags - topic - 2 - 4
	if title < 10 {
		title = 10
	}
	return key, title, tags, topic
}

func (m Model) renderTable(width int) string {
	t := m.theme
	keyW, titleW, tagsW, topicW := m.columnWidths(width)

	head := "  " + cell("Key", keyW) + " " + cell("Title", titleW) + " " + cell("Tags", tagsW)
	if topicW > 0 {
		head += " " + cell("Topic", topicW)
	}
	lines := []string{t.PrimaryBold.Render(head)}

	h := m.bodyHeight()
	if len(m.visible) == 0 {
		lines = append(lines, t.MutedText.Render("  No requirements match the current filters"))
		h--
	}
	for i := m.offset; i < len(m.visible) && i < m.offset+h; i++ {
		r := m.visible[i]
		mark := "  "
		if m.state.IsSelected(r.ID) {
			mark = t.Marked.Render("● ")
		}
		row := cell(r.Key, keyW) + " " + cell(r.Title, titleW) + " " + cell(strings.Join(r.Tags, ", "), tagsW)
		if topicW > 0 {
			topic := ""
			if len(r.Topics) > 0 {
				topic = r.Topics[len(r.Topics)-1]
			}
			row += " " + cell(topic, topicW)
		}
		if i == m.cursor {
			row = t.Selected.Render(row)
		}
		lines = append(lines, mark+row)
	}
	for len(lines) < h+1 {
		lines = append(lines, "")
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderDetailOnly() string {
	hint := m.theme.MutedText.Render("esc: back | j/k: scroll")
	return m.renderDetailHeader() + "\n" + hint + "\n" + m.viewport.View()
}

// renderDetailHeader is the one-line summary above the detail text: key,
// tags, comment count and a badge per extra kind present.
func (m Model) renderDetailHeader() string {
	t := m.theme
	r, ok := m.currentRow()
	if !ok {
		return ""
	}
	parts := []string{t.KeyText.Render(r.Key)}
	if tags := RenderTagBadges(r.Tags, t); tags != "" {
		parts = append(parts, tags)
	}
	if c := RenderCommentCount(r, t); c != "" {
		parts = append(parts, c)
	}
	for _, id := range sortedIDs(m.headers) {
		if r.Extra(id) != "" {
			parts = append(parts, RenderKindBadge(m.kinds[id])+" "+m.headers[id])
		}
	}
	w := m.viewport.Width
	return lipgloss.NewStyle().MaxWidth(w).Render(strings.Join(parts, "  ")) + "\n" + RenderDivider(w)
}

func (m Model) renderFooter() string {
	t := m.theme
	if m.statusMsg != "" {
		if m.statusIsError {
			return t.StatusError.Render(m.statusMsg)
		}
		return t.StatusOK.Render(m.statusMsg)
	}
	return t.MutedText.Render("/ search · t tags · o topics · s sort · space mark · a all · e export · enter detail · ? help · q quit")
}

func (m Model) renderExportMenu() string {
	t := m.theme
	lines := []string{
		t.PrimaryBold.Render(fmt.Sprintf("Export %d requirements", len(m.state.Selected))),
		"",
	}
	for i, f := range m.formats {
		prefix := "  "
		style := t.Base
		if i == m.formatIdx {
			prefix = "> "
			style = t.PrimaryBold
		}
		lines = append(lines, style.Render(prefix+f.Label()+"  "+t.MutedText.Render(f.Filename())))
	}
	lines = append(lines, "", t.MutedText.Render("to "+m.opts.OutDir), "", t.MutedText.Render("enter: export | esc: cancel"))

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

var helpLines = [][2]string{
	{"j/k, ↑/↓", "move"},
	{"g/G", "first / last row"},
	{"/", "search"},
	{"esc", "clear search"},
	{"t / o", "filter tags / topics"},
	{"s", "toggle sort by key"},
	{"space, x", "mark row for export"},
	{"a / A", "mark all visible / clear marks"},
	{"e", "export marked rows"},
	{"enter", "toggle detail pane"},
	{"tab", "focus detail pane"},
	{"y / C", "copy key / copy as markdown"},
	{"r", "reload"},
	{"q", "quit"},
}

func (m Model) renderHelpOverlay() string {
	t := m.theme
	lines := []string{t.PrimaryBold.Render("Keys"), ""}
	for _, kv := range helpLines {
		lines = append(lines, t.KeyText.Render(padRight(kv[0], 12))+" "+kv[1])
	}
	lines = append(lines, "", t.MutedText.Render("any key: close"))
	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// FocusState returns the name of the focused element.
func (m Model) FocusState() string {
	return focusNames[m.focused]
}

// VisibleRows returns the rows currently shown, in display order.
func (m Model) VisibleRows() []model.Row {
	return m.visible
}

// State returns the browse state.
func (m Model) State() browse.State {
	return m.state
}

// Cursor returns the index of the highlighted visible row.
func (m Model) Cursor() int {
	return m.cursor
}

// StatusMessage returns the footer message and whether it is an error.
func (m Model) StatusMessage() (string, bool) {
	return m.statusMsg, m.statusIsError
}

// Tree returns the loaded tree, or nil before the first load.
func (m Model) Tree() *loader.Tree {
	return m.tree
}

// Session exposes the load session, mostly for tests.
func (m Model) Session() *loader.Session {
	return m.session
}
