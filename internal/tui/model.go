// Package tui is the interactive front end: one query editor and one result
// table per configured tab, a connection selector and a message line.
//
// The Model implements execution.Display. Every display mutation happens
// inside Update, either directly from a key handler or from a function the
// coordinator posted through the program's message queue.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/sqltui/internal/config"
	"github.com/leapstack-labs/sqltui/internal/execution"
	"github.com/leapstack-labs/sqltui/internal/session"
)

// Runner starts and cancels executions.
type Runner interface {
	Run(tab string) error
	Cancel()
}

// Launcher opens files in external programs.
type Launcher interface {
	Edit(ctx context.Context, path string) error
	View(ctx context.Context, path string) error
}

// ConfigStore is the configuration the model reads and reloads.
type ConfigStore interface {
	Current() *config.Config
	Reload() (*config.Config, error)
}

type pane int

const (
	paneEditor pane = iota
	paneResults
)

// uiFuncMsg carries a function posted by a worker to run on the UI loop.
type uiFuncMsg func()

// clearMessageMsg clears the message line if no newer message replaced it.
type clearMessageMsg struct {
	seq int
}

// configReloadedMsg reports a reload done outside the UI loop.
type configReloadedMsg struct {
	cfg *config.Config
	err error
}

type redrawMsg struct{}

const (
	maxColumnWidth    = 40
	widthSampleRows   = 200
	chromeRows        = 5
	paneBorderRows    = 4
	minPaneHeight     = 3
	defaultWidth      = 80
	defaultHeight     = 24
	editorPlaceholder = "SELECT ..."
)

type tabView struct {
	key            string
	editor         textarea.Model
	table          table.Model
	hasResult      bool
	executeEnabled bool
}

// Model is the root bubbletea model.
type Model struct {
	ctx      context.Context
	store    ConfigStore
	sessions *session.Manager
	runner   Runner
	launcher Launcher
	logger   *slog.Logger
	version  string

	keys keyMap
	help help.Model

	tabs   []string
	views  map[string]*tabView
	active int
	focus  pane

	selectedKey string
	selecting   bool
	choices     []string
	cursor      int

	message    string
	messageSeq int
	pending    []tea.Cmd

	width  int
	height int
}

// New creates the model with one view per session tab and activates the
// first tab.
func New(ctx context.Context, store ConfigStore, sessions *session.Manager, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Model{
		ctx:      ctx,
		store:    store,
		sessions: sessions,
		logger:   logger,
		keys:     defaultKeyMap(),
		help:     help.New(),
		views:    make(map[string]*tabView),
		width:    defaultWidth,
		height:   defaultHeight,
	}
	m.syncTabs("")
	m.layout()
	return m
}

func newTabView(key string) *tabView {
	ta := textarea.New()
	ta.Placeholder = editorPlaceholder
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0

	t := table.New(table.WithFocused(false))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(muted).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(accent)
	t.SetStyles(styles)

	return &tabView{
		key:            key,
		editor:         ta,
		table:          t,
		executeEnabled: true,
	}
}

// syncTabs rebuilds the view list from the session manager. Views of tabs
// that still exist are kept. prefer names the tab to activate.
func (m *Model) syncTabs(prefer string) {
	tabs := m.sessions.Sync()

	views := make(map[string]*tabView, len(tabs))
	for _, tab := range tabs {
		if v, ok := m.views[tab]; ok {
			views[tab] = v
			continue
		}
		views[tab] = newTabView(tab)
	}
	m.tabs = tabs
	m.views = views

	m.active = 0
	for i, tab := range tabs {
		if tab == prefer {
			m.active = i
			break
		}
	}
	if v := m.activeView(); v != nil && v.key != prefer {
		v.editor.SetValue(m.sessions.SwitchTo(v.key))
	}
	m.focusPane(paneEditor)
}

func (m *Model) activeView() *tabView {
	if m.active < 0 || m.active >= len(m.tabs) {
		return nil
	}
	return m.views[m.tabs[m.active]]
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()

	case uiFuncMsg:
		msg()

	case clearMessageMsg:
		if msg.seq == m.messageSeq {
			m.message = ""
		}

	case configReloadedMsg:
		m.applyReload(msg.cfg, msg.err)

	case redrawMsg:
		cmd = tea.ClearScreen

	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	default:
		cmd = m.updateFocused(msg)
	}

	return m, m.flush(cmd)
}

// flush returns cmd together with commands queued by display callbacks.
func (m *Model) flush(cmd tea.Cmd) tea.Cmd {
	if len(m.pending) == 0 {
		return cmd
	}
	cmds := append(m.pending, cmd)
	m.pending = nil
	return tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.selecting {
		m.handleSelectorKey(msg)
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.persistActive()
		if m.runner != nil {
			m.runner.Cancel()
		}
		return tea.Quit

	case key.Matches(msg, m.keys.Execute):
		m.execute()
		return nil

	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(m.active + 1)

	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(m.active - 1)

	case key.Matches(msg, m.keys.Focus):
		if m.focus == paneEditor {
			m.persistActive()
			return m.focusPane(paneResults)
		}
		return m.focusPane(paneEditor)

	case key.Matches(msg, m.keys.Connection):
		m.openSelector()
		return nil

	case key.Matches(msg, m.keys.About),
		key.Matches(msg, m.keys.Help) && m.focus != paneEditor:
		m.about()
		return nil

	case key.Matches(msg, m.keys.Reload):
		cfg, err := m.store.Reload()
		m.applyReload(cfg, err)
		return nil

	case key.Matches(msg, m.keys.Edit):
		m.edit()
		return nil

	case key.Matches(msg, m.keys.Export),
		key.Matches(msg, m.keys.ExportKey) && m.focus == paneResults:
		m.export()
		return nil
	}

	return m.updateFocused(msg)
}

func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	v := m.activeView()
	if v == nil {
		return nil
	}
	var cmd tea.Cmd
	switch m.focus {
	case paneEditor:
		v.editor, cmd = v.editor.Update(msg)
	case paneResults:
		v.table, cmd = v.table.Update(msg)
	}
	return cmd
}

func (m *Model) focusPane(p pane) tea.Cmd {
	v := m.activeView()
	if v == nil {
		return nil
	}
	m.focus = p
	if p == paneEditor {
		v.table.Blur()
		return v.editor.Focus()
	}
	v.editor.Blur()
	v.table.Focus()
	return nil
}

// persistActive stores the active editor's text in its session and scratch
// file. This is the focus-loss path.
func (m *Model) persistActive() {
	v := m.activeView()
	if v == nil {
		return
	}
	if err := m.sessions.Blur(v.key, v.editor.Value()); err != nil {
		m.logger.Warn("failed to save query text", slog.String("tab", v.key), slog.Any("error", err))
		m.ShowMessage("I/O error: "+err.Error(), 0)
	}
}

func (m *Model) execute() {
	v := m.activeView()
	if v == nil || !v.executeEnabled {
		return
	}
	m.persistActive()
	m.SetResultTable(v.key, nil, nil)

	if m.runner == nil {
		return
	}
	err := m.runner.Run(v.key)
	switch {
	case err == nil:
	case errors.Is(err, execution.ErrNoConnectionSelected):
		m.logger.Debug("execute ignored: no connection selected", slog.String("tab", v.key))
	default:
		m.ShowMessage(err.Error(), 0)
	}
}

func (m *Model) switchTab(i int) tea.Cmd {
	n := len(m.tabs)
	if n < 2 {
		return nil
	}
	i = (i%n + n) % n
	if i == m.active {
		return nil
	}

	m.persistActive()
	if old := m.activeView(); old != nil {
		old.editor.Blur()
		old.table.Blur()
	}

	m.active = i
	v := m.activeView()
	v.editor.SetValue(m.sessions.SwitchTo(v.key))
	return m.focusPane(paneEditor)
}

func (m *Model) openSelector() {
	m.choices = m.store.Current().ConnectionKeys()
	if len(m.choices) == 0 {
		m.ShowMessage("No connections configured.", 0)
		return
	}
	m.cursor = 0
	for i, k := range m.choices {
		if k == m.selectedKey {
			m.cursor = i
		}
	}
	m.selecting = true
}

func (m *Model) handleSelectorKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Choose):
		m.selectedKey = m.choices[m.cursor]
		m.selecting = false
		m.logger.Debug("connection selected", slog.String("connection", m.selectedKey))
	case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Connection):
		m.selecting = false
	}
}

// SelectConnection preselects the connection with key, if configured.
func (m *Model) SelectConnection(key string) bool {
	if _, ok := m.store.Current().Connection(key); !ok {
		return false
	}
	m.selectedKey = key
	return true
}

func (m *Model) about() {
	text := "sqltui: SQL workspace for the terminal"
	if m.version != "" {
		text += " " + m.version
	}
	m.ShowMessage(text, 0)
}

func (m *Model) applyReload(cfg *config.Config, err error) {
	if err != nil {
		m.logger.Warn("config reload failed", slog.Any("error", err))
		m.ShowMessage("Configuration error: "+err.Error(), 0)
		return
	}

	prefer := ""
	if v := m.activeView(); v != nil {
		prefer = v.key
		if saveErr := m.sessions.Blur(v.key, v.editor.Value()); saveErr != nil {
			m.logger.Warn("failed to save query text", slog.Any("error", saveErr))
		}
	}
	if _, ok := cfg.Connection(m.selectedKey); !ok {
		m.selectedKey = ""
	}
	m.selecting = false
	m.syncTabs(prefer)
	m.layout()
	m.ShowMessage("Configuration reloaded.", 0)
}

func (m *Model) edit() {
	v := m.activeView()
	if v == nil || m.launcher == nil {
		return
	}
	if err := m.sessions.Blur(v.key, v.editor.Value()); err != nil {
		m.ShowMessage("I/O error: "+err.Error(), 0)
		return
	}

	if err := m.launcher.Edit(m.ctx, m.sessions.QueryFile(v.key)); err != nil {
		m.logger.Warn("editor failed", slog.Any("error", err))
		m.ShowMessage("Editor failed: "+err.Error(), 0)
	}
	v.editor.SetValue(m.sessions.SwitchTo(v.key))
}

func (m *Model) export() {
	v := m.activeView()
	if v == nil || m.launcher == nil {
		return
	}
	path := m.store.Current().ResultsFile(v.key)
	if _, err := os.Stat(path); err != nil {
		m.ShowMessage("No results to export.", 0)
		return
	}
	if err := m.launcher.View(m.ctx, path); err != nil {
		m.logger.Warn("viewer failed", slog.Any("error", err))
		m.ShowMessage("Viewer failed: "+err.Error(), 0)
	}
}

func (m *Model) layout() {
	avail := m.height - chromeRows - paneBorderRows
	editorH := max(minPaneHeight, avail*2/5)
	tableH := max(minPaneHeight, avail-editorH)
	w := max(10, m.width-2)

	for _, v := range m.views {
		v.editor.SetWidth(w)
		v.editor.SetHeight(editorH)
		v.table.SetWidth(w)
		v.table.SetHeight(tableH)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	v := m.activeView()
	if v == nil {
		return "no tabs configured\n"
	}

	parts := []string{
		m.renderTabs(),
		m.renderConnection(),
		m.paneStyle(paneEditor).Render(v.editor.View()),
		m.renderButton(v),
	}

	switch {
	case m.selecting:
		parts = append(parts, m.renderSelector())
	case v.hasResult:
		parts = append(parts, m.paneStyle(paneResults).Render(v.table.View()))
	default:
		parts = append(parts, m.paneStyle(paneResults).Render(labelStyle.Render("No results")))
	}

	parts = append(parts, messageStyle.Render(m.message), m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) paneStyle(p pane) lipgloss.Style {
	if m.focus == p {
		return focusedPaneStyle
	}
	return paneStyle
}

func (m *Model) renderTabs() string {
	rendered := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		label := tab
		if s := m.sessions.Get(tab); s != nil && s.Running() {
			label += " ●"
		}
		if i == m.active {
			rendered = append(rendered, activeTabStyle.Render(label))
		} else {
			rendered = append(rendered, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m *Model) renderConnection() string {
	label := "(none, ctrl+o to choose)"
	if p, ok := m.store.Current().Connection(m.selectedKey); ok {
		label = p.DisplayLabel()
	}
	return labelStyle.Render("Connection: ") + label
}

func (m *Model) renderButton(v *tabView) string {
	if v.executeEnabled {
		return buttonStyle.Render("Execute")
	}
	return disabledButtonStyle.Render("Running...")
}

func (m *Model) renderSelector() string {
	cfg := m.store.Current()
	var b strings.Builder
	b.WriteString(labelStyle.Render("Select connection"))
	for i, k := range m.choices {
		b.WriteString("\n")
		p, _ := cfg.Connection(k)
		line := fmt.Sprintf("  %s", p.DisplayLabel())
		if i == m.cursor {
			line = selectedItemStyle.Render("> " + p.DisplayLabel())
		}
		b.WriteString(line)
	}
	return selectorStyle.Render(b.String())
}

// ShowMessage implements execution.Display. d <= 0 uses the configured
// message duration.
func (m *Model) ShowMessage(text string, d time.Duration) {
	if d <= 0 {
		d = m.store.Current().MessageDuration()
	}
	m.messageSeq++
	seq := m.messageSeq
	m.message = text
	m.pending = append(m.pending, tea.Tick(d, func(time.Time) tea.Msg {
		return clearMessageMsg{seq: seq}
	}))
}

// SetResultTable implements execution.Display.
func (m *Model) SetResultTable(tab string, headers []string, rows [][]string) {
	v := m.views[tab]
	if v == nil {
		return
	}
	// Rows must be cleared before the column count changes.
	v.table.SetRows(nil)
	v.table.SetColumns(buildColumns(headers, rows))
	v.table.SetRows(buildRows(len(headers), rows))
	v.table.SetCursor(0)
	v.hasResult = len(headers) > 0
}

// SetExecuteEnabled implements execution.Display.
func (m *Model) SetExecuteEnabled(tab string, enabled bool) {
	if v := m.views[tab]; v != nil {
		v.executeEnabled = enabled
	}
}

// ActiveTab implements execution.Display.
func (m *Model) ActiveTab() string {
	if v := m.activeView(); v != nil {
		return v.key
	}
	return ""
}

// SelectedConnection implements execution.Display.
func (m *Model) SelectedConnection() (string, bool) {
	return m.selectedKey, m.selectedKey != ""
}

func buildColumns(headers []string, rows [][]string) []table.Column {
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		w := lipgloss.Width(h)
		for r := 0; r < len(rows) && r < widthSampleRows; r++ {
			if i < len(rows[r]) {
				w = max(w, lipgloss.Width(cell(rows[r][i])))
			}
		}
		cols[i] = table.Column{Title: h, Width: min(max(w, 1), maxColumnWidth)}
	}
	return cols
}

func buildRows(n int, rows [][]string) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		row := make(table.Row, n)
		for j := 0; j < n && j < len(r); j++ {
			row[j] = cell(r[j])
		}
		out[i] = row
	}
	return out
}

var flatten = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// cell flattens multi-line values so each record stays on one row.
func cell(s string) string {
	return flatten.Replace(s)
}
