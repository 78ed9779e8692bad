package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltui/internal/config"
	"github.com/leapstack-labs/sqltui/internal/execution"
	"github.com/leapstack-labs/sqltui/internal/session"
	"github.com/leapstack-labs/sqltui/internal/testutil"

	_ "github.com/leapstack-labs/sqltui/pkg/adapters/sqlite"
)

type fakeRunner struct {
	runs      []string
	err       error
	cancelled int
}

func (r *fakeRunner) Run(tab string) error {
	r.runs = append(r.runs, tab)
	return r.err
}

func (r *fakeRunner) Cancel() { r.cancelled++ }

type fakeLauncher struct {
	edited  []string
	viewed  []string
	onEdit  func(path string) error
	viewErr error
}

func (l *fakeLauncher) Edit(_ context.Context, path string) error {
	l.edited = append(l.edited, path)
	if l.onEdit != nil {
		return l.onEdit(path)
	}
	return nil
}

func (l *fakeLauncher) View(_ context.Context, path string) error {
	l.viewed = append(l.viewed, path)
	return l.viewErr
}

type fixture struct {
	dir      string
	cfgPath  string
	store    *config.Store
	sessions *session.Manager
	model    *Model
	runner   *fakeRunner
	launcher *fakeLauncher
}

func configText(dir string, tabs ...string) string {
	var b strings.Builder
	b.WriteString("message_seconds = 1\n\n")
	b.WriteString("[connections.local]\ndesc = \"Local\"\ntype = \"sqlite\"\n")
	b.WriteString("database = \"" + filepath.Join(dir, "local.db") + "\"\n\n")
	b.WriteString("[connections.other]\ndesc = \"Other\"\ntype = \"sqlite\"\n")
	b.WriteString("database = \"" + filepath.Join(dir, "other.db") + "\"\n\n")
	for _, tab := range tabs {
		b.WriteString("[tab." + tab + "]\n")
		b.WriteString("query_file = \"" + filepath.Join(dir, "query."+tab+".sql") + "\"\n")
		b.WriteString("results_file = \"" + filepath.Join(dir, "results."+tab+".csv") + "\"\n\n")
	}
	return b.String()
}

func newFixture(t *testing.T, tabs ...string) *fixture {
	t.Helper()
	if len(tabs) == 0 {
		tabs = []string{"1", "2"}
	}
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sqltui.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configText(dir, tabs...)), 0o600))

	logger := testutil.NewTestLogger(t)
	store, err := config.NewStore(cfgPath, nil, logger)
	require.NoError(t, err)
	sessions := session.NewManager(store, logger)

	m := New(context.Background(), store, sessions, logger)
	runner := &fakeRunner{}
	launcher := &fakeLauncher{}
	m.runner = runner
	m.launcher = launcher

	return &fixture{
		dir:      dir,
		cfgPath:  cfgPath,
		store:    store,
		sessions: sessions,
		model:    m,
		runner:   runner,
		launcher: launcher,
	}
}

func (f *fixture) press(msg tea.KeyMsg) tea.Cmd {
	_, cmd := f.model.Update(msg)
	return cmd
}

func (f *fixture) setText(text string) {
	f.model.activeView().editor.SetValue(text)
}

func TestModel_ExecuteWithoutConnection(t *testing.T) {
	f := newFixture(t)
	f.runner.err = execution.ErrNoConnectionSelected
	f.model.SetResultTable("1", []string{"OLD"}, [][]string{{"x"}})
	f.setText("SELECT 1")

	f.press(tea.KeyMsg{Type: tea.KeyF5})

	assert.Equal(t, []string{"1"}, f.runner.runs)
	assert.False(t, f.model.views["1"].hasResult, "table is cleared before running")
	assert.Empty(t, f.model.message, "missing connection is not reported")

	data, err := os.ReadFile(filepath.Join(f.dir, "query.1.sql"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", string(data))
}

func TestModel_ExecuteDisabledWhileRunning(t *testing.T) {
	f := newFixture(t)
	f.model.SetExecuteEnabled("1", false)

	f.press(tea.KeyMsg{Type: tea.KeyF5})
	assert.Empty(t, f.runner.runs)

	f.model.SetExecuteEnabled("1", true)
	f.press(tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Equal(t, []string{"1"}, f.runner.runs)
}

func TestModel_MessageAutoClear(t *testing.T) {
	f := newFixture(t)

	f.model.ShowMessage("first", time.Second)
	firstSeq := f.model.messageSeq
	cmd := f.model.flush(nil)
	assert.NotNil(t, cmd, "a clear timer is scheduled")

	f.model.ShowMessage("second", time.Second)
	f.model.Update(clearMessageMsg{seq: firstSeq})
	assert.Equal(t, "second", f.model.message, "an older timer does not clear a newer message")

	f.model.Update(clearMessageMsg{seq: f.model.messageSeq})
	assert.Empty(t, f.model.message)
}

func TestModel_SetResultTableChangesShape(t *testing.T) {
	f := newFixture(t)

	f.model.SetResultTable("1", []string{"A", "B", "C"}, [][]string{{"1", "2", "3"}})
	assert.NotPanics(t, func() {
		f.model.SetResultTable("1", []string{"ONLY"}, [][]string{{"x"}, {"multi\nline"}})
	})

	v := f.model.views["1"]
	require.Len(t, v.table.Columns(), 1)
	assert.Equal(t, "ONLY", v.table.Columns()[0].Title)
	assert.Equal(t, "multi line", v.table.Rows()[1][0])
	assert.Contains(t, f.model.View(), "ONLY")

	f.model.SetResultTable("unknown", []string{"X"}, nil)
}

func TestModel_TabSwitchPersistsText(t *testing.T) {
	f := newFixture(t)
	f.setText("SELECT 'one' FROM DUAL")

	f.press(tea.KeyMsg{Type: tea.KeyCtrlRight})
	assert.Equal(t, "2", f.model.ActiveTab())
	assert.Equal(t, "", f.model.activeView().editor.Value())

	data, err := os.ReadFile(filepath.Join(f.dir, "query.1.sql"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 'one' FROM DUAL", string(data))

	f.setText("SELECT 'two' FROM DUAL")
	f.press(tea.KeyMsg{Type: tea.KeyCtrlLeft})
	assert.Equal(t, "1", f.model.ActiveTab())
	assert.Equal(t, "SELECT 'one' FROM DUAL", f.model.activeView().editor.Value())
	assert.Equal(t, "SELECT 'two' FROM DUAL", f.sessions.LoadText("2"))
}

func TestModel_FocusLossPersistsText(t *testing.T) {
	f := newFixture(t)
	f.setText("SELECT 42")

	f.press(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, paneResults, f.model.focus)
	assert.Equal(t, "SELECT 42", f.sessions.LoadText("1"))
	assert.Equal(t, "SELECT 42", f.sessions.Get("1").Text())
}

func TestModel_EditReloadsText(t *testing.T) {
	f := newFixture(t)
	f.setText("SELECT 1")
	f.launcher.onEdit = func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(path, append(data, []byte("\nUNION ALL SELECT 2")...), 0o600)
	}

	f.press(tea.KeyMsg{Type: tea.KeyF3})

	require.Equal(t, []string{filepath.Join(f.dir, "query.1.sql")}, f.launcher.edited)
	assert.Equal(t, "SELECT 1\nUNION ALL SELECT 2", f.model.activeView().editor.Value())
	assert.Equal(t, "SELECT 1\nUNION ALL SELECT 2", f.sessions.Get("1").Text())
}

func TestModel_Export(t *testing.T) {
	f := newFixture(t)

	f.press(tea.KeyMsg{Type: tea.KeyF4})
	assert.Empty(t, f.launcher.viewed)
	assert.Equal(t, "No results to export.", f.model.message)

	results := filepath.Join(f.dir, "results.1.csv")
	require.NoError(t, os.WriteFile(results, []byte("X\n1\n"), 0o644))

	f.press(tea.KeyMsg{Type: tea.KeyTab})
	f.press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Equal(t, []string{results}, f.launcher.viewed)
}

func TestModel_ReloadKeepsConfigOnError(t *testing.T) {
	f := newFixture(t)
	before := f.store.Current()

	require.NoError(t, os.WriteFile(f.cfgPath, []byte("[connections.broken\n"), 0o600))
	f.press(tea.KeyMsg{Type: tea.KeyF2})

	assert.True(t, strings.HasPrefix(f.model.message, "Configuration error: "))
	assert.Same(t, before, f.store.Current())
}

func TestModel_ReloadAddsTabs(t *testing.T) {
	f := newFixture(t, "1")
	f.press(tea.KeyMsg{Type: tea.KeyCtrlO})
	f.press(tea.KeyMsg{Type: tea.KeyEnter})

	require.NoError(t, os.WriteFile(f.cfgPath, []byte(configText(f.dir, "1", "2", "3")), 0o600))
	f.press(tea.KeyMsg{Type: tea.KeyF2})

	assert.Equal(t, "Configuration reloaded.", f.model.message)
	assert.Equal(t, []string{"1", "2", "3"}, f.model.tabs)
	assert.Equal(t, "1", f.model.ActiveTab())
	key, ok := f.model.SelectedConnection()
	assert.True(t, ok)
	assert.Equal(t, "local", key)
}

func TestModel_ConnectionSelector(t *testing.T) {
	f := newFixture(t)

	_, ok := f.model.SelectedConnection()
	assert.False(t, ok, "no connection is selected at start")

	f.press(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.True(t, f.model.selecting)
	assert.Contains(t, f.model.View(), "Select connection")

	f.press(tea.KeyMsg{Type: tea.KeyDown})
	f.press(tea.KeyMsg{Type: tea.KeyEnter})

	key, ok := f.model.SelectedConnection()
	require.True(t, ok)
	assert.Equal(t, "other", key)
	assert.False(t, f.model.selecting)
	assert.Contains(t, f.model.View(), "Other")
}

func TestModel_QuitCancelsAndSaves(t *testing.T) {
	f := newFixture(t)
	f.setText("SELECT 'bye'")

	cmd := f.press(tea.KeyMsg{Type: tea.KeyCtrlQ})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, f.runner.cancelled)
	assert.Equal(t, "SELECT 'bye'", f.sessions.LoadText("1"))
}

func TestModel_UIFuncRunsOnLoop(t *testing.T) {
	f := newFixture(t)
	ran := false
	f.model.Update(uiFuncMsg(func() { ran = true }))
	assert.True(t, ran)
}

// loopQueue collects posted functions so the test can feed them to Update.
type loopQueue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *loopQueue) dispatch(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fns = append(q.fns, fn)
}

func (q *loopQueue) drainInto(m *Model) {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		m.Update(uiFuncMsg(fn))
	}
}

func TestModel_ExecuteEndToEnd(t *testing.T) {
	f := newFixture(t)
	q := &loopQueue{}
	coord := execution.New(f.store, f.sessions, f.model, q.dispatch,
		execution.WithLogger(testutil.NewTestLogger(t)))
	f.model.runner = coord

	require.True(t, f.model.SelectConnection("local"))
	f.setText("SELECT 'a,b' AS X")

	f.press(tea.KeyMsg{Type: tea.KeyF5})
	assert.False(t, f.model.views["1"].executeEnabled)

	coord.Wait()
	q.drainInto(f.model)

	v := f.model.views["1"]
	assert.True(t, v.executeEnabled)
	assert.True(t, v.hasResult)
	assert.Equal(t, "X", v.table.Columns()[0].Title)
	assert.Equal(t, "a,b", v.table.Rows()[0][0])

	st, _ := f.sessions.Get("1").Status()
	assert.Equal(t, session.StatusSucceeded, st)

	data, err := os.ReadFile(filepath.Join(f.dir, "results.1.csv"))
	require.NoError(t, err)
	assert.Equal(t, "X\n\"a,b\"\n", string(data))
}

func TestModel_ExecuteFailureShowsMessage(t *testing.T) {
	f := newFixture(t)
	q := &loopQueue{}
	coord := execution.New(f.store, f.sessions, f.model, q.dispatch)
	f.model.runner = coord

	require.True(t, f.model.SelectConnection("local"))
	f.setText("SELECT * FROM no_such_table")

	f.press(tea.KeyMsg{Type: tea.KeyF5})
	coord.Wait()
	q.drainInto(f.model)

	assert.True(t, strings.HasPrefix(f.model.message, "Database error: "), f.model.message)
	assert.Contains(t, f.model.message, "no_such_table")
	assert.True(t, f.model.views["1"].executeEnabled)
}
