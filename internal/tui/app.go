package tui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/sqltui/internal/config"
	"github.com/leapstack-labs/sqltui/internal/execution"
	"github.com/leapstack-labs/sqltui/internal/session"
	"github.com/leapstack-labs/sqltui/internal/terminal"
)

// shutdownGrace bounds how long Run waits for cancelled workers.
const shutdownGrace = 2 * time.Second

// Options configures an App.
type Options struct {
	Store    *config.Store
	Sessions *session.Manager
	Logger   *slog.Logger
	// Level is muted while an external program owns the terminal.
	Level      *slog.LevelVar
	Recorder   execution.Recorder
	Connection string
	Version    string
}

// App ties the model, the bubbletea program and the coordinator together.
type App struct {
	model   *Model
	program *tea.Program
	coord   *execution.Coordinator
	logger  *slog.Logger
}

// programDriver lets the suspender release and restore a running program.
type programDriver struct {
	p *tea.Program
}

func (d programDriver) ReleaseTerminal() error { return d.p.ReleaseTerminal() }
func (d programDriver) RestoreTerminal() error { return d.p.RestoreTerminal() }

// Redraw is called from inside Update, so the message is sent from a new
// goroutine to avoid blocking the event loop on itself.
func (d programDriver) Redraw() {
	go d.p.Send(redrawMsg{})
}

// Dispatch returns a Dispatcher that posts functions to p's event loop.
func Dispatch(p *tea.Program) execution.Dispatcher {
	return func(fn func()) {
		p.Send(uiFuncMsg(fn))
	}
}

// NewApp builds the program. ctx ends the program when cancelled.
func NewApp(ctx context.Context, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := New(ctx, opts.Store, opts.Sessions, logger)
	m.version = opts.Version
	if opts.Connection != "" && !m.SelectConnection(opts.Connection) {
		logger.Warn("unknown connection requested", slog.String("connection", opts.Connection))
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	suspender := terminal.NewSuspender(programDriver{p: p}, opts.Level, terminal.OSStdio())
	m.launcher = terminal.NewLauncher(suspender,
		func() string { return opts.Store.Current().EditorCommand() },
		func() string { return opts.Store.Current().SpreadsheetCommand() },
		logger)

	coordOpts := []execution.Option{execution.WithLogger(logger)}
	if opts.Recorder != nil {
		coordOpts = append(coordOpts, execution.WithRecorder(opts.Recorder))
	}
	coord := execution.New(opts.Store, opts.Sessions, m, Dispatch(p), coordOpts...)
	m.runner = coord

	return &App{model: m, program: p, coord: coord, logger: logger}
}

// Run blocks until the program exits, then cancels any running query and
// gives its worker a moment to finish.
func (a *App) Run() error {
	_, err := a.program.Run()

	a.coord.Cancel()
	done := make(chan struct{})
	go func() {
		a.coord.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		a.logger.Warn("query still running at exit")
	}
	return err
}

// ConfigReloaded forwards a reload done by the file watcher to the UI loop.
func (a *App) ConfigReloaded(cfg *config.Config, err error) {
	a.program.Send(configReloadedMsg{cfg: cfg, err: err})
}
