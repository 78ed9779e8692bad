package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leapstack-labs/sqltui/internal/cli/commands"
	"github.com/leapstack-labs/sqltui/internal/session"
	"github.com/leapstack-labs/sqltui/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// errNotTerminal is returned when the interface is started without a terminal.
var errNotTerminal = errors.New("sqltui needs an interactive terminal (use 'sqltui run' for headless execution)")

// runInterface starts the full-screen interface and the config file watcher,
// and returns when the user quits.
func runInterface(cmd *cobra.Command, level *slog.LevelVar) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNotTerminal
	}

	cmdCtx, err := commands.NewCommandContext(cmd)
	if err != nil {
		return err
	}
	logger := cmdCtx.Logger

	hist, err := commands.OpenHistory(cmd, logger)
	if err != nil {
		return err
	}

	connection, _ := cmd.Flags().GetString("connection")
	opts := tui.Options{
		Store:      cmdCtx.Store,
		Sessions:   session.NewManager(cmdCtx.Store, logger),
		Logger:     logger,
		Level:      level,
		Connection: connection,
		Version:    Version,
	}
	if hist != nil {
		defer func() { _ = hist.Close() }()
		opts.Recorder = hist
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	app := tui.NewApp(gctx, opts)

	g.Go(func() error {
		defer cancel()
		err := app.Run()
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error {
		// Without the watcher only manual reload (F2) is available.
		if err := cmdCtx.Store.Watch(gctx, app.ConfigReloaded); err != nil {
			logger.Warn("config watcher stopped", slog.Any("error", err))
		}
		return nil
	})

	logger.Info("interface started",
		slog.String("config", cmdCtx.Store.Path()),
		slog.String("version", Version))
	return g.Wait()
}
