package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrNoCommand is returned when the configured command is blank.
var ErrNoCommand = errors.New("no command configured")

// Launcher opens files in the external editor and spreadsheet viewer.
// Commands are resolved on every launch so config reloads take effect.
type Launcher struct {
	suspender *Suspender
	editor    func() string
	viewer    func() string
	logger    *slog.Logger
}

// NewLauncher creates a launcher. editor and viewer return the command
// lines to run, e.g. "vim" or "code --wait".
func NewLauncher(s *Suspender, editor, viewer func() string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Launcher{suspender: s, editor: editor, viewer: viewer, logger: logger}
}

// Edit opens path in the editor and waits for it to exit.
func (l *Launcher) Edit(ctx context.Context, path string) error {
	return l.launch(ctx, l.editor(), path)
}

// View opens path in the spreadsheet viewer and waits for it to exit.
func (l *Launcher) View(ctx context.Context, path string) error {
	return l.launch(ctx, l.viewer(), path)
}

func (l *Launcher) launch(ctx context.Context, command, path string) error {
	args := strings.Fields(command)
	if len(args) == 0 {
		return ErrNoCommand
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return fmt.Errorf("%s not found: %w", args[0], err)
	}

	l.logger.Debug("launching external program",
		slog.String("command", command),
		slog.String("path", path))

	return l.suspender.Suspend(func(stdio Stdio) error {
		cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
		cmd.Stdin = stdio.In
		cmd.Stdout = stdio.Out
		cmd.Stderr = stdio.Err
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return nil
	})
}
