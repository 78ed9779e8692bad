// Package terminal hands the terminal to a child process and takes it back.
//
// While suspended, the UI driver is released, application logging is muted
// and the child sees the process's original stdin, stdout and stderr. The
// driver is always restored afterwards, including when the action panics.
package terminal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LevelMuted is above every level the application logs at.
const LevelMuted = slog.LevelError + 4

// Driver owns the terminal while the UI is running.
type Driver interface {
	ReleaseTerminal() error
	RestoreTerminal() error
}

// Redrawer is implemented by drivers that can repaint after a restore.
type Redrawer interface {
	Redraw()
}

// Stdio is the set of streams a suspended action may use.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// OSStdio returns the process's original streams.
func OSStdio() Stdio {
	return Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Suspender runs actions with the terminal released.
type Suspender struct {
	driver Driver
	level  *slog.LevelVar
	stdio  Stdio
}

// NewSuspender creates a suspender for driver. level, if non-nil, is raised
// to LevelMuted for the duration of each action.
func NewSuspender(driver Driver, level *slog.LevelVar, stdio Stdio) *Suspender {
	return &Suspender{driver: driver, level: level, stdio: stdio}
}

// Suspend releases the driver, runs action and restores the driver.
// The restore happens even if action panics; the panic then continues.
func (s *Suspender) Suspend(action func(Stdio) error) (err error) {
	if err := s.driver.ReleaseTerminal(); err != nil {
		return fmt.Errorf("failed to release terminal: %w", err)
	}

	if s.level != nil {
		prev := s.level.Level()
		s.level.Set(LevelMuted)
		defer s.level.Set(prev)
	}

	defer func() {
		rerr := s.driver.RestoreTerminal()
		if r, ok := s.driver.(Redrawer); ok {
			r.Redraw()
		}
		if rerr != nil && err == nil {
			err = fmt.Errorf("failed to restore terminal: %w", rerr)
		}
	}()

	return action(s.stdio)
}
