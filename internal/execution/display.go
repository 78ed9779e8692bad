// Package execution runs tab queries in the background, one at a time
// across the whole application.
//
// Run is called from the UI loop. It issues a new execution token, which
// supersedes whatever was running before, and hands the work to a worker
// goroutine. Workers never touch the display directly: every outcome is
// posted back through a Dispatcher and applied only if its token is still
// the current one.
package execution

import (
	"errors"
	"time"
)

// ErrNoConnectionSelected is returned by Run when the user has not picked a
// connection. Nothing changes state in that case.
var ErrNoConnectionSelected = errors.New("no connection selected")

// Display is the set of callbacks the coordinator drives. All methods are
// invoked on the UI loop.
type Display interface {
	// ShowMessage shows text for d, replacing any current message.
	ShowMessage(text string, d time.Duration)

	// SetResultTable replaces the result table of tab.
	SetResultTable(tab string, headers []string, rows [][]string)

	// SetExecuteEnabled enables or disables the execute action of tab.
	SetExecuteEnabled(tab string, enabled bool)

	// ActiveTab returns the key of the focused tab.
	ActiveTab() string

	// SelectedConnection returns the chosen connection key, if any.
	SelectedConnection() (string, bool)
}

// Dispatcher schedules fn to run on the UI loop. Calls from one goroutine
// must run in the order they were made.
type Dispatcher func(fn func())
