// Package session holds the per-tab query state: the query text, the
// execution status and the last known result shape.
//
// The scratch file on disk is the durable copy of a tab's text; the
// in-memory text is authoritative only while the tab is focused.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// Status is the execution status of a session.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrAlreadyRunning is returned by Begin when the session is executing.
var ErrAlreadyRunning = errors.New("query is already running")

// Session is the state of one tab.
type Session struct {
	mu       sync.Mutex
	tab      string
	text     string
	status   Status
	reason   string
	columns  []string
	rowCount int64
}

// New creates an idle session for tab.
func New(tab string) *Session {
	return &Session{tab: tab}
}

// Tab returns the tab key the session belongs to.
func (s *Session) Tab() string {
	return s.tab
}

// Text returns the current query text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// SetText replaces the current query text.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

// Status returns the status and, for StatusFailed, the reason.
func (s *Session) Status() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.reason
}

// Running reports whether an execution is in flight. The execute action is
// enabled exactly when this is false.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusRunning
}

// Result returns the column names and row count of the last success.
func (s *Session) Result() ([]string, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.columns...), s.rowCount
}

// Begin moves the session to Running. It fails with ErrAlreadyRunning if an
// execution is already in flight.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		return ErrAlreadyRunning
	}
	s.status = StatusRunning
	s.reason = ""
	return nil
}

// Succeed records a completed execution.
func (s *Session) Succeed(columns []string, rowCount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusSucceeded
	s.reason = ""
	s.columns = append([]string(nil), columns...)
	s.rowCount = rowCount
}

// Fail records a failed execution. The previous result shape is kept.
func (s *Session) Fail(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	s.reason = reason
}

// Abandon returns a Running session to Idle when its execution was
// superseded. Other statuses are left alone.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		s.status = StatusIdle
	}
}
