// Package history records every query execution in a local SQLite database
// so past runs can be listed from the command line.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Execution outcomes stored in the status column.
const (
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusSuperseded = "superseded"
)

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded execution.
type Entry struct {
	ID         string
	Tab        string
	Connection string
	Query      string
	Status     string
	Error      string
	RowCount   int64
	StartedAt  time.Time
	Duration   time.Duration
}

// Store persists execution entries.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates a history store instance. A nil logger discards output.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// DefaultPath returns $XDG_STATE_HOME/sqltui/history.db, falling back to
// ~/.local/state/sqltui/history.db.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "sqltui", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sqltui-history.db")
	}
	return filepath.Join(home, ".local", "state", "sqltui", "history.db")
}

// Open opens the database at path and applies migrations.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping history database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts e. An empty ID is filled with a new UUID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	var errText *string
	if e.Error != "" {
		errText = &e.Error
	}

	s.logger.Debug("recording execution",
		slog.String("id", e.ID),
		slog.String("tab", e.Tab),
		slog.String("status", e.Status))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, tab, connection, query, status, error, row_count, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Tab, e.Connection, e.Query, e.Status, errText, e.RowCount,
		e.StartedAt.UTC().Format(timeLayout), e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. tab filters by tab
// when non-empty.
func (s *Store) Recent(ctx context.Context, tab string, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit < 1 {
		limit = 20
	}

	query := `SELECT id, tab, connection, query, status, error, row_count, started_at, duration_ms
		FROM executions`
	args := []any{}
	if tab != "" {
		query += ` WHERE tab = ?`
		args = append(args, tab)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return entries, nil
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tab, connection, query, status, error, row_count, started_at, duration_ms
		 FROM executions WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution not found: %s: %w", id, err)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// IsNotFound reports whether err came from a lookup that matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e          Entry
		errText    sql.NullString
		startedAt  string
		durationMS int64
	)
	err := sc.Scan(&e.ID, &e.Tab, &e.Connection, &e.Query, &e.Status, &errText,
		&e.RowCount, &startedAt, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return e, err
	}
	if err != nil {
		return e, fmt.Errorf("failed to scan execution: %w", err)
	}
	e.Error = errText.String
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return e, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	return e, nil
}
