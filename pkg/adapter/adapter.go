// Package adapter provides the database adapter contract used by sqltui
// to open connections and run queries.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves from init(). Import them with a blank identifier:
//
//	import _ "github.com/leapstack-labs/sqltui/pkg/adapters/oracle"
package adapter

import (
	"context"
	"database/sql"
	"fmt"
)

// Config describes a single database connection.
type Config struct {
	Type     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Query executes a SQL statement verbatim and returns its rows.
	// The caller owns the returned rows and must close them.
	Query(ctx context.Context, sql string) (*sql.Rows, error)
}

// DatabaseError wraps a failure reported by the driver while connecting
// or running a statement.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
