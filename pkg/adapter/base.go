package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotConnected is returned when an operation needs an open connection.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Open, Close, and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Open opens a database/sql handle for driverName and verifies it with a ping.
func (b *BaseSQLAdapter) Open(ctx context.Context, driverName, dsn string, cfg Config) error {
	if b.Logger != nil {
		b.Logger.Debug("opening database connection",
			slog.String("driver", driverName),
			slog.String("host", cfg.Host),
			slog.String("database", cfg.Database))
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return &DatabaseError{Op: "open " + driverName + " connection", Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &DatabaseError{Op: "connect to " + driverName, Err: err}
	}

	b.DB = db
	b.Cfg = cfg
	return nil
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*sql.Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, &DatabaseError{Op: "execute query", Err: err}
	}
	return rows, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// String satisfies fmt.Stringer for log output without leaking credentials.
func (c Config) String() string {
	return fmt.Sprintf("%s://%s@%s:%d/%s", c.Type, c.Username, c.Host, c.Port, c.Database)
}
