// Package duckdb provides a DuckDB database adapter for sqltui.
//
// The connection's database field is the DuckDB file path; leave it as
// ":memory:" for a scratch in-memory database.
package duckdb

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/sqltui/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to DuckDB.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Options)
	if err != nil {
		return err
	}
	return a.Open(ctx, "duckdb", buildDSN(cfg.Database, params), cfg)
}
