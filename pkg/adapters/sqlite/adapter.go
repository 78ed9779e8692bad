// Package sqlite provides a SQLite database adapter for sqltui backed by
// the cgo-free modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/leapstack-labs/sqltui/pkg/adapter"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect opens the SQLite file named by the connection's database field.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	return a.Open(ctx, "sqlite", buildDSN(cfg), cfg)
}

// buildDSN appends connection options as URI query parameters (mode=ro, _pragma=...).
func buildDSN(cfg adapter.Config) string {
	path := cfg.Database
	if path == "" {
		path = ":memory:"
	}
	if len(cfg.Options) == 0 {
		return path
	}
	q := url.Values{}
	for k, v := range cfg.Options {
		q.Set(k, v)
	}
	return path + "?" + q.Encode()
}
