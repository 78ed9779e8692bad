package duckdb

import (
	"fmt"
	"net/url"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific connection settings.
// Decoded from adapter.Config.Options using mapstructure.
type Params struct {
	// AccessMode is "automatic", "read_only" or "read_write".
	AccessMode string `mapstructure:"access_mode"`

	// Threads caps the worker threads DuckDB uses (0 keeps the default).
	Threads int `mapstructure:"threads"`

	// MemoryLimit such as "2GB".
	MemoryLimit string `mapstructure:"memory_limit"`
}

// parseParams decodes connection options into Params.
func parseParams(options map[string]string) (Params, error) {
	var p Params
	if len(options) == 0 {
		return p, nil
	}
	if err := mapstructure.WeakDecode(options, &p); err != nil {
		return p, fmt.Errorf("invalid duckdb options: %w", err)
	}
	return p, nil
}

// buildDSN appends Params to the database path as DuckDB config query parameters.
func buildDSN(path string, p Params) string {
	if path == "" {
		path = ":memory:"
	}

	q := url.Values{}
	if p.AccessMode != "" {
		q.Set("access_mode", p.AccessMode)
	}
	if p.Threads > 0 {
		q.Set("threads", fmt.Sprint(p.Threads))
	}
	if p.MemoryLimit != "" {
		q.Set("memory_limit", p.MemoryLimit)
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
