// Package config loads sqltui's connection and tab definitions and holds
// the active snapshot for the rest of the application.
//
// A Config value is immutable once published by a Store. Reloading builds
// a brand new Config and swaps it in atomically; nothing is merged field
// by field.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/leapstack-labs/sqltui/pkg/adapter"
)

// Default configuration values.
const (
	DefaultConnectionType = "oracle"
	DefaultOraclePort     = 1521
	DefaultPostgresPort   = 5432
	DefaultFetchBatchSize = 200
	DefaultMessageSeconds = 5.0
	DefaultEditor         = "vim"
	DefaultSpreadsheet    = "visidata"
	DefaultTabKey         = "1"
	DefaultScratchDir     = "/tmp"
)

// Config is one loaded snapshot of the configuration file.
type Config struct {
	Editor         string                       `koanf:"editor"`
	Spreadsheet    string                       `koanf:"spreadsheet"`
	FetchBatchSize int                          `koanf:"fetch_batch_size"`
	MessageSeconds float64                      `koanf:"message_seconds"`
	Connections    map[string]ConnectionProfile `koanf:"connections"`
	Tabs           map[string]TabConfig         `koanf:"tab"`

	// Path is the file this snapshot was read from.
	Path string `koanf:"-"`
}

// ConnectionProfile describes one named database connection.
type ConnectionProfile struct {
	Key      string            `koanf:"-"`
	Label    string            `koanf:"desc"`
	Type     string            `koanf:"type"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"passwd"`
	Options  map[string]string `koanf:"options"`
}

// TabConfig holds the per-tab file locations.
type TabConfig struct {
	Key         string `koanf:"-"`
	QueryFile   string `koanf:"query_file"`
	ResultsFile string `koanf:"results_file"`
}

// DisplayLabel returns the label shown in the connection selector.
func (p ConnectionProfile) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Key
}

// AdapterConfig converts the profile into the descriptor adapters connect with.
func (p ConnectionProfile) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     p.Type,
		Host:     p.Host,
		Port:     p.Port,
		Database: p.Database,
		Username: p.User,
		Password: p.Password,
		Options:  p.Options,
	}
}

// IsNetworked reports whether the connection type talks to a server and
// therefore needs host and credentials.
func (p ConnectionProfile) IsNetworked() bool {
	switch p.Type {
	case "oracle", "postgres":
		return true
	default:
		return false
	}
}

// Connection looks up a connection profile by key.
func (c *Config) Connection(key string) (ConnectionProfile, bool) {
	p, ok := c.Connections[key]
	return p, ok
}

// ConnectionKeys returns connection keys ordered by display label, then key.
func (c *Config) ConnectionKeys() []string {
	keys := make([]string, 0, len(c.Connections))
	for k := range c.Connections {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		li := c.Connections[keys[i]].DisplayLabel()
		lj := c.Connections[keys[j]].DisplayLabel()
		if li != lj {
			return li < lj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// TabKeys returns tab keys in natural order: numeric keys by value first,
// then the rest lexically.
func (c *Config) TabKeys() []string {
	keys := make([]string, 0, len(c.Tabs))
	for k := range c.Tabs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, errI := strconv.Atoi(keys[i])
		nj, errJ := strconv.Atoi(keys[j])
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// Tab returns the tab settings with default file paths filled in.
// Unknown keys get the defaults too, so callers never see empty paths.
func (c *Config) Tab(key string) TabConfig {
	t := c.Tabs[key]
	t.Key = key
	if t.QueryFile == "" {
		t.QueryFile = DefaultQueryFile(key)
	}
	if t.ResultsFile == "" {
		t.ResultsFile = DefaultResultsFile(key)
	}
	return t
}

// QueryFile returns the scratch file path for a tab.
func (c *Config) QueryFile(tab string) string {
	return c.Tab(tab).QueryFile
}

// ResultsFile returns the result artifact path for a tab.
func (c *Config) ResultsFile(tab string) string {
	return c.Tab(tab).ResultsFile
}

// EditorCommand returns the external editor command. $EDITOR wins over the file.
func (c *Config) EditorCommand() string {
	return firstNonEmpty(os.Getenv("EDITOR"), c.Editor, DefaultEditor)
}

// SpreadsheetCommand returns the external viewer command. $SPREADSHEET wins over the file.
func (c *Config) SpreadsheetCommand() string {
	return firstNonEmpty(os.Getenv("SPREADSHEET"), c.Spreadsheet, DefaultSpreadsheet)
}

// MessageDuration is how long a status message stays on screen.
func (c *Config) MessageDuration() time.Duration {
	secs := c.MessageSeconds
	if secs <= 0 {
		secs = DefaultMessageSeconds
	}
	return time.Duration(secs * float64(time.Second))
}

// BatchSize returns the number of rows fetched per round trip.
func (c *Config) BatchSize() int {
	if c.FetchBatchSize < 1 {
		return DefaultFetchBatchSize
	}
	return c.FetchBatchSize
}

// DefaultQueryFile is the scratch file used when a tab sets no query_file.
func DefaultQueryFile(tab string) string {
	return filepath.Join(DefaultScratchDir, fmt.Sprintf("query.%s.sql", tab))
}

// DefaultResultsFile is the artifact used when a tab sets no results_file.
func DefaultResultsFile(tab string) string {
	return filepath.Join(DefaultScratchDir, fmt.Sprintf("results.%s.csv", tab))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
