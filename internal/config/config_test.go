package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register connection types used by the fixtures.
	_ "github.com/leapstack-labs/sqltui/pkg/adapters/oracle"
	_ "github.com/leapstack-labs/sqltui/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/sqltui/pkg/adapters/sqlite"
)

const validTOML = `
[connections.prod]
desc = "Production"
host = "db.example.com"
database = "ORCLPDB1"
user = "scott"
passwd = "tiger"

[connections.local]
desc = "Local scratch"
type = "sqlite"
database = "/tmp/scratch.db"

[tab.1]

[tab.2]
results_file = "/var/tmp/second.csv"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "sqltui.toml", validTOML)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, DefaultFetchBatchSize, cfg.FetchBatchSize)
	assert.Equal(t, DefaultMessageSeconds, cfg.MessageSeconds)

	prod, ok := cfg.Connection("prod")
	require.True(t, ok)
	assert.Equal(t, "prod", prod.Key)
	assert.Equal(t, "Production", prod.Label)
	assert.Equal(t, "oracle", prod.Type, "type defaults to oracle")
	assert.Equal(t, 1521, prod.Port, "oracle port defaults to 1521")
	assert.Equal(t, "tiger", prod.Password)

	local, ok := cfg.Connection("local")
	require.True(t, ok)
	assert.Equal(t, 0, local.Port)

	assert.Equal(t, []string{"local", "prod"}, cfg.ConnectionKeys(), "ordered by label")
	assert.Equal(t, []string{"1", "2"}, cfg.TabKeys())

	assert.Equal(t, "/tmp/query.1.sql", cfg.QueryFile("1"))
	assert.Equal(t, "/tmp/results.1.csv", cfg.ResultsFile("1"))
	assert.Equal(t, "/tmp/query.2.sql", cfg.QueryFile("2"))
	assert.Equal(t, "/var/tmp/second.csv", cfg.ResultsFile("2"))
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "sqltui.yaml", `
fetch_batch_size: 50
connections:
  pg:
    desc: Analytics
    type: postgres
    host: localhost
    database: analytics
    user: analyst
    passwd: secret
tab:
  "1":
    query_file: /tmp/custom.sql
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.FetchBatchSize)
	pg, ok := cfg.Connection("pg")
	require.True(t, ok)
	assert.Equal(t, 5432, pg.Port)
	assert.Equal(t, "/tmp/custom.sql", cfg.QueryFile("1"))
}

func TestLoad_DefaultTab(t *testing.T) {
	path := writeConfig(t, "sqltui.toml", `
[connections.local]
type = "sqlite"
database = ":memory:"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, cfg.TabKeys())
}

func TestLoad_EnvExpansionAndOverrides(t *testing.T) {
	t.Setenv("PROD_PASSWORD", "from-env")
	t.Setenv("SQLTUI_FETCH_BATCH_SIZE", "25")

	path := writeConfig(t, "sqltui.toml", `
[connections.prod]
host = "db"
database = "ORCL"
user = "scott"
passwd = "${PROD_PASSWORD}"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	prod, _ := cfg.Connection("prod")
	assert.Equal(t, "from-env", prod.Password)
	assert.Equal(t, 25, cfg.FetchBatchSize)
}

func TestLoad_FlagsOverride(t *testing.T) {
	t.Setenv("SQLTUI_FETCH_BATCH_SIZE", "25")
	path := writeConfig(t, "sqltui.toml", validTOML)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("fetch-batch-size", 0, "")
	flags.String("editor", "", "")
	require.NoError(t, flags.Parse([]string{"--fetch-batch-size=10", "--editor=nano"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.FetchBatchSize)
	assert.Equal(t, "nano", cfg.Editor)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		errSubstr string
	}{
		{
			name:      "syntax error",
			file:      "sqltui.toml",
			content:   "[connections.prod\nhost = ",
			errSubstr: "error reading config file",
		},
		{
			name:      "unsupported extension",
			file:      "sqltui.ini",
			content:   "x=1",
			errSubstr: "unsupported config format",
		},
		{
			name: "missing credentials",
			file: "sqltui.toml",
			content: `
[connections.prod]
host = "db"
database = "ORCL"
`,
			errSubstr: "missing required field(s): user, passwd",
		},
		{
			name: "unknown type",
			file: "sqltui.toml",
			content: `
[connections.x]
type = "mysql"
database = "d"
`,
			errSubstr: `unknown connection type "mysql"`,
		},
		{
			name: "shared results file",
			file: "sqltui.toml",
			content: `
[tab.1]
results_file = "/tmp/same.csv"
[tab.2]
results_file = "/tmp/same.csv"
`,
			errSubstr: "share results file",
		},
		{
			name: "tab keys differing only by case",
			file: "sqltui.toml",
			content: `
[tab.a]
[tab.A]
`,
			errSubstr: "not distinct",
		},
		{
			name:      "bad batch size",
			file:      "sqltui.toml",
			content:   "fetch_batch_size = 0\n",
			errSubstr: "fetch_batch_size must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.content)

			_, err := Load(path, nil)
			require.Error(t, err)

			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, path, cfgErr.Path)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), nil)

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "not found")
}

func TestEditorAndSpreadsheetCommands(t *testing.T) {
	cfg := &Config{}

	t.Setenv("EDITOR", "")
	t.Setenv("SPREADSHEET", "")
	assert.Equal(t, "vim", cfg.EditorCommand())
	assert.Equal(t, "visidata", cfg.SpreadsheetCommand())

	cfg.Editor = "nano"
	cfg.Spreadsheet = "tabview"
	assert.Equal(t, "nano", cfg.EditorCommand())
	assert.Equal(t, "tabview", cfg.SpreadsheetCommand())

	t.Setenv("EDITOR", "hx")
	t.Setenv("SPREADSHEET", "vd")
	assert.Equal(t, "hx", cfg.EditorCommand())
	assert.Equal(t, "vd", cfg.SpreadsheetCommand())
}

func TestTabKeys_NaturalOrder(t *testing.T) {
	cfg := &Config{Tabs: map[string]TabConfig{
		"10": {}, "2": {}, "1": {}, "scratch": {}, "adhoc": {},
	}}
	assert.Equal(t, []string{"1", "2", "10", "adhoc", "scratch"}, cfg.TabKeys())
}

func TestStore_ReloadKeepsPreviousOnError(t *testing.T) {
	path := writeConfig(t, "sqltui.toml", validTOML)

	store, err := NewStore(path, nil, nil)
	require.NoError(t, err)
	before := store.Current()

	// Introduce a syntax error.
	require.NoError(t, os.WriteFile(path, []byte("[connections.prod\n"), 0o600))

	cfg, err := store.Reload()
	require.Error(t, err)
	assert.Nil(t, cfg)

	var cfgErr *Error
	assert.ErrorAs(t, err, &cfgErr)
	assert.Same(t, before, store.Current(), "previous snapshot must stay active")
	assert.Equal(t, []string{"local", "prod"}, store.Current().ConnectionKeys())
}

func TestStore_ReloadSwapsWholeSnapshot(t *testing.T) {
	path := writeConfig(t, "sqltui.toml", validTOML)

	store, err := NewStore(path, nil, nil)
	require.NoError(t, err)
	before := store.Current()

	require.NoError(t, os.WriteFile(path, []byte(`
[connections.only]
type = "sqlite"
database = "/tmp/only.db"
`), 0o600))

	cfg, err := store.Reload()
	require.NoError(t, err)
	assert.Same(t, cfg, store.Current())
	assert.Equal(t, []string{"only"}, cfg.ConnectionKeys())

	// The old snapshot is untouched.
	assert.Equal(t, []string{"local", "prod"}, before.ConnectionKeys())
}

func TestStore_Watch(t *testing.T) {
	path := writeConfig(t, "sqltui.toml", validTOML)

	store, err := NewStore(path, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(cfg *Config, err error) {
			if err == nil {
				reloaded <- cfg
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`
[connections.watched]
type = "sqlite"
database = "/tmp/w.db"
`), 0o600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, []string{"watched"}, cfg.ConnectionKeys())
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not picked up")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestGetLogger_Fallback(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))
}
