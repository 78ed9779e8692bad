// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// Workspace is a temporary config file with scratch and result files
// kept next to it.
type Workspace struct {
	Dir        string
	ConfigPath string
	DBPath     string
}

// SetupTestWorkspace writes a config with one SQLite connection ("local")
// and two tabs ("1" and "2") whose files live in a temp directory.
func SetupTestWorkspace(t *testing.T) *Workspace {
	t.Helper()

	dir := t.TempDir()
	ws := &Workspace{
		Dir:        dir,
		ConfigPath: filepath.Join(dir, "sqltui.toml"),
		DBPath:     filepath.Join(dir, "local.db"),
	}

	cfg := fmt.Sprintf(`editor = "cat"
spreadsheet = "cat"
fetch_batch_size = 2

[connections.local]
desc = "Local SQLite"
type = "sqlite"
database = %q

[tab.1]
query_file = %q
results_file = %q

[tab.2]
query_file = %q
results_file = %q
`,
		ws.DBPath,
		ws.QueryFile("1"), ws.ResultsFile("1"),
		ws.QueryFile("2"), ws.ResultsFile("2"))

	if err := os.WriteFile(ws.ConfigPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return ws
}

// QueryFile returns the scratch file of tab.
func (ws *Workspace) QueryFile(tab string) string {
	return filepath.Join(ws.Dir, "query."+tab+".sql")
}

// ResultsFile returns the result file of tab.
func (ws *Workspace) ResultsFile(tab string) string {
	return filepath.Join(ws.Dir, "results."+tab+".csv")
}

// WriteQuery saves text as tab's scratch query.
func (ws *Workspace) WriteQuery(t *testing.T, tab, text string) {
	t.Helper()
	if err := os.WriteFile(ws.QueryFile(tab), []byte(text), 0o644); err != nil {
		t.Fatalf("failed to write query: %v", err)
	}
}

// HistoryPath returns a history database location inside the workspace.
func (ws *Workspace) HistoryPath() string {
	return filepath.Join(ws.Dir, "history.db")
}

// ExecuteCommand runs cmd with args and returns what it wrote to stdout
// and stderr.
func ExecuteCommand(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}
