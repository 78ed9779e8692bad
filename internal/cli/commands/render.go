package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", FormatTable, "Output format (table|json|yaml)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{FormatTable, FormatJSON, FormatYAML}, cobra.ShellCompDirectiveNoFileComp
	})
}

// render writes records as JSON or YAML, or header and rows as a table.
func render(w io.Writer, format string, records any, header table.Row, rows []table.Row) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		renderTable(w, header, rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use table, json or yaml)", format)
	}
}

func renderTable(w io.Writer, header table.Row, rows []table.Row) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(tableStyle(w))
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

// tableStyle draws box characters only when w is a terminal that can show them.
func tableStyle(w io.Writer) table.Style {
	if termenv.NewOutput(w).EnvColorProfile() == termenv.Ascii {
		return table.StyleDefault
	}
	return table.StyleLight
}
