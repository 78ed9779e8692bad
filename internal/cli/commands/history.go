package commands

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Tab    string
	Limit  int
	Output string
}

type historyRecord struct {
	ID         string    `json:"id" yaml:"id"`
	Tab        string    `json:"tab" yaml:"tab"`
	Connection string    `json:"connection" yaml:"connection"`
	Status     string    `json:"status" yaml:"status"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	RowCount   int64     `json:"row_count" yaml:"row_count"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	Query      string    `json:"query" yaml:"query"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent query executions",
		Long: `Show the most recent executions recorded in the history database,
newest first. Every execution is recorded, including failed and superseded ones.`,
		Example: `  # Last 20 executions
  sqltui history

  # Executions of tab 2 as JSON
  sqltui history --tab 2 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Tab, "tab", "", "Only show executions of this tab")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of executions to show")
	addOutputFlag(cmd, &opts.Output)

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, err := OpenHistory(cmd, cmdCtx.Logger)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("history is disabled")
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(cmd.Context(), opts.Tab, opts.Limit)
	if err != nil {
		return err
	}

	records := make([]historyRecord, 0, len(entries))
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		records = append(records, historyRecord{
			ID:         e.ID,
			Tab:        e.Tab,
			Connection: e.Connection,
			Status:     e.Status,
			Error:      e.Error,
			RowCount:   e.RowCount,
			StartedAt:  e.StartedAt,
			DurationMS: e.Duration.Milliseconds(),
			Query:      e.Query,
		})

		rows = append(rows, table.Row{
			e.StartedAt.Local().Format(time.DateTime),
			e.Tab,
			e.Connection,
			e.Status,
			strconv.FormatInt(e.RowCount, 10),
			e.Duration.Round(time.Millisecond).String(),
			summarize(e.Query, 48),
		})
	}

	header := table.Row{"Started", "Tab", "Connection", "Status", "Rows", "Duration", "Query"}
	return render(cmd.OutOrStdout(), opts.Output, records, header, rows)
}

// summarize collapses whitespace and truncates s to n runes.
func summarize(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
