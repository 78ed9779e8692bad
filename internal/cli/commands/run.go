package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqltui/internal/config"
	"github.com/leapstack-labs/sqltui/internal/execution"
	"github.com/leapstack-labs/sqltui/internal/session"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Query string
	Print bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [tab]",
		Short: "Execute a tab's query without the interface",
		Long: `Execute the saved query of a tab against a connection and write the
result file, exactly as the Execute action does in the interface.

The query comes from the tab's scratch file unless --query is given;
--query - reads it from standard input. The scratch file is not modified.`,
		Example: `  # Run tab 1's saved query on the "prod" connection
  sqltui run -c prod

  # Run an ad hoc query on tab 2 and print the rows
  sqltui run 2 -c prod --query "select * from dual" --print`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab := ""
			if len(args) == 1 {
				tab = args[0]
			}
			return runQuery(cmd, tab, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Query text to run instead of the scratch file (- for stdin)")
	cmd.Flags().BoolVar(&opts.Print, "print", false, "Print the result rows after writing them")

	return cmd
}

func runQuery(cmd *cobra.Command, tab string, opts *RunOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Store.Current()

	if tab == "" {
		tab = config.DefaultTabKey
		if keys := cfg.TabKeys(); len(keys) > 0 {
			tab = keys[0]
		}
	}
	connection, _ := cmd.Flags().GetString("connection")
	if connection == "" {
		return errors.New("no connection selected (use --connection)")
	}

	sessions := session.NewManager(cmdCtx.Store, cmdCtx.Logger)
	sess := sessions.Get(tab)
	if sess == nil {
		return fmt.Errorf("tab %q is not configured", tab)
	}

	switch opts.Query {
	case "":
		sessions.SwitchTo(tab)
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read query from stdin: %w", err)
		}
		sess.SetText(string(data))
	default:
		sess.SetText(opts.Query)
	}

	hist, err := OpenHistory(cmd, cmdCtx.Logger)
	if err != nil {
		return err
	}
	coordOpts := []execution.Option{execution.WithLogger(cmdCtx.Logger)}
	if hist != nil {
		defer func() { _ = hist.Close() }()
		coordOpts = append(coordOpts, execution.WithRecorder(hist))
	}

	display := &headlessDisplay{tab: tab, connection: connection}
	loop := newSerialLoop()
	coord := execution.New(cmdCtx.Store, sessions, display, loop.Dispatch, coordOpts...)

	start := time.Now()
	if err := coord.Run(tab); err != nil {
		return err
	}
	stop := context.AfterFunc(cmd.Context(), func() { loop.Dispatch(coord.Cancel) })
	loop.RunUntil(coord.Wait)
	stop()

	if err := cmd.Context().Err(); err != nil {
		return fmt.Errorf("query interrupted: %w", err)
	}

	if display.message != "" {
		return errors.New(display.message)
	}

	_, rowCount := sess.Result()
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d rows written to %s in %s\n",
		rowCount, cfg.ResultsFile(tab), time.Since(start).Round(time.Millisecond))

	if opts.Print {
		printRows(cmd.OutOrStdout(), display.headers, display.rows)
	}
	return nil
}

func printRows(w io.Writer, headers []string, rows [][]string) {
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		row := make(table.Row, len(r))
		for j, v := range r {
			row[j] = v
		}
		out[i] = row
	}
	renderTable(w, header, out)
}

// headlessDisplay collects what the interface would show.
type headlessDisplay struct {
	tab        string
	connection string

	message string
	headers []string
	rows    [][]string
}

func (d *headlessDisplay) ShowMessage(text string, _ time.Duration) {
	d.message = text
}

func (d *headlessDisplay) SetResultTable(_ string, headers []string, rows [][]string) {
	d.headers = headers
	d.rows = rows
}

func (d *headlessDisplay) SetExecuteEnabled(string, bool) {}

func (d *headlessDisplay) ActiveTab() string {
	return d.tab
}

func (d *headlessDisplay) SelectedConnection() (string, bool) {
	return d.connection, d.connection != ""
}

// serialLoop stands in for the interface's event loop: posted functions run
// one at a time on the goroutine that calls RunUntil.
type serialLoop struct {
	fns chan func()
}

func newSerialLoop() *serialLoop {
	return &serialLoop{fns: make(chan func(), 16)}
}

// Dispatch implements execution.Dispatcher.
func (l *serialLoop) Dispatch(fn func()) {
	l.fns <- fn
}

// RunUntil runs posted functions until wait returns and the queue is empty.
func (l *serialLoop) RunUntil(wait func()) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	for {
		select {
		case fn := <-l.fns:
			fn()
		case <-done:
			for {
				select {
				case fn := <-l.fns:
					fn()
				default:
					return
				}
			}
		}
	}
}

var _ execution.Display = (*headlessDisplay)(nil)
