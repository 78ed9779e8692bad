package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqltui/internal/config"
	"github.com/leapstack-labs/sqltui/internal/history"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Store  *config.Store
	Logger *slog.Logger
}

// NewCommandContext loads the configuration named by --config (or the
// default location) with the root's persistent flags applied on top.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	logger := config.GetLogger(cmd.Context())

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}

	store, err := config.NewStore(path, cmd.Root().PersistentFlags(), logger)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Store:  store,
		Logger: logger,
	}, nil
}

// OpenHistory opens the execution history database. It returns nil without
// error when history is disabled with --no-history.
func OpenHistory(cmd *cobra.Command, logger *slog.Logger) (*history.Store, error) {
	if disabled, _ := cmd.Flags().GetBool("no-history"); disabled {
		return nil, nil
	}

	path, _ := cmd.Flags().GetString("history")
	if path == "" {
		path = history.DefaultPath()
	}

	store := history.NewStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}

// AddGlobalFlags registers the persistent flags every command reads.
func AddGlobalFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (default: "+config.DefaultPath()+")")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.String("history", "", "History database (default: "+history.DefaultPath()+")")
	flags.Bool("no-history", false, "Do not record executions")
	flags.StringP("connection", "c", "", "Connection to select")

	// Settings that override the config file
	flags.String("editor", "", "External editor command")
	flags.String("spreadsheet", "", "External spreadsheet viewer command")
	flags.Int("fetch-batch-size", 0, "Rows fetched per round trip")
	flags.Float64("message-seconds", 0, "Seconds a status message stays visible")
}
