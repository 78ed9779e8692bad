// Package cli provides the command-line interface for sqltui.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/sqltui/internal/cli/commands"
	"github.com/leapstack-labs/sqltui/internal/config"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		logFile string
		logOut  io.Closer
	)
	level := new(slog.LevelVar)

	rootCmd := &cobra.Command{
		Use:   "sqltui",
		Short: "sqltui - SQL workspace for the terminal",
		Long: `sqltui is a terminal workspace for running SQL against configured
database connections.

Each tab keeps its query in a scratch file and writes the result of the last
execution to a CSV file, which can be opened in an external spreadsheet
viewer. Queries run in the background; starting a new one cancels the one
in flight.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip logger setup for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			level.Set(slog.LevelInfo)
			if verbose {
				level.Set(slog.LevelDebug)
			}

			var w io.Writer
			switch {
			case logFile != "":
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				w, logOut = f, f
			case verbose && cmd != cmd.Root():
				// The interface owns the terminal, so only headless
				// commands may log to stderr.
				w = cmd.ErrOrStderr()
			}

			logger := slog.New(slog.DiscardHandler)
			if w != nil {
				logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
			}
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logOut != nil {
				_ = logOut.Close()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInterface(cmd, level)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	commands.AddGlobalFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to this file")

	_ = rootCmd.RegisterFlagCompletionFunc("connection", completeConnections)

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewConnectionsCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// completeConnections offers connection keys from the config file.
func completeConnections(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path, nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return cfg.ConnectionKeys(), cobra.ShellCompDirectiveNoFileComp
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sqltui.

To load completions:

Bash:
  $ source <(sqltui completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ sqltui completion bash > /etc/bash_completion.d/sqltui
  # macOS:
  $ sqltui completion bash > $(brew --prefix)/etc/bash_completion.d/sqltui

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ sqltui completion zsh > "${fpath[1]}/_sqltui"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ sqltui completion fish | source

  # To load completions for each session, execute once:
  $ sqltui completion fish > ~/.config/fish/completions/sqltui.fish

PowerShell:
  PS> sqltui completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
