package commands

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqltui/internal/config"
	"github.com/spf13/cobra"
)

type connectionRecord struct {
	Key      string `json:"key" yaml:"key"`
	Label    string `json:"label" yaml:"label"`
	Type     string `json:"type" yaml:"type"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
}

// NewConnectionsCommand creates the connections command.
func NewConnectionsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "List configured connections",
		Long: `List the connection profiles from the configuration file in the order
the connection selector shows them. Passwords are never printed.`,
		Example: `  # Show connections as a table
  sqltui connections

  # Show connections as YAML
  sqltui connections -o yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return listConnections(cmd, cmdCtx.Store.Current(), format)
		},
	}

	addOutputFlag(cmd, &format)
	return cmd
}

func listConnections(cmd *cobra.Command, cfg *config.Config, format string) error {
	keys := cfg.ConnectionKeys()
	records := make([]connectionRecord, 0, len(keys))
	rows := make([]table.Row, 0, len(keys))

	for _, key := range keys {
		p, _ := cfg.Connection(key)
		rec := connectionRecord{
			Key:      key,
			Label:    p.DisplayLabel(),
			Type:     p.Type,
			Host:     p.Host,
			Port:     p.Port,
			Database: p.Database,
			User:     p.User,
		}
		records = append(records, rec)

		port := ""
		if rec.Port > 0 {
			port = strconv.Itoa(rec.Port)
		}
		rows = append(rows, table.Row{rec.Key, rec.Label, rec.Type, rec.Host, port, rec.Database, rec.User})
	}

	header := table.Row{"Key", "Label", "Type", "Host", "Port", "Database", "User"}
	return render(cmd.OutOrStdout(), format, records, header, rows)
}
