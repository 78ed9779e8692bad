// Package main provides the sqltui command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/sqltui/internal/cli"

	// Register database adapters
	_ "github.com/leapstack-labs/sqltui/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/sqltui/pkg/adapters/oracle"
	_ "github.com/leapstack-labs/sqltui/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/sqltui/pkg/adapters/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
