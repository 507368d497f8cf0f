package main

import (
	"github.com/smallbiznis/ledgercraft/internal/clock"
	"github.com/smallbiznis/ledgercraft/internal/config"
	"github.com/smallbiznis/ledgercraft/internal/migration"
	"github.com/smallbiznis/ledgercraft/internal/observability"
	"github.com/smallbiznis/ledgercraft/internal/scheduler"
	"github.com/smallbiznis/ledgercraft/internal/server"
	"github.com/smallbiznis/ledgercraft/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the overdue sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			config.Module,
			observability.Module,
			fx.Provide(RegisterSnowflake),
			db.Module,
			clock.Module,
			migration.Module,
			server.Module,
			scheduler.Module,
		)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
