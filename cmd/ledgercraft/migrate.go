package main

import (
	"context"
	"time"

	"github.com/smallbiznis/ledgercraft/internal/config"
	"github.com/smallbiznis/ledgercraft/internal/migration"
	"github.com/smallbiznis/ledgercraft/internal/observability"
	"github.com/smallbiznis/ledgercraft/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			fx.NopLogger,
			config.Module,
			observability.Module,
			db.Module,
			migration.Module,
		)
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		if err := app.Start(ctx); err != nil {
			return err
		}
		return app.Stop(ctx)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
