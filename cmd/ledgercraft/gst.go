package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/clock"
	"github.com/smallbiznis/ledgercraft/internal/config"
	"github.com/smallbiznis/ledgercraft/internal/expense"
	"github.com/smallbiznis/ledgercraft/internal/gst"
	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
	gstdomain "github.com/smallbiznis/ledgercraft/internal/gst/domain"
	"github.com/smallbiznis/ledgercraft/internal/invoice"
	"github.com/smallbiznis/ledgercraft/internal/observability"
	"github.com/smallbiznis/ledgercraft/internal/orgcontext"
	s3storage "github.com/smallbiznis/ledgercraft/internal/storage/s3"
	"github.com/smallbiznis/ledgercraft/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var gstCmd = &cobra.Command{
	Use:   "gst",
	Short: "GST return tooling",
}

var gstExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Prepare, save and export a quarterly GST return workbook",
	Example: `  ledgercraft gst export --org 1 --quarter Q2 --year 2024
  ledgercraft gst export --org 1 --quarter Q2 --year 2024 --bad-debt 60 --out ./returns --upload`,
	RunE: runGSTExport,
}

func init() {
	rootCmd.AddCommand(gstCmd)
	gstCmd.AddCommand(gstExportCmd)

	gstExportCmd.Flags().Int64("org", 0, "Organization ID (default: DEFAULT_ORG)")
	gstExportCmd.Flags().String("quarter", "", "Quarter, Q1-Q4")
	gstExportCmd.Flags().Int("year", time.Now().Year(), "Calendar year")
	gstExportCmd.Flags().String("bad-debt", "0", "Bad debt adjustment")
	gstExportCmd.Flags().String("credit-note", "0", "Credit note adjustment")
	gstExportCmd.Flags().String("other", "0", "Other adjustment")
	gstExportCmd.Flags().String("out", ".", "Directory the workbook is written to")
	gstExportCmd.Flags().Bool("upload", false, "Also publish the workbook to object storage")
	_ = gstExportCmd.MarkFlagRequired("quarter")
}

func runGSTExport(cmd *cobra.Command, args []string) error {
	orgID, _ := cmd.Flags().GetInt64("org")
	quarter, _ := cmd.Flags().GetString("quarter")
	year, _ := cmd.Flags().GetInt("year")
	outDir, _ := cmd.Flags().GetString("out")
	upload, _ := cmd.Flags().GetBool("upload")

	adjustments, err := adjustmentFlags(cmd)
	if err != nil {
		return err
	}

	var (
		svc gstdomain.Service
		cfg config.Config
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		s3storage.Module,
		invoice.Module,
		expense.Module,
		gst.Module,
		fx.Populate(&svc, &cfg),
	)
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	if orgID == 0 {
		orgID = cfg.DefaultOrgID
	}
	if orgID == 0 {
		return errors.New("--org or DEFAULT_ORG is required")
	}
	ctx = orgcontext.WithOrgID(ctx, orgID)

	saved, err := svc.Save(ctx, gstdomain.SaveReturnRequest{
		PrepareReturnRequest: gstdomain.PrepareReturnRequest{
			Quarter:     quarter,
			Year:        year,
			Adjustments: adjustments,
		},
	})
	if err != nil {
		return err
	}

	export, err := svc.Export(ctx, saved.ID.String())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(outDir, export.FileName)
	if err := os.WriteFile(path, export.Body, 0o644); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d: net GST %s, payment due %s, refund due %s\n",
		saved.Quarter, saved.Year, saved.NetGST.StringFixed(2), saved.PaymentDue.StringFixed(2), saved.RefundDue.StringFixed(2))
	fmt.Fprintf(out, "workbook written to %s\n", path)

	if upload {
		published, err := svc.PublishExport(ctx, saved.ID.String())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "published %s (link expires %s)\n", published.Key, published.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func adjustmentFlags(cmd *cobra.Command) (aggregate.Adjustments, error) {
	parse := func(name string) (decimal.Decimal, error) {
		raw, _ := cmd.Flags().GetString(name)
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid --%s: %w", name, err)
		}
		return value, nil
	}

	var (
		out aggregate.Adjustments
		err error
	)
	if out.BadDebt, err = parse("bad-debt"); err != nil {
		return out, err
	}
	if out.CreditNote, err = parse("credit-note"); err != nil {
		return out, err
	}
	if out.Other, err = parse("other"); err != nil {
		return out, err
	}
	return out, nil
}
