package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/bizplan/export"
	"github.com/sweetpotato0/bizplan/session/store"
)

var (
	exportOut string

	exportCmd = &cobra.Command{
		Use:   "export <session_id>",
		Short: "Write a stored interview as a PDF",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "PDF output path, defaults to business_plan_<id>.pdf")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx, false, "console")
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	records, closeStore, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	id := args[0]
	rec, err := records.Load(ctx, id)
	if err != nil {
		return err
	}

	path := exportOut
	if path == "" {
		path = fmt.Sprintf("business_plan_%s.pdf", id)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := export.Write(f, export.PlanTitle, export.RecordPairs(rec)); err != nil {
		return err
	}
	a.logger.Info("interview exported", "session_id", id, "path", path)
	return nil
}
