// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AleutianAI/sortbench/pkg/ux"
	"github.com/AleutianAI/sortbench/services/sortbench/history"
	"github.com/AleutianAI/sortbench/services/sortbench/report"
	sbbadger "github.com/AleutianAI/sortbench/services/sortbench/storage/badger"
	"github.com/spf13/cobra"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored benchmark runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(g, func(store *history.Store) error {
				return listRuns(cmd.Context(), store, ux.NewPrinter(cmd.OutOrStdout()), limit)
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the results of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(g, func(store *history.Store) error {
				return showRun(cmd.Context(), store, ux.NewPrinter(cmd.OutOrStdout()), args[0])
			})
		},
	}

	var output string
	exportCmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write a stored run as a CSV report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(g, func(store *history.Store) error {
				return exportRun(cmd.Context(), store, cmd.OutOrStdout(), args[0], output)
			})
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	cmd.AddCommand(listCmd, showCmd, exportCmd)
	return cmd
}

// withStore opens the configured history database for the duration of fn.
func withStore(g *globalOptions, fn func(*history.Store) error) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	store, err := history.Open(sbbadger.DefaultConfig(cfg.History.Path))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func listRuns(ctx context.Context, store *history.Store, p *ux.Printer, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		p.Muted("No stored runs.")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			fmt.Sprint(r.Cells),
			fmt.Sprint(r.Skipped),
		}
	}
	p.Table([]string{"ID", "Started", "Duration", "Cells", "Skipped"}, rows)
	return nil
}

func showRun(ctx context.Context, store *history.Store, p *ux.Printer, id string) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}

	p.Title("Run " + run.ID)
	p.Muted(fmt.Sprintf("Started %s, trials %d, sizes %v",
		run.StartedAt.Local().Format(time.DateTime), run.Config.Trials, run.Config.Sizes))

	rows := make([][]string, len(run.Rows))
	for i, row := range run.Rows {
		rows[i] = report.Record(row)
	}
	p.Table(report.Header, rows)
	return nil
}

func exportRun(ctx context.Context, store *history.Store, stdout io.Writer, id, output string) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if output == "" {
		return report.WriteCSV(stdout, run.Rows)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", report.ErrSinkOpen, output, err)
	}
	if err := report.WriteCSV(f, run.Rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported run %s to %s\n", run.ID, output)
	return nil
}
