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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AleutianAI/sortbench/pkg/logging"
	"github.com/AleutianAI/sortbench/pkg/ux"
	"github.com/AleutianAI/sortbench/services/sortbench/algorithms"
	"github.com/AleutianAI/sortbench/services/sortbench/config"
	"github.com/AleutianAI/sortbench/services/sortbench/driver"
	"github.com/AleutianAI/sortbench/services/sortbench/history"
	"github.com/AleutianAI/sortbench/services/sortbench/report"
	sbbadger "github.com/AleutianAI/sortbench/services/sortbench/storage/badger"
	"github.com/AleutianAI/sortbench/services/sortbench/telemetry"
	"github.com/spf13/cobra"
)

// applyRunFlags overrides cfg with the run flags the user set.
func applyRunFlags(cmd *cobra.Command, o *runOptions, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("output") {
		cfg.Output.CSVPath = o.output
	}
	if f.Changed("sizes") {
		sizes, err := config.ParseSizes(o.sizes)
		if err != nil {
			return fmt.Errorf("%w: --sizes: %w", config.ErrInvalidConfig, err)
		}
		cfg.Benchmark.Sizes = sizes
	}
	if f.Changed("data-types") {
		var types []string
		for _, t := range strings.Split(o.dataTypes, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		cfg.Benchmark.DataTypes = types
	}
	if f.Changed("trials") {
		cfg.Benchmark.Trials = o.trials
	}
	if f.Changed("parallel") {
		cfg.Benchmark.Parallelism = o.parallel
	}
	if f.Changed("seed") {
		seed := o.seed
		cfg.Benchmark.Seed = &seed
	}
	if o.noHistory {
		cfg.History.Enabled = false
	}
	if o.quiet {
		cfg.Output.Console = false
	}
	return cfg.Validate()
}

// openedSinks holds the sinks of one run. Everything in it is open.
type openedSinks struct {
	composite *report.Composite
	recorder  *history.Recorder
	store     *history.Store
}

func (s *openedSinks) close() error {
	var errs []error
	if s.composite != nil {
		errs = append(errs, s.composite.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

// openSinks opens every configured sink before any sort runs. Any open
// failure closes what was already opened and is returned.
func openSinks(ctx context.Context, cmd *cobra.Command, cfg config.Config, dc driver.Config, logger *logging.Logger) (_ *openedSinks, err error) {
	var (
		sinks  []report.Sink
		opened = &openedSinks{}
	)
	defer func() {
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			if opened.store != nil {
				_ = opened.store.Close()
			}
		}
	}()

	csvSink, err := report.OpenCSV(cfg.Output.CSVPath)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, csvSink)

	if cfg.Output.Console {
		sinks = append(sinks, report.NewConsoleSink(cmd.OutOrStdout()))
	}

	if cfg.InfluxDB.Enabled() {
		influx, err := report.OpenInflux(ctx, cfg.InfluxDB)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, report.Optional("influxdb", influx, logger))
	}

	if cfg.History.Enabled {
		bcfg := sbbadger.DefaultConfig(cfg.History.Path)
		bcfg.Logger = logger.Slog()
		store, err := history.Open(bcfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", report.ErrSinkOpen, err)
		}
		opened.store = store
		opened.recorder = history.NewRecorder(store, history.NewRunConfig(dc, algorithms.Default().List()))
		sinks = append(sinks, report.Optional("history", opened.recorder, logger))
	}

	rowSink, err := telemetry.NewRowSink(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: telemetry: %w", report.ErrSinkOpen, err)
	}
	sinks = append(sinks, report.Optional("telemetry", rowSink, logger))

	opened.composite, err = report.NewComposite(sinks...)
	if err != nil {
		return nil, err
	}
	return opened, nil
}

func runBenchmark(cmd *cobra.Command, g *globalOptions, o *runOptions) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, o, &cfg); err != nil {
		return err
	}
	dc, err := cfg.DriverConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	d, err := driver.New(algorithms.Default(), dc, driver.WithLogger(logger))
	if err != nil {
		return err
	}

	sinks, err := openSinks(ctx, cmd, cfg, dc, logger)
	if err != nil {
		return err
	}

	p := ux.NewPrinter(cmd.OutOrStdout())
	if cfg.Output.Console {
		p.Title("--- Sorting algorithm benchmark ---")
	}

	summary, runErr := d.Run(ctx, sinks.composite)
	if sinks.recorder != nil && runErr == nil {
		sinks.recorder.Finish(summary)
	}
	closeErr := sinks.close()
	if runErr != nil {
		return errors.Join(runErr, closeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close report: %w", closeErr)
	}

	p.Println("")
	p.Success(fmt.Sprintf("--- Tests complete. Results saved to %s ---", cfg.Output.CSVPath))
	if sinks.recorder != nil {
		p.Muted(fmt.Sprintf("Run %s stored in history (%d cells, %d skipped)", summary.RunID, summary.Cells, summary.Skipped))
	}
	return nil
}
