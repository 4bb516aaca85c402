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
	"fmt"

	"github.com/AleutianAI/sortbench/pkg/logging"
	"github.com/AleutianAI/sortbench/pkg/ux"
	"github.com/AleutianAI/sortbench/services/sortbench/algorithms"
	"github.com/AleutianAI/sortbench/services/sortbench/config"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

// runOptions are the flags of the run command.
type runOptions struct {
	output    string
	sizes     string
	dataTypes string
	trials    int
	parallel  int
	seed      uint64
	noHistory bool
	quiet     bool
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "sortbench",
		Short: "Benchmark classic sorting algorithms",
		Long: `sortbench runs bubble, insertion, selection, merge and quick sort over
random, nearly sorted and reverse sorted inputs of several sizes, counts
comparisons and swaps, and writes the averaged results to a CSV report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newRunCmd(g),
		newAlgorithmsCmd(),
		newHistoryCmd(g),
		newServeCmd(g),
	)
	return rootCmd
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark and write the CSV report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd, g, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "", "CSV report path (default sorting_results.csv)")
	f.StringVar(&o.sizes, "sizes", "", "Comma-separated input sizes, e.g. 1000,5000")
	f.StringVar(&o.dataTypes, "data-types", "", "Comma-separated data types: random, nearly-sorted, reverse-sorted")
	f.IntVarP(&o.trials, "trials", "t", 0, "Trials averaged per cell (default 5)")
	f.IntVarP(&o.parallel, "parallel", "p", 0, "Cells run concurrently (default 1)")
	f.Uint64Var(&o.seed, "seed", 0, "Seed for reproducible datasets")
	f.BoolVar(&o.noHistory, "no-history", false, "Do not store the run in the history database")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "Do not print per-cell results")
	return cmd
}

func newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the benchmarked algorithms in run order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := ux.NewPrinter(cmd.OutOrStdout())
			for i, name := range algorithms.Default().List() {
				p.Println(fmt.Sprintf("%d. %s", i+1, name))
			}
			return nil
		},
	}
}

// loadConfig loads the config file and environment, then applies --log-level.
func loadConfig(g *globalOptions) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// newLogger builds the stderr logger for cfg.
func newLogger(cmd *cobra.Command, cfg config.Config) (*logging.Logger, error) {
	lc, err := cfg.LoggingConfig()
	if err != nil {
		return nil, err
	}
	lc.Output = cmd.ErrOrStderr()
	return logging.New(lc), nil
}
