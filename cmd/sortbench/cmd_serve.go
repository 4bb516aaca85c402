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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/sortbench/services/sortbench/algorithms"
	"github.com/AleutianAI/sortbench/services/sortbench/api"
	"github.com/AleutianAI/sortbench/services/sortbench/history"
	sbbadger "github.com/AleutianAI/sortbench/services/sortbench/storage/badger"
	"github.com/AleutianAI/sortbench/services/sortbench/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config, 12240)")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalOptions, port int) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The server always exposes /metrics.
	if cfg.Telemetry.MetricExporter == "" || cfg.Telemetry.MetricExporter == telemetry.ExporterNone {
		cfg.Telemetry.MetricExporter = telemetry.ExporterPrometheus
	}
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	bcfg := sbbadger.DefaultConfig(cfg.History.Path)
	bcfg.Logger = logger.Slog()
	store, err := history.Open(bcfg)
	if err != nil {
		return err
	}
	defer store.Close()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.NewHandlers(store, algorithms.Default(), logger), telemetry.MetricsHandler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting sortbench server", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving stored runs on http://localhost%s/v1/runs\n", srv.Addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down sortbench server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
