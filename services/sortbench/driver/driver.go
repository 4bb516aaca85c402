// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package driver runs the sorting benchmark.
//
// # Overview
//
// A run walks the cross product
//
//	sizes × data types × algorithms × trials
//
// in that nesting order. For each configuration cell (size, data type,
// algorithm) the driver either emits a skipped row, when a skip rule says the
// algorithm is too slow at that size, or runs the configured number of
// trials. Every trial generates a fresh dataset, sorts it with a fresh
// metrics.Metrics, and times only the sort call. The cell's row carries the
// per-trial averages.
//
// Rows go to a Sink in iteration order, one per cell, skipped or not.
//
// # Parallelism
//
// With Config.Parallelism > 1 cells run concurrently on an errgroup. Each
// trial still owns its dataset and metrics, and rows are still delivered in
// iteration order once all cells finish. Timings measured under parallel
// load are noisier than sequential ones.
//
// # Thread Safety
//
// A Driver may be reused for several runs but Run must not be called
// concurrently with itself.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/sortbench/pkg/logging"
	"github.com/AleutianAI/sortbench/services/sortbench/algorithms"
	"github.com/AleutianAI/sortbench/services/sortbench/datagen"
	"github.com/AleutianAI/sortbench/services/sortbench/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/AleutianAI/sortbench/services/sortbench/driver"

// ErrSinkWrite wraps a failure to deliver a row to the sink. It aborts the run.
var ErrSinkWrite = errors.New("write report row")

// Row is the averaged result of one configuration cell.
type Row struct {
	RunID     string           `json:"run_id"`
	Algorithm string           `json:"algorithm"`
	DataType  datagen.Category `json:"data_type"`
	Size      int              `json:"size"`
	Skipped   bool             `json:"skipped"`
	Trials    int              `json:"trials"`
	Average   metrics.Average  `json:"average"`
}

// Sink receives rows as the driver produces them.
type Sink interface {
	Write(ctx context.Context, row Row) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, row Row) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, row Row) error { return f(ctx, row) }

// Summary describes a finished run.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Cells      int       `json:"cells"`
	Skipped    int       `json:"skipped"`
	Trials     int       `json:"trials"`
}

// Driver executes benchmark runs against a fixed algorithm registry.
type Driver struct {
	registry *algorithms.Registry
	cfg      Config
	logger   *logging.Logger
	tracer   trace.Tracer
	newID    func() string
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the progress logger. Default: discard.
func WithLogger(logger *logging.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracerProvider sets the provider for per-cell spans.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Driver) {
		if tp != nil {
			d.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithRunID fixes the run identifier instead of generating a UUID.
func WithRunID(id string) Option {
	return func(d *Driver) {
		if id != "" {
			d.newID = func() string { return id }
		}
	}
}

// New validates cfg against registry and returns a Driver.
//
// Outputs:
//   - *Driver: Ready to Run. Nil on error.
//   - error: Wraps ErrInvalidConfig when cfg is invalid or a skip rule names
//     an algorithm missing from registry.
func New(registry *algorithms.Registry, cfg Config, opts ...Option) (*Driver, error) {
	if registry == nil || registry.Count() == 0 {
		return nil, fmt.Errorf("%w: empty algorithm registry", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, rule := range cfg.SkipRules {
		if _, ok := registry.Get(rule.Algorithm); !ok {
			return nil, fmt.Errorf("%w: skip rule for %w", ErrInvalidConfig,
				fmt.Errorf("%w: %s", algorithms.ErrUnknownAlgorithm, rule.Algorithm))
		}
	}

	d := &Driver{
		registry: registry,
		cfg:      cfg.clone(),
		logger:   logging.Discard(),
		tracer:   otel.GetTracerProvider().Tracer(instrumentationName),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns a copy of the driver's configuration.
func (d *Driver) Config() Config {
	return d.cfg.clone()
}

// cell is one (size, data type, algorithm) combination.
type cell struct {
	index    int
	size     int
	category datagen.Category
	algo     algorithms.Algorithm
	skip     bool
}

func (d *Driver) plan() []cell {
	algos := d.registry.All()
	cells := make([]cell, 0, len(d.cfg.Sizes)*len(d.cfg.Categories)*len(algos))
	for _, size := range d.cfg.Sizes {
		for _, category := range d.cfg.Categories {
			for _, algo := range algos {
				cells = append(cells, cell{
					index:    len(cells),
					size:     size,
					category: category,
					algo:     algo,
					skip:     d.cfg.ShouldSkip(algo.Name(), size),
				})
			}
		}
	}
	return cells
}

// Run executes every configuration cell and writes one row per cell to sink.
//
// A sink error aborts the run and is returned wrapped in ErrSinkWrite.
// Cancelling ctx stops the run between cells and returns ctx.Err().
func (d *Driver) Run(ctx context.Context, sink Sink) (Summary, error) {
	if sink == nil {
		return Summary{}, fmt.Errorf("%w: nil sink", ErrInvalidConfig)
	}

	summary := Summary{RunID: d.newID(), StartedAt: time.Now()}
	log := d.logger.With("run_id", summary.RunID)

	ctx, span := d.tracer.Start(ctx, "sortbench.run", trace.WithAttributes(
		attribute.String("run.id", summary.RunID),
		attribute.IntSlice("run.sizes", d.cfg.Sizes),
		attribute.Int("run.trials", d.cfg.Trials),
		attribute.Int("run.parallelism", d.cfg.parallelism()),
	))
	defer span.End()

	cells := d.plan()
	log.Info("benchmark started",
		"cells", len(cells),
		"sizes", d.cfg.Sizes,
		"trials", d.cfg.Trials,
		"parallelism", d.cfg.parallelism(),
	)

	emit := func(row Row) error {
		summary.Cells++
		if row.Skipped {
			summary.Skipped++
		} else {
			summary.Trials += row.Trials
		}
		if err := sink.Write(ctx, row); err != nil {
			return fmt.Errorf("%w: %s/%s/%d: %w", ErrSinkWrite, row.Algorithm, row.DataType, row.Size, err)
		}
		return nil
	}

	var err error
	if d.cfg.parallelism() > 1 {
		err = d.runParallel(ctx, log, summary.RunID, cells, emit)
	} else {
		err = d.runSequential(ctx, log, summary.RunID, cells, emit)
	}
	summary.FinishedAt = time.Now()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	log.Info("benchmark finished",
		"cells", summary.Cells,
		"skipped", summary.Skipped,
		"trials", summary.Trials,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
	return summary, nil
}

func (d *Driver) runSequential(ctx context.Context, log *logging.Logger, runID string, cells []cell, emit func(Row) error) error {
	lastSize, lastCategory := -1, datagen.Category(-1)
	for _, c := range cells {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.size != lastSize {
			log.Info("testing size", "size", c.size)
			lastSize, lastCategory = c.size, -1
		}
		if c.category != lastCategory {
			log.Info("testing data type", "size", c.size, "data_type", c.category.String())
			lastCategory = c.category
		}

		if err := emit(d.runCell(ctx, log, runID, c)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) runParallel(ctx context.Context, log *logging.Logger, runID string, cells []cell, emit func(Row) error) error {
	rows := make([]Row, len(cells))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.parallelism())
	for _, c := range cells {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[c.index] = d.runCell(gctx, log, runID, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, row := range rows {
		if err := emit(row); err != nil {
			return err
		}
	}
	return nil
}

// runCell averages the configured trials of one cell.
func (d *Driver) runCell(ctx context.Context, log *logging.Logger, runID string, c cell) Row {
	row := Row{
		RunID:     runID,
		Algorithm: c.algo.Name(),
		DataType:  c.category,
		Size:      c.size,
		Skipped:   c.skip,
	}

	_, span := d.tracer.Start(ctx, "sortbench.cell", trace.WithAttributes(
		attribute.String("cell.algorithm", row.Algorithm),
		attribute.String("cell.data_type", row.DataType.String()),
		attribute.Int("cell.size", row.Size),
		attribute.Bool("cell.skipped", row.Skipped),
	))
	defer span.End()

	cellLog := log.With("algorithm", row.Algorithm, "data_type", row.DataType.String(), "size", row.Size)
	if c.skip {
		cellLog.Info("skipped: too slow for this size")
		return row
	}

	gen := d.generatorFor(c)
	var acc metrics.Accumulator
	for trial := 0; trial < d.cfg.Trials; trial++ {
		data := gen.Generate(c.category, c.size, d.cfg.DisorderPercent)

		m := metrics.New()
		start := time.Now()
		c.algo.Sort(data, m)
		m.SetElapsed(time.Since(start))

		acc.Add(m)
		cellLog.Debug("trial finished",
			"trial", trial+1,
			"time_ms", m.ElapsedMS(),
			"comparisons", m.Comparisons(),
			"swaps", m.Swaps(),
		)
	}

	row.Trials = acc.Trials()
	row.Average = acc.Average()
	span.SetAttributes(
		attribute.Float64("cell.time_ms", row.Average.TimeMS),
		attribute.Float64("cell.comparisons", row.Average.Comparisons),
		attribute.Float64("cell.swaps", row.Average.Swaps),
	)
	cellLog.Info("cell finished",
		"time_ms", row.Average.TimeMS,
		"comparisons", row.Average.Comparisons,
		"swaps", row.Average.Swaps,
	)
	return row
}

// generatorFor returns the dataset source for a cell. Without a seed every
// dataset comes from a fresh random source. With a seed each cell gets its
// own deterministic source, so results do not depend on scheduling.
func (d *Driver) generatorFor(c cell) *datagen.Generator {
	if d.cfg.Seed == nil {
		return nil
	}
	return datagen.NewGenerator(*d.cfg.Seed + uint64(c.index))
}
