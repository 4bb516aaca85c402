// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/AleutianAI/sortbench/services/sortbench/driver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/AleutianAI/sortbench/services/sortbench/telemetry"

// ErrSinkClosed is returned by RowSink.Write after Close.
var ErrSinkClosed = errors.New("telemetry: row sink closed")

// RowSink records every report row as metric observations.
//
// Instruments:
//
//	sortbench.cells              counter    one per row, attribute skipped
//	sortbench.cell.time_ms       histogram  average time of measured cells
//	sortbench.cell.comparisons   histogram  average comparisons
//	sortbench.cell.swaps         histogram  average swaps
//
// Measured rows carry algorithm, data_type and size attributes.
//
// Thread Safety: Safe for concurrent use.
type RowSink struct {
	cells       metric.Int64Counter
	timeMS      metric.Float64Histogram
	comparisons metric.Float64Histogram
	swaps       metric.Float64Histogram

	mu     sync.RWMutex
	closed bool
}

// NewRowSink creates the instruments on mp's meter. A nil mp uses the global
// provider.
func NewRowSink(mp metric.MeterProvider) (*RowSink, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	s := &RowSink{}
	var err error

	s.cells, err = meter.Int64Counter(
		"sortbench.cells",
		metric.WithDescription("Configuration cells reported"),
		metric.WithUnit("{cell}"),
	)
	if err != nil {
		return nil, err
	}

	s.timeMS, err = meter.Float64Histogram(
		"sortbench.cell.time_ms",
		metric.WithDescription("Average sort time per cell"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	s.comparisons, err = meter.Float64Histogram(
		"sortbench.cell.comparisons",
		metric.WithDescription("Average element comparisons per cell"),
		metric.WithUnit("{comparison}"),
	)
	if err != nil {
		return nil, err
	}

	s.swaps, err = meter.Float64Histogram(
		"sortbench.cell.swaps",
		metric.WithDescription("Average element moves per cell"),
		metric.WithUnit("{swap}"),
	)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Write records row.
func (s *RowSink) Write(ctx context.Context, row driver.Row) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	cellAttrs := metric.WithAttributes(
		attribute.String("algorithm", row.Algorithm),
		attribute.String("data_type", row.DataType.String()),
		attribute.Bool("skipped", row.Skipped),
	)
	s.cells.Add(ctx, 1, cellAttrs)
	if row.Skipped {
		return nil
	}

	attrs := metric.WithAttributes(
		attribute.String("algorithm", row.Algorithm),
		attribute.String("data_type", row.DataType.String()),
		attribute.Int("size", row.Size),
	)
	s.timeMS.Record(ctx, row.Average.TimeMS, attrs)
	s.comparisons.Record(ctx, row.Average.Comparisons, attrs)
	s.swaps.Record(ctx, row.Average.Swaps, attrs)
	return nil
}

// Close stops recording. The meter provider is not shut down. Idempotent.
func (s *RowSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
