// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report delivers benchmark rows to their destinations.
//
// # Sinks
//
//	                     ┌─────────────┐
//	driver.Run ──Row──▶  │  Composite  │
//	                     └──────┬──────┘
//	        ┌─────────────┬─────┴──────┬──────────────┐
//	        ▼             ▼            ▼              ▼
//	    CSVSink      ConsoleSink   InfluxSink   history.Recorder
//
// Every sink receives rows in driver order and is closed once at the end of
// the run. Sinks whose failure must not abort a run are wrapped with
// Optional.
package report

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AleutianAI/sortbench/pkg/logging"
	"github.com/AleutianAI/sortbench/services/sortbench/driver"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrSinkOpen indicates a sink could not be opened. It is fatal for a run.
	ErrSinkOpen = errors.New("open report sink")

	// ErrSinkClosed indicates a write to a closed sink.
	ErrSinkClosed = errors.New("report sink closed")

	// ErrNoSinks indicates a composite was built with nothing to write to.
	ErrNoSinks = errors.New("no report sinks")
)

// Sink is a driver.Sink that owns resources released by Close.
type Sink interface {
	driver.Sink
	Close() error
}

// -----------------------------------------------------------------------------
// Composite
// -----------------------------------------------------------------------------

// Composite fans each row out to several sinks.
//
// Description:
//
//	Write and Close call every sink even when an earlier one fails, and
//	return the joined errors.
//
// Thread Safety: Safe for concurrent use.
type Composite struct {
	sinks []Sink

	mu     sync.Mutex
	closed bool
}

// NewComposite returns a Composite over sinks. Nil entries are dropped.
//
// Outputs:
//   - *Composite: Never nil on success.
//   - error: ErrNoSinks when no non-nil sink was given.
func NewComposite(sinks ...Sink) (*Composite, error) {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoSinks
	}
	return &Composite{sinks: kept}, nil
}

// Write sends row to every sink.
func (c *Composite) Write(ctx context.Context, row driver.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSinkClosed
	}

	var errs []error
	for _, s := range c.sinks {
		if err := s.Write(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink. Idempotent.
func (c *Composite) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of wrapped sinks.
func (c *Composite) Len() int { return len(c.sinks) }

// -----------------------------------------------------------------------------
// Optional
// -----------------------------------------------------------------------------

type optionalSink struct {
	name   string
	sink   Sink
	logger *logging.Logger
	warned bool
}

// Optional wraps sink so its failures are logged as warnings instead of
// returned. The first failed write is logged; later ones are dropped silently.
func Optional(name string, sink Sink, logger *logging.Logger) Sink {
	if logger == nil {
		logger = logging.Discard()
	}
	return &optionalSink{name: name, sink: sink, logger: logger}
}

func (o *optionalSink) Write(ctx context.Context, row driver.Row) error {
	if err := o.sink.Write(ctx, row); err != nil && !o.warned {
		o.warned = true
		o.logger.Warn("optional report sink failed, continuing without it",
			"sink", o.name,
			"algorithm", row.Algorithm,
			"size", row.Size,
			"error", err,
		)
	}
	return nil
}

func (o *optionalSink) Close() error {
	if err := o.sink.Close(); err != nil {
		o.logger.Warn("optional report sink failed to close", "sink", o.name, "error", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Formatting
// -----------------------------------------------------------------------------

// NotAvailable is written in place of figures for skipped cells.
const NotAvailable = "N/A"

// Header is the CSV header row.
var Header = []string{"Algorithm", "DataType", "Size", "Time_ms", "Comparisons", "Swaps"}

// Record formats row as CSV fields matching Header.
func Record(row driver.Row) []string {
	rec := []string{row.Algorithm, row.DataType.String(), fmt.Sprint(row.Size)}
	if row.Skipped {
		return append(rec, NotAvailable, NotAvailable, NotAvailable)
	}
	return append(rec,
		FormatTime(row.Average.TimeMS),
		FormatCount(row.Average.Comparisons),
		FormatCount(row.Average.Swaps),
	)
}
