// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/AleutianAI/sortbench/services/sortbench/driver"
)

// DefaultCSVPath is the report file written when no path is configured.
const DefaultCSVPath = "sorting_results.csv"

// FormatTime renders an average time in milliseconds with three decimals.
func FormatTime(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 3, 64)
}

// FormatCount renders an averaged counter in its shortest exact decimal form:
// 30 stays "30", 2.4 stays "2.4".
func FormatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSVSink writes rows as comma-separated records.
//
// The header is written when the sink is created, so an empty run still
// leaves a valid report. Each row is flushed as it arrives.
//
// Thread Safety: Safe for concurrent use.
type CSVSink struct {
	path   string
	w      *csv.Writer
	closer io.Closer

	mu     sync.Mutex
	closed bool
	rows   int
}

// OpenCSV creates (or truncates) the file at path and writes the header.
//
// Outputs:
//   - *CSVSink: Owns the file; Close closes it.
//   - error: Wraps ErrSinkOpen when the file cannot be created or written.
func OpenCSV(path string) (*CSVSink, error) {
	if path == "" {
		path = DefaultCSVPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSinkOpen, path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSinkOpen, path, err)
	}

	s, err := newCSV(f, f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewCSVWriter writes the report to w. Close flushes but does not close w.
func NewCSVWriter(w io.Writer) (*CSVSink, error) {
	return newCSV(w, nil, "")
}

func newCSV(w io.Writer, closer io.Closer, path string) (*CSVSink, error) {
	s := &CSVSink{path: path, w: csv.NewWriter(w), closer: closer}
	if err := s.writeRecord(Header); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrSinkOpen, err)
	}
	return s, nil
}

func (s *CSVSink) writeRecord(rec []string) error {
	if err := s.w.Write(rec); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Path returns the file path, or "" for a writer-backed sink.
func (s *CSVSink) Path() string { return s.path }

// Rows returns the number of data rows written.
func (s *CSVSink) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Write appends one record for row.
func (s *CSVSink) Write(_ context.Context, row driver.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if err := s.writeRecord(Record(row)); err != nil {
		return fmt.Errorf("csv %s: %w", row.Algorithm, err)
	}
	s.rows++
	return nil
}

// Close flushes and releases the file. Idempotent.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// WriteCSV writes a complete report for rows to w.
func WriteCSV(w io.Writer, rows []driver.Row) error {
	s, err := NewCSVWriter(w)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.Write(context.Background(), row); err != nil {
			return err
		}
	}
	return s.Close()
}
