// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists finished benchmark runs in BadgerDB.
//
// # Key Layout
//
//	run/<id>                 JSON-encoded Run
//	idx/<unix-nano>/<id>     empty; orders runs by start time
//
// The start time in the index key is zero-padded so lexical key order is
// chronological order. ListRuns walks the index in reverse.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/sortbench/services/sortbench/driver"
	sbbadger "github.com/AleutianAI/sortbench/services/sortbench/storage/badger"
	"github.com/dgraph-io/badger/v4"
)

const (
	runPrefix   = "run/"
	indexPrefix = "idx/"
)

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidRun is returned when a run cannot be stored.
	ErrInvalidRun = errors.New("invalid run")

	// ErrRecorderClosed is returned by Recorder.Write after Close.
	ErrRecorderClosed = errors.New("history recorder closed")
)

// RunConfig is the stored description of what a run measured.
type RunConfig struct {
	Sizes           []int             `json:"sizes"`
	DataTypes       []string          `json:"data_types"`
	Algorithms      []string          `json:"algorithms"`
	Trials          int               `json:"trials"`
	DisorderPercent int               `json:"disorder_percent"`
	SkipRules       []driver.SkipRule `json:"skip_rules"`
	Parallelism     int               `json:"parallelism"`
	Seed            *uint64           `json:"seed,omitempty"`
}

// NewRunConfig describes cfg as run against algorithms.
func NewRunConfig(cfg driver.Config, algorithms []string) RunConfig {
	dataTypes := make([]string, len(cfg.Categories))
	for i, c := range cfg.Categories {
		dataTypes[i] = c.String()
	}
	return RunConfig{
		Sizes:           cfg.Sizes,
		DataTypes:       dataTypes,
		Algorithms:      algorithms,
		Trials:          cfg.Trials,
		DisorderPercent: cfg.DisorderPercent,
		SkipRules:       cfg.SkipRules,
		Parallelism:     cfg.Parallelism,
		Seed:            cfg.Seed,
	}
}

// Run is one stored benchmark run.
type Run struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Config     RunConfig    `json:"config"`
	Rows       []driver.Row `json:"rows"`
}

// RunSummary is the listing form of a Run.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Cells      int       `json:"cells"`
	Skipped    int       `json:"skipped"`
}

// Summary returns the listing form of r.
func (r *Run) Summary() RunSummary {
	s := RunSummary{ID: r.ID, StartedAt: r.StartedAt, FinishedAt: r.FinishedAt, Cells: len(r.Rows)}
	for _, row := range r.Rows {
		if row.Skipped {
			s.Skipped++
		}
	}
	return s
}

// Store reads and writes runs.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db *sbbadger.DB
}

// NewStore wraps an open database. Close closes it.
func NewStore(db *sbbadger.DB) *Store {
	return &Store{db: db}
}

// Open opens the history database described by cfg.
func Open(cfg sbbadger.Config) (*Store, error) {
	db, err := sbbadger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return NewStore(db), nil
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

func indexKey(startedAt time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%020d/%s", indexPrefix, startedAt.UnixNano(), id)
}

// SaveRun stores run, replacing any run with the same ID.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" || strings.Contains(run.ID, "/") {
		return ErrInvalidRun
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: %s has no start time", ErrInvalidRun, run.ID)
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if old, err := getRun(txn, run.ID); err == nil {
			if err := txn.Delete(indexKey(old.StartedAt, old.ID)); err != nil {
				return err
			}
		} else if !errors.Is(err, ErrRunNotFound) {
			return err
		}
		if err := txn.Set(runKey(run.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(run.StartedAt, run.ID), nil)
	})
}

// GetRun returns the run with id, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var run *Run
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		run, err = getRun(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func getRun(txn *badger.Txn, id string) (*Run, error) {
	item, err := txn.Get(runKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var run Run
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &run)
	}); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns summaries of stored runs, newest first. limit <= 0 means
// no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	var out []RunSummary
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(indexPrefix)
		// Reverse iteration seeks to the greatest key <= the seek key.
		seek := append([]byte(indexPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			key := string(it.Item().Key())
			_, id, ok := strings.Cut(strings.TrimPrefix(key, indexPrefix), "/")
			if !ok {
				continue
			}
			run, err := getRun(txn, id)
			if err != nil {
				return err
			}
			out = append(out, run.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRun removes the run with id, or returns ErrRunNotFound.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		run, err := getRun(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(indexKey(run.StartedAt, run.ID)); err != nil {
			return err
		}
		return txn.Delete(runKey(id))
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
