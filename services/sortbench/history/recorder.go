// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"sync"
	"time"

	"github.com/AleutianAI/sortbench/services/sortbench/driver"
)

// Recorder buffers the rows of one run and stores them as a Run on Close.
//
// The run ID comes from the rows. Start and finish times are taken from the
// driver summary when Finish is called, otherwise from the recorder's own
// clock. A recorder that saw no rows stores nothing. Close does not close the
// Store.
//
// Thread Safety: Safe for concurrent use.
type Recorder struct {
	store  *Store
	config RunConfig
	now    func() time.Time

	mu      sync.Mutex
	run     Run
	summary *driver.Summary
	closed  bool
}

// NewRecorder returns a Recorder that saves into store.
func NewRecorder(store *Store, config RunConfig) *Recorder {
	r := &Recorder{store: store, config: config, now: time.Now}
	r.run.StartedAt = r.now()
	return r
}

// Write buffers row.
func (r *Recorder) Write(_ context.Context, row driver.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	if r.run.ID == "" {
		r.run.ID = row.RunID
	}
	r.run.Rows = append(r.run.Rows, row)
	return nil
}

// Finish attaches the driver's summary so the stored run carries its times.
func (r *Recorder) Finish(summary driver.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = &summary
}

// Close stores the buffered run. Idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if len(r.run.Rows) == 0 {
		return nil
	}

	run := r.run
	run.Config = r.config
	run.FinishedAt = r.now()
	if r.summary != nil {
		run.ID = r.summary.RunID
		run.StartedAt = r.summary.StartedAt
		run.FinishedAt = r.summary.FinishedAt
	}
	return r.store.SaveRun(context.Background(), &run)
}

// RunID returns the ID of the buffered run, or "" before the first row.
func (r *Recorder) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.summary != nil {
		return r.summary.RunID
	}
	return r.run.ID
}
