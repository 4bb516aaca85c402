// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics holds the per-trial counters recorded by the instrumented
// sort routines and the accumulator that averages them across trials.
//
// A Metrics value is owned by exactly one sort call. Routines record every
// comparison and every data movement through RecordComparison and RecordMove;
// there is no other way to change the counters. Elapsed time is set by the
// caller that timed the sort.
//
// Thread Safety: Metrics and Accumulator are not safe for concurrent use.
// Each trial must use its own Metrics instance.
package metrics

import "time"

// Metrics counts the work done by a single sort call.
type Metrics struct {
	comparisons int64
	swaps       int64
	elapsed     time.Duration
}

// New returns a zeroed Metrics ready to be passed to a sort routine.
func New() *Metrics {
	return &Metrics{}
}

// RecordComparison counts one element comparison.
func (m *Metrics) RecordComparison() {
	m.comparisons++
}

// RecordMove counts one data movement (a swap or a shift).
func (m *Metrics) RecordMove() {
	m.swaps++
}

// Comparisons returns the number of comparisons recorded so far.
func (m *Metrics) Comparisons() int64 {
	return m.comparisons
}

// Swaps returns the number of moves recorded so far.
func (m *Metrics) Swaps() int64 {
	return m.swaps
}

// SetElapsed stores the wall-clock duration of the sort call.
func (m *Metrics) SetElapsed(d time.Duration) {
	m.elapsed = d
}

// Elapsed returns the stored duration.
func (m *Metrics) Elapsed() time.Duration {
	return m.elapsed
}

// ElapsedMS returns the stored duration in fractional milliseconds.
func (m *Metrics) ElapsedMS() float64 {
	return float64(m.elapsed.Nanoseconds()) / 1e6
}

// Average is the per-trial mean of a configuration cell.
//
// Integer counters become fractional once divided by the trial count.
type Average struct {
	TimeMS      float64 `json:"time_ms"`
	Comparisons float64 `json:"comparisons"`
	Swaps       float64 `json:"swaps"`
}

// Accumulator folds the Metrics of repeated trials into a running total.
type Accumulator struct {
	timeMS      float64
	comparisons int64
	swaps       int64
	trials      int
}

// Add folds one trial into the total. A nil Metrics is ignored.
func (a *Accumulator) Add(m *Metrics) {
	if m == nil {
		return
	}
	a.timeMS += m.ElapsedMS()
	a.comparisons += m.comparisons
	a.swaps += m.swaps
	a.trials++
}

// Trials returns how many trials have been added.
func (a *Accumulator) Trials() int {
	return a.trials
}

// Average divides each total by the trial count.
// With no trials it returns the zero Average.
func (a *Accumulator) Average() Average {
	if a.trials == 0 {
		return Average{}
	}
	n := float64(a.trials)
	return Average{
		TimeMS:      a.timeMS / n,
		Comparisons: float64(a.comparisons) / n,
		Swaps:       float64(a.swaps) / n,
	}
}
