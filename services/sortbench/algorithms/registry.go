// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package algorithms provides the instrumented sort routines and the fixed
// table the benchmark driver dispatches through.
//
// # Counting Policy
//
// Every routine sorts its input in place and records into a caller-owned
// metrics.Metrics. Comparisons are recorded at every decision point. Moves
// approximate real data movement, so the policy differs per routine:
//
//	Bubble     one move per adjacent exchange
//	Insertion  one move per shift; the final key write is free
//	Selection  one move per end-of-pass swap that changes something
//	Merge      one move per element taken from the right run
//	Quick      one move per partition swap that changes something
//
// The merge and quick counts are therefore not true swap counts and must not
// be compared directly with analyses that count every write.
//
// # Dispatch
//
// A Registry is built once from an ordered list of Algorithm values and is
// read-only afterwards. Default returns the five routines in report order:
// the three quadratic sorts first, then merge and quick sort.
package algorithms

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/sortbench/services/sortbench/metrics"
)

// Report names of the built-in routines.
const (
	BubbleSort    = "Bubble Sort"
	InsertionSort = "Insertion Sort"
	SelectionSort = "Selection Sort"
	MergeSort     = "Merge Sort"
	QuickSort     = "Quick Sort"
)

var (
	// ErrUnknownAlgorithm is returned when a name is not in the registry.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrDuplicateAlgorithm is returned when two entries share a name.
	ErrDuplicateAlgorithm = errors.New("duplicate algorithm")

	// ErrNilAlgorithm is returned when an entry is nil.
	ErrNilAlgorithm = errors.New("algorithm must not be nil")
)

// Algorithm sorts a dataset in place while recording into m.
//
// Implementations must not retain data or m after Sort returns.
type Algorithm interface {
	// Name is the identifier used in reports and skip rules.
	Name() string

	// Sort orders data ascending in place.
	Sort(data []int, m *metrics.Metrics)
}

// Func adapts a plain sort function to the Algorithm interface.
type Func struct {
	name string
	fn   func([]int, *metrics.Metrics)
}

// NewFunc wraps fn under name.
func NewFunc(name string, fn func([]int, *metrics.Metrics)) Func {
	return Func{name: name, fn: fn}
}

// Name returns the report name.
func (f Func) Name() string { return f.name }

// Sort calls the wrapped function.
func (f Func) Sort(data []int, m *metrics.Metrics) { f.fn(data, m) }

// Registry is an ordered, immutable table from name to Algorithm.
//
// Thread Safety: Safe for concurrent use; it is never mutated after
// construction.
type Registry struct {
	order  []Algorithm
	byName map[string]Algorithm
}

// NewRegistry builds a registry from entries, keeping their order.
//
// Outputs:
//   - *Registry: The registry. Nil on error.
//   - error: ErrNilAlgorithm or ErrDuplicateAlgorithm.
func NewRegistry(entries ...Algorithm) (*Registry, error) {
	r := &Registry{
		order:  make([]Algorithm, 0, len(entries)),
		byName: make(map[string]Algorithm, len(entries)),
	}
	for _, a := range entries {
		if a == nil {
			return nil, ErrNilAlgorithm
		}
		name := a.Name()
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAlgorithm, name)
		}
		r.order = append(r.order, a)
		r.byName[name] = a
	}
	return r, nil
}

// Default returns the five built-in routines in report order.
func Default() *Registry {
	r, err := NewRegistry(
		NewFunc(BubbleSort, Bubble),
		NewFunc(InsertionSort, Insertion),
		NewFunc(SelectionSort, Selection),
		NewFunc(MergeSort, Merge),
		NewFunc(QuickSort, Quick),
	)
	if err != nil {
		panic(fmt.Sprintf("algorithms: default registry: %v", err))
	}
	return r
}

// Get looks up an algorithm by name.
func (r *Registry) Get(name string) (Algorithm, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Lookup is Get with an error suitable for returning to a caller.
func (r *Registry) Lookup(name string) (Algorithm, error) {
	if a, ok := r.byName[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
}

// MustGet looks up an algorithm by name and panics if it is missing.
func (r *Registry) MustGet(name string) Algorithm {
	a, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("algorithms: not found: %s", name))
	}
	return a
}

// List returns the names in registry order.
func (r *Registry) List() []string {
	names := make([]string, len(r.order))
	for i, a := range r.order {
		names[i] = a.Name()
	}
	return names
}

// All returns the algorithms in registry order. The slice is a copy.
func (r *Registry) All() []Algorithm {
	out := make([]Algorithm, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of entries.
func (r *Registry) Count() int {
	return len(r.order)
}
