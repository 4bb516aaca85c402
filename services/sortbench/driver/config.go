// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package driver

import (
	"errors"
	"fmt"
	"slices"

	"github.com/AleutianAI/sortbench/services/sortbench/algorithms"
	"github.com/AleutianAI/sortbench/services/sortbench/datagen"
)

// ErrInvalidConfig indicates a driver configuration that cannot be run.
var ErrInvalidConfig = errors.New("invalid benchmark config")

// Defaults for a standard run.
const (
	DefaultTrials          = 5
	DefaultDisorderPercent = 1
)

// DefaultSizes are the input sizes of a standard run.
func DefaultSizes() []int {
	return []int{1000, 5000, 10000, 50000, 100000}
}

// DefaultSkipRules keeps the quadratic sorts off sizes where a run would take
// minutes per cell.
func DefaultSkipRules() []SkipRule {
	return []SkipRule{
		{Algorithm: algorithms.BubbleSort, AboveSize: 10000},
		{Algorithm: algorithms.SelectionSort, AboveSize: 10000},
		{Algorithm: algorithms.InsertionSort, AboveSize: 50000},
	}
}

// SkipRule marks an algorithm as not run for sizes strictly greater than
// AboveSize.
type SkipRule struct {
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	AboveSize int    `json:"above_size" yaml:"above_size"`
}

// Config controls a benchmark run.
type Config struct {
	// Sizes are the input sizes, in run order.
	Sizes []int

	// Categories are the data types, in run order.
	Categories []datagen.Category

	// Trials is the number of timed runs averaged per cell. Must be >= 1.
	Trials int

	// DisorderPercent is the share of transpositions applied to
	// nearly-sorted data. 0..100.
	DisorderPercent int

	// SkipRules suppress slow algorithms at large sizes.
	SkipRules []SkipRule

	// Parallelism is the number of cells run concurrently. Values below 2
	// run sequentially.
	Parallelism int

	// Seed makes dataset generation reproducible when non-nil.
	Seed *uint64
}

// DefaultConfig returns the standard five-size, three-type, five-trial run.
func DefaultConfig() Config {
	return Config{
		Sizes:           DefaultSizes(),
		Categories:      datagen.Categories(),
		Trials:          DefaultTrials,
		DisorderPercent: DefaultDisorderPercent,
		SkipRules:       DefaultSkipRules(),
		Parallelism:     1,
	}
}

// Validate reports the first problem with c, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if len(c.Sizes) == 0 {
		return fmt.Errorf("%w: no sizes", ErrInvalidConfig)
	}
	for _, size := range c.Sizes {
		if size < 0 {
			return fmt.Errorf("%w: negative size %d", ErrInvalidConfig, size)
		}
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: no data types", ErrInvalidConfig)
	}
	for _, category := range c.Categories {
		if !slices.Contains(datagen.Categories(), category) {
			return fmt.Errorf("%w: unknown data type %s", ErrInvalidConfig, category)
		}
	}
	if c.Trials < 1 {
		return fmt.Errorf("%w: trials must be at least 1, got %d", ErrInvalidConfig, c.Trials)
	}
	if c.DisorderPercent < 0 || c.DisorderPercent > 100 {
		return fmt.Errorf("%w: disorder percent %d outside 0..100", ErrInvalidConfig, c.DisorderPercent)
	}
	for _, rule := range c.SkipRules {
		if rule.Algorithm == "" {
			return fmt.Errorf("%w: skip rule without algorithm", ErrInvalidConfig)
		}
		if rule.AboveSize < 0 {
			return fmt.Errorf("%w: skip rule for %s has negative threshold", ErrInvalidConfig, rule.Algorithm)
		}
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: negative parallelism %d", ErrInvalidConfig, c.Parallelism)
	}
	return nil
}

// ShouldSkip reports whether the named algorithm is not run at size.
func (c Config) ShouldSkip(algorithm string, size int) bool {
	for _, rule := range c.SkipRules {
		if rule.Algorithm == algorithm && size > rule.AboveSize {
			return true
		}
	}
	return false
}

func (c Config) parallelism() int {
	if c.Parallelism < 1 {
		return 1
	}
	return c.Parallelism
}

func (c Config) clone() Config {
	out := c
	out.Sizes = slices.Clone(c.Sizes)
	out.Categories = slices.Clone(c.Categories)
	out.SkipRules = slices.Clone(c.SkipRules)
	if c.Seed != nil {
		seed := *c.Seed
		out.Seed = &seed
	}
	return out
}
