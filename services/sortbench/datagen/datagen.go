// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datagen produces the integer datasets the benchmark sorts.
//
// There are three distributions:
//   - Random: values drawn uniformly from [0, 2*size]
//   - NearlySorted: the identity permutation disturbed by random transpositions
//   - ReverseSorted: [size-1, ..., 0], no randomness
//
// The package-level functions use a fresh random source on every call, so two
// calls with the same size give different data. A Generator built with
// NewGenerator(seed) draws from one seeded source instead, which makes a whole
// run reproducible.
//
// A size of zero or less always yields an empty, non-nil slice.
package datagen

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Category identifies an input distribution.
type Category int

const (
	// Random is uniformly random data.
	Random Category = iota
	// NearlySorted is sorted data with a bounded number of random transpositions.
	NearlySorted
	// ReverseSorted is strictly descending data.
	ReverseSorted
)

// Categories returns all categories in report order.
func Categories() []Category {
	return []Category{Random, NearlySorted, ReverseSorted}
}

// String returns the name used in reports.
func (c Category) String() string {
	switch c {
	case Random:
		return "Random"
	case NearlySorted:
		return "Nearly Sorted"
	case ReverseSorted:
		return "Reverse Sorted"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory accepts the report name or a compact form such as
// "nearly_sorted", "nearly-sorted" or "reverse".
func ParseCategory(s string) (Category, error) {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "random":
		return Random, nil
	case "nearlysorted", "nearly":
		return NearlySorted, nil
	case "reversesorted", "reverse":
		return ReverseSorted, nil
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// RandomData returns size integers drawn independently from [0, 2*size].
func RandomData(size int) []int {
	return randomFrom(freshSource(), size)
}

// NearlySortedData starts from [0, 1, ..., size-1] and applies
// size*disorderPercent/100 transpositions of two uniformly chosen positions.
// A transposition may pick the same position twice or undo an earlier one.
func NearlySortedData(size, disorderPercent int) []int {
	return nearlySortedFrom(freshSource(), size, disorderPercent)
}

// ReverseSortedData returns [size-1, size-2, ..., 0].
func ReverseSortedData(size int) []int {
	if size <= 0 {
		return []int{}
	}
	data := make([]int, size)
	for i := range data {
		data[i] = size - 1 - i
	}
	return data
}

// Generator draws datasets from a single random source.
//
// Thread Safety: Not safe for concurrent use; give each goroutine its own
// Generator.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator seeded with seed. The same seed yields the
// same sequence of datasets.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate produces a dataset of the given category.
// A nil Generator behaves like the package-level functions.
func (g *Generator) Generate(c Category, size, disorderPercent int) []int {
	var rng *rand.Rand
	if g == nil || g.rng == nil {
		rng = freshSource()
	} else {
		rng = g.rng
	}

	switch c {
	case NearlySorted:
		return nearlySortedFrom(rng, size, disorderPercent)
	case ReverseSorted:
		return ReverseSortedData(size)
	default:
		return randomFrom(rng, size)
	}
}

// Generate produces a dataset of the given category using a fresh source.
func Generate(c Category, size, disorderPercent int) []int {
	var g *Generator
	return g.Generate(c, size, disorderPercent)
}

func freshSource() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func randomFrom(rng *rand.Rand, size int) []int {
	if size <= 0 {
		return []int{}
	}
	data := make([]int, size)
	upper := 2*size + 1
	for i := range data {
		data[i] = rng.IntN(upper)
	}
	return data
}

func nearlySortedFrom(rng *rand.Rand, size, disorderPercent int) []int {
	if size <= 0 {
		return []int{}
	}
	data := make([]int, size)
	for i := range data {
		data[i] = i
	}

	swaps := size * disorderPercent / 100
	for i := 0; i < swaps; i++ {
		a := rng.IntN(size)
		b := rng.IntN(size)
		data[a], data[b] = data[b], data[a]
	}
	return data
}
