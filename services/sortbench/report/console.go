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
	"fmt"
	"io"
	"sync"

	"github.com/AleutianAI/sortbench/pkg/ux"
	"github.com/AleutianAI/sortbench/services/sortbench/datagen"
	"github.com/AleutianAI/sortbench/services/sortbench/driver"
)

// ConsoleSink prints human-readable progress as rows arrive:
//
//	--- Testing with size 1000 ---
//
//	Data type: Random
//	Bubble Sort: Time = 1.234 ms, Comparisons = 499500, Swaps = 251312
//	...
//	Bubble Sort: N/A (too slow for this size)
//
// Thread Safety: Safe for concurrent use.
type ConsoleSink struct {
	p *ux.Printer

	mu       sync.Mutex
	size     int
	category datagen.Category
	started  bool
}

// NewConsoleSink prints to w, styled when w is a terminal.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return NewConsoleSinkWithPrinter(ux.NewPrinter(w))
}

// NewConsoleSinkWithPrinter prints through p.
func NewConsoleSinkWithPrinter(p *ux.Printer) *ConsoleSink {
	return &ConsoleSink{p: p}
}

// Write prints headings for a new size or data type, then the row.
func (c *ConsoleSink) Write(_ context.Context, row driver.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || row.Size != c.size {
		c.p.Println("")
		c.p.Title(fmt.Sprintf("--- Testing with size %d ---", row.Size))
		c.size = row.Size
		c.started = false
	}
	if !c.started || row.DataType != c.category {
		c.p.Println("")
		c.p.Subtitle("Data type: " + row.DataType.String())
		c.category = row.DataType
		c.started = true
	}

	if row.Skipped {
		c.p.Muted(fmt.Sprintf("%s: %s (too slow for this size)", row.Algorithm, NotAvailable))
		return nil
	}
	c.p.Println(fmt.Sprintf("%s: Time = %s ms, Comparisons = %s, Swaps = %s",
		row.Algorithm,
		FormatTime(row.Average.TimeMS),
		FormatCount(row.Average.Comparisons),
		FormatCount(row.Average.Swaps),
	))
	return nil
}

// Close is a no-op; the console is not owned by the sink.
func (c *ConsoleSink) Close() error { return nil }
