// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconSkipped, IconArrow} {
		if !strings.Contains(icon.Render(), string(icon)) {
			t.Errorf("Render() of %q lost the glyph", icon)
		}
	}
}

// =============================================================================
// Printer Tests
// =============================================================================

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if !p.Plain() {
		t.Error("printer over a bytes.Buffer should be plain")
	}
	if IsTerminal(&buf) {
		t.Error("bytes.Buffer is not a terminal")
	}
}

func TestPrinter_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Title("--- Testing with size 1000 ---")
	p.Success("done")
	p.Warning("careful")
	p.Error("broken")
	p.Muted("quiet")
	p.Box("Report", "sorting_results.csv")

	want := strings.Join([]string{
		"--- Testing with size 1000 ---",
		"✓ done",
		"⚠ careful",
		"✗ broken",
		"quiet",
		"Report: sorting_results.csv",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("plain output contains escape sequences")
	}
}

func TestPrinter_Table(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Table([]string{"ID", "Cells"}, [][]string{
		{"abc", "75"},
		{"a-much-longer-id", "3"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), buf.String())
	}
	if lines[0] != "ID                Cells" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "abc               75" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "a-much-longer-id  3" {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestPrinter_TableShortRow(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Table([]string{"A", "B"}, [][]string{{"x"}})
	if !strings.HasSuffix(buf.String(), "x\n") {
		t.Errorf("short row not trimmed: %q", buf.String())
	}
}
