// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/sortbench/services/sortbench/config"
	"github.com/AleutianAI/sortbench/services/sortbench/history"
	"github.com/AleutianAI/sortbench/services/sortbench/report"
	sbbadger "github.com/AleutianAI/sortbench/services/sortbench/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv clears every variable the config loader reads and points the
// default history path into a temp directory.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"SORTBENCH_SIZES", "SORTBENCH_DATA_TYPES", "SORTBENCH_TRIALS",
		"SORTBENCH_DISORDER", "SORTBENCH_PARALLELISM", "SORTBENCH_SEED",
		"SORTBENCH_OUTPUT", "SORTBENCH_HISTORY", "SORTBENCH_LOG_LEVEL",
		"SORTBENCH_LOG_DIR", "SORTBENCH_PORT", "SORTBENCH_ENV",
		"INFLUXDB_URL", "INFLUXDB_TOKEN", "INFLUXDB_ORG", "INFLUXDB_BUCKET",
		"OTEL_TRACES_EXPORTER", "OTEL_METRICS_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
	historyDir := filepath.Join(t.TempDir(), "history")
	t.Setenv("SORTBENCH_HISTORY_PATH", historyDir)
	return historyDir
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestAlgorithmsCommand(t *testing.T) {
	isolateEnv(t)

	out, _, err := execute(t, "algorithms")

	require.NoError(t, err)
	assert.Equal(t, "1. Bubble Sort\n2. Insertion Sort\n3. Selection Sort\n4. Merge Sort\n5. Quick Sort\n", out)
}

func TestRunCommand_WritesCSV(t *testing.T) {
	isolateEnv(t)
	output := filepath.Join(t.TempDir(), "out", "results.csv")

	out, _, err := execute(t, "run", "--sizes", "10,20", "-t", "1", "--seed", "3", "--no-history", "-o", output)
	require.NoError(t, err)

	records := readCSV(t, output)
	require.Len(t, records, 1+2*3*5)
	assert.Equal(t, report.Header, records[0])
	assert.Equal(t, []string{"Bubble Sort", "Random", "10"}, records[1][:3])
	assert.Equal(t, "Quick Sort", records[len(records)-1][0])
	assert.Equal(t, "20", records[len(records)-1][2])
	for _, rec := range records[1:] {
		assert.NotEqual(t, report.NotAvailable, rec[3], "small sizes are never skipped")
	}

	assert.Contains(t, out, "--- Testing with size 10 ---")
	assert.Contains(t, out, "--- Testing with size 20 ---")
	assert.Contains(t, out, "Data type: Random")
	assert.Contains(t, out, "Tests complete. Results saved to "+output)
	assert.NotContains(t, out, "stored in history")
}

func TestRunCommand_QuietOmitsProgress(t *testing.T) {
	isolateEnv(t)
	output := filepath.Join(t.TempDir(), "results.csv")

	out, _, err := execute(t, "run", "--sizes", "5", "--data-types", "Random", "-t", "1", "--no-history", "-q", "-o", output)
	require.NoError(t, err)

	assert.NotContains(t, out, "Testing with size")
	assert.Contains(t, out, "Tests complete")
	assert.Len(t, readCSV(t, output), 1+5)
}

func TestRunCommand_SkipRulesProduceNA(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "results.csv")
	cfgPath := filepath.Join(dir, "sortbench.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
benchmark:
  skip_rules:
    - algorithm: Bubble Sort
      above_size: 10
output:
  console: false
history:
  enabled: false
`), 0o644))

	_, _, err := execute(t, "run", "-c", cfgPath, "--sizes", "5,20", "--data-types", "Reverse Sorted", "-t", "1", "-o", output)
	require.NoError(t, err)

	records := readCSV(t, output)
	require.Len(t, records, 1+2*5)
	assert.Equal(t, []string{"Bubble Sort", "Reverse Sorted", "5"}, records[1][:3])
	assert.NotEqual(t, report.NotAvailable, records[1][3])
	assert.Equal(t, []string{"Bubble Sort", "Reverse Sorted", "20", "N/A", "N/A", "N/A"}, records[6])
}

func TestRunCommand_StoresHistory(t *testing.T) {
	historyDir := isolateEnv(t)
	output := filepath.Join(t.TempDir(), "results.csv")

	out, _, err := execute(t, "run", "--sizes", "8", "--data-types", "Random", "-t", "2", "--seed", "11", "-q", "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "stored in history (5 cells, 0 skipped)")

	store, err := history.Open(sbbadger.DefaultConfig(historyDir))
	require.NoError(t, err)
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)
	id := runs[0].ID

	t.Run("list", func(t *testing.T) {
		out, _, err := execute(t, "history", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "ID")
		assert.Contains(t, out, id)
	})

	t.Run("show", func(t *testing.T) {
		out, _, err := execute(t, "history", "show", id)
		require.NoError(t, err)
		assert.Contains(t, out, "Run "+id)
		assert.Contains(t, out, "Merge Sort")
		assert.Contains(t, out, "Comparisons")
	})

	t.Run("export matches the report", func(t *testing.T) {
		exported := filepath.Join(t.TempDir(), "export.csv")
		out, _, err := execute(t, "history", "export", id, "-o", exported)
		require.NoError(t, err)
		assert.Contains(t, out, "Exported run "+id)

		want := readCSV(t, output)
		got := readCSV(t, exported)
		require.Len(t, got, len(want))
		for i := range want {
			// Time_ms is rounded identically; the counters are the same averages.
			assert.Equal(t, want[i], got[i])
		}
	})

	t.Run("export to stdout", func(t *testing.T) {
		out, _, err := execute(t, "history", "export", id)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "Algorithm,DataType,Size,Time_ms,Comparisons,Swaps\n"))
	})

	t.Run("unknown run", func(t *testing.T) {
		_, _, err := execute(t, "history", "show", "no-such-run")
		assert.ErrorIs(t, err, history.ErrRunNotFound)
	})
}

func TestHistoryList_Empty(t *testing.T) {
	isolateEnv(t)

	out, _, err := execute(t, "history", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No stored runs.")
}

func TestRunCommand_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad sizes", []string{"run", "--sizes", "ten"}},
		{"negative size", []string{"run", "--sizes=-5"}},
		{"zero trials", []string{"run", "--trials", "0"}},
		{"unknown data type", []string{"run", "--data-types", "Shuffled"}},
		{"bad log level", []string{"run", "--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			output := filepath.Join(t.TempDir(), "results.csv")

			_, _, err := execute(t, append(tt.args, "--no-history", "-o", output)...)

			assert.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.NoFileExists(t, output, "no report is written for an invalid run")
		})
	}
}

func TestRunCommand_MissingConfigFile(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "run", "-c", filepath.Join(t.TempDir(), "missing.yaml"))

	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunCommand_UnwritableOutput(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	_, _, err := execute(t, "run", "--sizes", "5", "-t", "1", "--no-history", "-o", dir)

	assert.ErrorIs(t, err, report.ErrSinkOpen)
}

func TestRunCommand_EnvironmentOverrides(t *testing.T) {
	isolateEnv(t)
	output := filepath.Join(t.TempDir(), "env.csv")
	t.Setenv("SORTBENCH_SIZES", "4")
	t.Setenv("SORTBENCH_DATA_TYPES", "Random")
	t.Setenv("SORTBENCH_TRIALS", "1")
	t.Setenv("SORTBENCH_OUTPUT", output)
	t.Setenv("SORTBENCH_HISTORY", "false")

	_, _, err := execute(t, "run", "-q")
	require.NoError(t, err)

	records := readCSV(t, output)
	require.Len(t, records, 1+5)
	assert.Equal(t, "4", records[1][2])
}
