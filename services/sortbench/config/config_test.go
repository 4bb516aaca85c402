// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/sortbench/pkg/logging"
	"github.com/AleutianAI/sortbench/services/sortbench/algorithms"
	"github.com/AleutianAI/sortbench/services/sortbench/datagen"
	"github.com/AleutianAI/sortbench/services/sortbench/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SORTBENCH_SIZES", "SORTBENCH_DATA_TYPES", "SORTBENCH_TRIALS", "SORTBENCH_DISORDER",
		"SORTBENCH_PARALLELISM", "SORTBENCH_SEED", "SORTBENCH_OUTPUT", "SORTBENCH_HISTORY",
		"SORTBENCH_HISTORY_PATH", "SORTBENCH_LOG_LEVEL", "SORTBENCH_LOG_DIR", "SORTBENCH_PORT",
		"INFLUXDB_URL", "INFLUXDB_TOKEN", "INFLUXDB_ORG", "INFLUXDB_BUCKET",
		"OTEL_TRACES_EXPORTER", "OTEL_METRICS_EXPORTER",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sortbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_MatchesDriverDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	require.NoError(t, cfg.Validate())

	dc, err := cfg.DriverConfig()
	require.NoError(t, err)

	want := driver.DefaultConfig()
	assert.Equal(t, want.Sizes, dc.Sizes)
	assert.Equal(t, want.Categories, dc.Categories)
	assert.Equal(t, want.Trials, dc.Trials)
	assert.Equal(t, want.DisorderPercent, dc.DisorderPercent)
	assert.Equal(t, want.SkipRules, dc.SkipRules)
	assert.Nil(t, dc.Seed)

	assert.Equal(t, "sorting_results.csv", cfg.Output.CSVPath)
	assert.True(t, cfg.History.Enabled)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Benchmark, cfg.Benchmark)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
benchmark:
  sizes: [100, 200]
  data_types: [random, reverse]
  trials: 3
  seed: 42
  skip_rules:
    - algorithm: Bubble Sort
      above_size: 150
output:
  csv_path: out/results.csv
  console: false
history:
  enabled: false
influxdb:
  url: http://localhost:8086
  org: bench
  bucket: sorts
telemetry:
  trace_exporter: stdout
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 200}, cfg.Benchmark.Sizes)
	assert.Equal(t, 3, cfg.Benchmark.Trials)
	assert.False(t, cfg.Output.Console)
	assert.False(t, cfg.History.Enabled)
	assert.True(t, cfg.InfluxDB.Enabled())
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)

	dc, err := cfg.DriverConfig()
	require.NoError(t, err)
	assert.Equal(t, []datagen.Category{datagen.Random, datagen.ReverseSorted}, dc.Categories)
	require.NotNil(t, dc.Seed)
	assert.Equal(t, uint64(42), *dc.Seed)
	assert.True(t, dc.ShouldSkip(algorithms.BubbleSort, 200))
	assert.False(t, dc.ShouldSkip(algorithms.SelectionSort, 200), "file rules replace the defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "benchmark:\n  trials: 3\n")
	t.Setenv("SORTBENCH_TRIALS", "7")
	t.Setenv("SORTBENCH_SIZES", "10, 20,30")
	t.Setenv("SORTBENCH_SEED", "9")
	t.Setenv("SORTBENCH_HISTORY", "false")
	t.Setenv("SORTBENCH_OUTPUT", "env.csv")
	t.Setenv("INFLUXDB_URL", "http://influx:8086")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Benchmark.Trials)
	assert.Equal(t, []int{10, 20, 30}, cfg.Benchmark.Sizes)
	assert.Equal(t, uint64(9), *cfg.Benchmark.Seed)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "env.csv", cfg.Output.CSVPath)
	assert.Equal(t, "http://influx:8086", cfg.InfluxDB.URL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "missing file", file: "-"},
		{name: "unknown key", file: "benchmark:\n  trails: 3\n"},
		{name: "malformed yaml", file: "benchmark: [\n"},
		{name: "zero trials", file: "benchmark:\n  trials: 0\n"},
		{name: "unknown data type", file: "benchmark:\n  data_types: [sideways]\n"},
		{name: "unknown skip algorithm", file: "benchmark:\n  skip_rules:\n    - algorithm: Bogo Sort\n      above_size: 1\n"},
		{name: "disorder above 100", file: "benchmark:\n  disorder_percent: 150\n"},
		{name: "bad exporter", file: "telemetry:\n  trace_exporter: zipkin\n"},
		{name: "bad influx url", file: "influxdb:\n  url: not a url\n"},
		{name: "bad log level", file: "log:\n  level: loud\n"},
		{name: "history without path", file: "history:\n  enabled: true\n  path: \"\"\n"},
		{name: "bad env size", env: map[string]string{"SORTBENCH_SIZES": "10,abc"}},
		{name: "negative env size", env: map[string]string{"SORTBENCH_SIZES": "-5"}},
		{name: "bad env seed", env: map[string]string{"SORTBENCH_SEED": "-1"}},
		{name: "bad env trials", env: map[string]string{"SORTBENCH_TRIALS": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			switch tt.file {
			case "":
			case "-":
				path = filepath.Join(t.TempDir(), "absent.yaml")
			default:
				path = writeFile(t, tt.file)
			}

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse(nil, &cfg))
	assert.Equal(t, Default().Benchmark.Sizes, cfg.Benchmark.Sizes)
}

func TestParseSizes(t *testing.T) {
	sizes, err := ParseSizes(" 1000 ,5000,,10000 ")
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 5000, 10000}, sizes)

	_, err = ParseSizes(" , ")
	assert.Error(t, err)
}

func TestLoggingConfig(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Log.Level = "warning"
	cfg.Log.JSON = true

	lc, err := cfg.LoggingConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.True(t, lc.JSON)
	assert.Equal(t, "sortbench", lc.Service)
}
