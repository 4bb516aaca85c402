// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads sortbench settings.
//
// # Priority
//
//	environment  >  YAML file  >  compiled-in defaults
//
// Command-line flags are applied by the CLI on top of the loaded Config and
// re-validated there.
//
// # Environment
//
//	SORTBENCH_SIZES          comma-separated sizes, e.g. "1000,5000"
//	SORTBENCH_DATA_TYPES     comma-separated data types
//	SORTBENCH_TRIALS         trials per cell
//	SORTBENCH_DISORDER       nearly-sorted disorder percent
//	SORTBENCH_PARALLELISM    concurrent cells
//	SORTBENCH_SEED           dataset seed
//	SORTBENCH_OUTPUT         CSV report path
//	SORTBENCH_HISTORY        "false" disables run history
//	SORTBENCH_HISTORY_PATH   history database directory
//	SORTBENCH_LOG_LEVEL      debug, info, warn, error
//	SORTBENCH_LOG_DIR        directory for JSON log files
//	SORTBENCH_PORT           serve port
//	INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG, INFLUXDB_BUCKET
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AleutianAI/sortbench/pkg/logging"
	"github.com/AleutianAI/sortbench/services/sortbench/algorithms"
	"github.com/AleutianAI/sortbench/services/sortbench/datagen"
	"github.com/AleutianAI/sortbench/services/sortbench/driver"
	"github.com/AleutianAI/sortbench/services/sortbench/report"
	"github.com/AleutianAI/sortbench/services/sortbench/telemetry"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every load and validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// =============================================================================
// Types
// =============================================================================

// Config is the complete sortbench configuration.
type Config struct {
	Benchmark BenchmarkConfig     `yaml:"benchmark"`
	Output    OutputConfig        `yaml:"output"`
	History   HistoryConfig       `yaml:"history"`
	InfluxDB  report.InfluxConfig `yaml:"influxdb"`
	Telemetry telemetry.Config    `yaml:"telemetry"`
	Log       LogConfig           `yaml:"log"`
	Server    ServerConfig        `yaml:"server"`
}

// BenchmarkConfig describes what a run measures.
type BenchmarkConfig struct {
	Sizes           []int            `yaml:"sizes" validate:"required,min=1,dive,gte=0"`
	DataTypes       []string         `yaml:"data_types" validate:"required,min=1,dive,datatype"`
	Trials          int              `yaml:"trials" validate:"gte=1"`
	DisorderPercent int              `yaml:"disorder_percent" validate:"gte=0,lte=100"`
	SkipRules       []SkipRuleConfig `yaml:"skip_rules" validate:"dive"`
	Parallelism     int              `yaml:"parallelism" validate:"gte=0"`
	Seed            *uint64          `yaml:"seed"`
}

// SkipRuleConfig is a skip rule as written in the config file.
type SkipRuleConfig struct {
	Algorithm string `yaml:"algorithm" validate:"required,algorithm"`
	AboveSize int    `yaml:"above_size" validate:"gte=0"`
}

// OutputConfig controls the report sinks.
type OutputConfig struct {
	CSVPath string `yaml:"csv_path" validate:"required"`
	Console bool   `yaml:"console"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig controls the serve command.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`
}

// =============================================================================
// Validation
// =============================================================================

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("algorithm", validateAlgorithm)
	_ = validate.RegisterValidation("datatype", validateDataType)
}

// validateAlgorithm accepts names registered in the default algorithm registry.
func validateAlgorithm(fl validator.FieldLevel) bool {
	_, ok := algorithms.Default().Get(fl.Field().String())
	return ok
}

func validateDataType(fl validator.FieldLevel) bool {
	_, err := datagen.ParseCategory(fl.Field().String())
	return err == nil
}

// Validate checks every field, wrapping failures in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultHistoryPath is ~/.sortbench/history, or a relative path when the
// home directory is unknown.
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".sortbench", "history")
	}
	return filepath.Join(home, ".sortbench", "history")
}

// Default returns the standard run: five sizes, three data types, five
// trials, report in sorting_results.csv. Logging defaults to warn because the
// console sink already reports progress.
func Default() Config {
	d := driver.DefaultConfig()

	dataTypes := make([]string, len(d.Categories))
	for i, c := range d.Categories {
		dataTypes[i] = c.String()
	}
	rules := make([]SkipRuleConfig, len(d.SkipRules))
	for i, r := range d.SkipRules {
		rules[i] = SkipRuleConfig{Algorithm: r.Algorithm, AboveSize: r.AboveSize}
	}

	return Config{
		Benchmark: BenchmarkConfig{
			Sizes:           d.Sizes,
			DataTypes:       dataTypes,
			Trials:          d.Trials,
			DisorderPercent: d.DisorderPercent,
			SkipRules:       rules,
			Parallelism:     d.Parallelism,
		},
		Output:    OutputConfig{CSVPath: report.DefaultCSVPath, Console: true},
		History:   HistoryConfig{Enabled: true, Path: DefaultHistoryPath()},
		Telemetry: telemetry.DefaultConfig(),
		Log:       LogConfig{Level: "warn"},
		Server:    ServerConfig{Port: 12240},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
//
// Outputs:
//
//	Config - The loaded configuration. Defaults-based even on error.
//	error - Wraps ErrInvalidConfig on any failure, including a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: environment: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Parse(data, cfg)
}

// Parse decodes YAML onto cfg. Unknown keys are rejected; an empty document
// leaves cfg unchanged.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = i
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("SORTBENCH_SIZES"); v != "" {
		sizes, err := ParseSizes(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SORTBENCH_SIZES: %w", err))
		} else {
			cfg.Benchmark.Sizes = sizes
		}
	}
	if v := os.Getenv("SORTBENCH_DATA_TYPES"); v != "" {
		cfg.Benchmark.DataTypes = splitList(v)
	}
	setInt("SORTBENCH_TRIALS", &cfg.Benchmark.Trials)
	setInt("SORTBENCH_DISORDER", &cfg.Benchmark.DisorderPercent)
	setInt("SORTBENCH_PARALLELISM", &cfg.Benchmark.Parallelism)
	if v := os.Getenv("SORTBENCH_SEED"); v != "" {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SORTBENCH_SEED: %w", err))
		} else {
			cfg.Benchmark.Seed = &seed
		}
	}

	setString("SORTBENCH_OUTPUT", &cfg.Output.CSVPath)
	if v := os.Getenv("SORTBENCH_HISTORY"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SORTBENCH_HISTORY: %w", err))
		} else {
			cfg.History.Enabled = enabled
		}
	}
	setString("SORTBENCH_HISTORY_PATH", &cfg.History.Path)

	setString("SORTBENCH_LOG_LEVEL", &cfg.Log.Level)
	setString("SORTBENCH_LOG_DIR", &cfg.Log.Dir)
	setInt("SORTBENCH_PORT", &cfg.Server.Port)

	setString("INFLUXDB_URL", &cfg.InfluxDB.URL)
	setString("INFLUXDB_TOKEN", &cfg.InfluxDB.Token)
	setString("INFLUXDB_ORG", &cfg.InfluxDB.Org)
	setString("INFLUXDB_BUCKET", &cfg.InfluxDB.Bucket)

	return errors.Join(errs...)
}

// ParseSizes parses a comma-separated list of non-negative sizes.
func ParseSizes(s string) ([]int, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, errors.New("no sizes")
	}
	sizes := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", p, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("size %d is negative", n)
		}
		sizes[i] = n
	}
	return sizes, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// Conversions
// =============================================================================

// DriverConfig returns the driver configuration for c. c must be valid.
func (c *Config) DriverConfig() (driver.Config, error) {
	categories := make([]datagen.Category, len(c.Benchmark.DataTypes))
	for i, name := range c.Benchmark.DataTypes {
		cat, err := datagen.ParseCategory(name)
		if err != nil {
			return driver.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		categories[i] = cat
	}
	rules := make([]driver.SkipRule, len(c.Benchmark.SkipRules))
	for i, r := range c.Benchmark.SkipRules {
		rules[i] = driver.SkipRule{Algorithm: r.Algorithm, AboveSize: r.AboveSize}
	}

	dc := driver.Config{
		Sizes:           append([]int(nil), c.Benchmark.Sizes...),
		Categories:      categories,
		Trials:          c.Benchmark.Trials,
		DisorderPercent: c.Benchmark.DisorderPercent,
		SkipRules:       rules,
		Parallelism:     c.Benchmark.Parallelism,
		Seed:            c.Benchmark.Seed,
	}
	if err := dc.Validate(); err != nil {
		return driver.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return dc, nil
}

// LoggingConfig returns the logger configuration for c.
func (c *Config) LoggingConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return logging.Config{
		Level:   level,
		LogDir:  c.Log.Dir,
		Service: "sortbench",
		JSON:    c.Log.JSON,
	}, nil
}
