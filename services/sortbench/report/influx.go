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
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AleutianAI/sortbench/services/sortbench/driver"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// InfluxMeasurement is the measurement every benchmark point is written to.
const InfluxMeasurement = "sort_benchmarks"

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Enabled reports whether an InfluxDB target is configured.
func (c InfluxConfig) Enabled() bool { return c.URL != "" }

// pointWriter is the subset of api.WriteAPIBlocking the sink uses.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes one point per measured row. Skipped rows carry no
// figures and are not written.
//
// Tags: algorithm, data_type, size, run_id. Fields: time_ms, comparisons,
// swaps, trials.
type InfluxSink struct {
	writer pointWriter
	close  func()
	now    func() time.Time
}

// OpenInflux connects to InfluxDB and checks it is reachable.
//
// Outputs:
//   - *InfluxSink: Owns the client; Close releases it.
//   - error: Wraps ErrSinkOpen when the config is incomplete or the server
//     does not answer a ping.
func OpenInflux(ctx context.Context, cfg InfluxConfig) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: influxdb url, org and bucket are required", ErrSinkOpen)
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	ok, err := client.Ping(ctx)
	if err == nil && !ok {
		err = errors.New("ping failed")
	}
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: influxdb %s: %w", ErrSinkOpen, cfg.URL, err)
	}

	return &InfluxSink{
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		close:  client.Close,
		now:    time.Now,
	}, nil
}

// Point builds the InfluxDB point for row.
func Point(row driver.Row, ts time.Time) *write.Point {
	return influxdb2.NewPointWithMeasurement(InfluxMeasurement).
		AddTag("algorithm", row.Algorithm).
		AddTag("data_type", row.DataType.String()).
		AddTag("size", strconv.Itoa(row.Size)).
		AddTag("run_id", row.RunID).
		AddField("time_ms", row.Average.TimeMS).
		AddField("comparisons", row.Average.Comparisons).
		AddField("swaps", row.Average.Swaps).
		AddField("trials", row.Trials).
		SetTime(ts)
}

// Write stores row unless it was skipped.
func (s *InfluxSink) Write(ctx context.Context, row driver.Row) error {
	if row.Skipped {
		return nil
	}
	if err := s.writer.WritePoint(ctx, Point(row, s.now())); err != nil {
		return fmt.Errorf("influxdb write %s/%d: %w", row.Algorithm, row.Size, err)
	}
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	if s.close != nil {
		s.close()
		s.close = nil
	}
	return nil
}
