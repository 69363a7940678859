// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package candidate

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for candidate computations.
var (
	tracer = otel.Tracer("txlink.candidate")
	meter  = otel.Meter("txlink.candidate")
)

// Metrics for candidate computations.
var (
	computeLatency  metric.Float64Histogram
	computeTotal    metric.Int64Counter
	visitedCount    metric.Int64Histogram
	candidatesFound metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		computeLatency, err = meter.Float64Histogram(
			"txlink_compute_duration_seconds",
			metric.WithDescription("Duration of candidate computations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		computeTotal, err = meter.Int64Counter(
			"txlink_compute_total",
			metric.WithDescription("Total number of candidate computations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		visitedCount, err = meter.Int64Histogram(
			"txlink_compute_visited",
			metric.WithDescription("Partitions or subsets enumerated per computation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		candidatesFound, err = meter.Int64Histogram(
			"txlink_candidates_found",
			metric.WithDescription("Candidates found per computation"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordComputeMetrics records one computation. out may be nil on failure.
func recordComputeMetrics(ctx context.Context, strategy Strategy, duration time.Duration, out *Output, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("strategy", string(strategy)),
		attribute.Bool("success", success),
	)
	computeLatency.Record(ctx, duration.Seconds(), attrs)
	computeTotal.Add(ctx, 1, attrs)

	if out != nil {
		visitedCount.Record(ctx, int64(out.Visited))
		candidatesFound.Record(ctx, int64(out.Candidates.Len()))
	}
}
