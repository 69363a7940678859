// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// durationBuckets spans cache hits (sub-millisecond) to the largest
// partition walks the request timeout allows.
var durationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}

// Metrics are the HTTP instruments of the service.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
	errors   metric.Int64Counter
}

// NewMetrics creates the instruments on meter:
//
//	txlink_http_requests_total{method,route,status}
//	txlink_http_request_duration_seconds{method,route,status}
//	txlink_http_in_flight_requests
//	txlink_errors_total{code}
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m    Metrics
		errs [4]error
	)
	m.requests, errs[0] = meter.Int64Counter("txlink_http_requests_total",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"))
	m.duration, errs[1] = meter.Float64Histogram("txlink_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	m.inFlight, errs[2] = meter.Int64UpDownCounter("txlink_http_in_flight_requests",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}"))
	m.errors, errs[3] = meter.Int64Counter("txlink_errors_total",
		metric.WithDescription("Error responses by error code"),
		metric.WithUnit("{error}"))

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// GinMiddleware records every request on metrics. Routes are labelled by
// their pattern (c.FullPath) so path parameters stay out of the label set;
// requests that matched no route are labelled "unmatched".
func GinMiddleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		metrics.inFlight.Add(ctx, 1)
		start := time.Now()

		c.Next()

		elapsed := time.Since(start).Seconds()
		metrics.inFlight.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		set := metric.WithAttributeSet(attribute.NewSet(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(c.Writer.Status())),
		))
		metrics.requests.Add(ctx, 1, set)
		metrics.duration.Record(ctx, elapsed, set)
	}
}

// RecordErrorCode counts one error response. A nil receiver is a no-op so
// handlers can be built without metrics.
func (m *Metrics) RecordErrorCode(c *gin.Context, code string) {
	if m == nil {
		return
	}
	m.errors.Add(c.Request.Context(), 1, metric.WithAttributes(attribute.String("code", code)))
}
