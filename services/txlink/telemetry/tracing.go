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
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used by StartSpan.
const TracerName = "github.com/AleutianAI/txlink"

// Span attribute keys shared by the service and the computer.
const (
	AttrValues     = attribute.Key("txlink.values")
	AttrInputLen   = attribute.Key("txlink.input_len")
	AttrStrategy   = attribute.Key("txlink.strategy")
	AttrCached     = attribute.Key("txlink.cached")
	AttrCandidates = attribute.Key("txlink.candidates")
)

// StartSpan starts spanName on the global tracer under TracerName.
//
//	ctx, span := telemetry.StartSpan(ctx, "Service.Compute", telemetry.AttrValues.Int(len(values)))
//	defer func() { telemetry.FinishSpan(span, err) }()
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// FinishSpan sets the span status from err and ends it. A failed span also
// gets an exception event. A nil span is ignored.
func FinishSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// SpanIDs returns the hex trace and span IDs carried by ctx. ok is false
// when ctx has no valid span.
func SpanIDs(ctx context.Context) (traceID, spanID string, ok bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}

// LoggerWithTrace adds trace_id and span_id to logger when ctx carries a
// span, so log lines join up with traces. A nil logger means slog.Default().
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	traceID, spanID, ok := SpanIDs(ctx)
	if !ok {
		return logger
	}
	return logger.With(slog.String("trace_id", traceID), slog.String("span_id", spanID))
}
