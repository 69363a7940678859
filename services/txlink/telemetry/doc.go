// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry tracing and metrics for txlink.
//
// # Initialization
//
// Call Init once at startup and shut the providers down on exit:
//
//	providers, err := telemetry.Init(ctx, telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer providers.Shutdown(context.Background())
//
// Until Init runs, otel.Tracer and otel.Meter return no-op providers, so
// library packages can instrument unconditionally.
//
// # Exporters
//
// Traces go to an OTLP gRPC collector or stdout. Metrics go to a
// Prometheus registry (served by Providers.MetricsHandler together with the
// default registry) or stdout.
// "none" disables either side.
//
// # Logging
//
// LoggerWithTrace attaches trace_id and span_id to a slog.Logger so log
// lines can be joined with spans.
package telemetry
