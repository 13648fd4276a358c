// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package insert

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for insert operations.
var (
	tracer = otel.Tracer("aleutian.insert")
	meter  = otel.Meter("aleutian.insert")
)

// Metrics for insertions.
var (
	insertsTotal  metric.Int64Counter
	insertLatency metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		insertsTotal, err = meter.Int64Counter(
			"insert_total",
			metric.WithDescription("Total number of sequence insertions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		insertLatency, err = meter.Float64Histogram(
			"insert_duration_seconds",
			metric.WithDescription("Duration of sequence insertions"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordInsert records one finished insertion. existing marks
// idempotent hits that required no restructuring.
func recordInsert(ctx context.Context, duration time.Duration, existing bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("existing", existing))
	insertsTotal.Add(ctx, 1, attrs)
	insertLatency.Record(ctx, duration.Seconds(), attrs)
}

// startInsertSpan creates a span for an insert operation.
func startInsertSpan(ctx context.Context, operation string) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, "Inserter."+operation,
		oteltrace.WithAttributes(
			attribute.String("insert.operation", operation),
		),
	)
}
