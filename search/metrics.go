// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for search operations.
var (
	tracer = otel.Tracer("aleutian.search")
	meter  = otel.Meter("aleutian.search")
)

// Metrics for ancestor searches.
var (
	searchesTotal  metric.Int64Counter
	searchLatency  metric.Float64Histogram
	frontierSteps  metric.Int64Histogram
	frontierDedupe metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		searchesTotal, err = meter.Int64Counter(
			"search_total",
			metric.WithDescription("Total number of ancestor searches"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchLatency, err = meter.Float64Histogram(
			"search_duration_seconds",
			metric.WithDescription("Duration of ancestor searches"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		frontierSteps, err = meter.Int64Histogram(
			"search_frontier_steps",
			metric.WithDescription("Frontier expansions per search"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		frontierDedupe, err = meter.Int64Counter(
			"search_frontier_dedupe_total",
			metric.WithDescription("Frontier branches skipped via the trace cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordSearch records one finished search.
func recordSearch(ctx context.Context, duration time.Duration, steps int, found bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("found", found))
	searchesTotal.Add(ctx, 1, attrs)
	searchLatency.Record(ctx, duration.Seconds(), attrs)
	frontierSteps.Record(ctx, int64(steps))
}

// recordDedupe records a frontier branch skipped by the trace cache.
func recordDedupe(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	frontierDedupe.Add(ctx, 1)
}

// startSearchSpan creates a span for a search operation.
func startSearchSpan(ctx context.Context, operation string) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, "Search."+operation,
		oteltrace.WithAttributes(
			attribute.String("search.operation", operation),
		),
	)
}
