// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("aleutian.graph")
	meter  = otel.Meter("aleutian.graph")
)

// Metrics for graph mutations and reads.
var (
	entitiesCreated  metric.Int64Counter
	patternsAppended metric.Int64Counter
	commitsTotal     metric.Int64Counter
	commitLatency    metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		entitiesCreated, err = meter.Int64Counter(
			"graph_entities_created_total",
			metric.WithDescription("Total number of entities created"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		patternsAppended, err = meter.Int64Counter(
			"graph_patterns_appended_total",
			metric.WithDescription("Total number of decompositions appended"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		commitsTotal, err = meter.Int64Counter(
			"graph_commits_total",
			metric.WithDescription("Total number of committed write transactions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		commitLatency, err = meter.Float64Histogram(
			"graph_commit_duration_seconds",
			metric.WithDescription("Duration of write transaction commits"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordCommit records the outcome of one committed transaction.
func recordCommit(ctx context.Context, created, appended int, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	entitiesCreated.Add(ctx, int64(created))
	patternsAppended.Add(ctx, int64(appended))
	commitsTotal.Add(ctx, 1)
	commitLatency.Record(ctx, duration.Seconds())
}

// startGraphSpan creates a span for a graph operation.
func startGraphSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Hypergraph."+operation,
		trace.WithAttributes(
			attribute.String("graph.operation", operation),
		),
	)
}
