package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for graph projection.
var (
	tracer = otel.Tracer("treegraph.graph")
	meter  = otel.Meter("treegraph.graph")
)

var (
	projectionLatency  metric.Float64Histogram
	verticesCreated    metric.Int64Counter
	edgesCreated       metric.Int64Counter
	projectionFailures metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		projectionLatency, err = meter.Float64Histogram(
			"treegraph_projection_duration_seconds",
			metric.WithDescription("Duration of tree-to-graph projections"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		verticesCreated, err = meter.Int64Counter(
			"treegraph_vertices_created_total",
			metric.WithDescription("Total number of vertices written to a sink"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesCreated, err = meter.Int64Counter(
			"treegraph_edges_created_total",
			metric.WithDescription("Total number of edges written to a sink"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		projectionFailures, err = meter.Int64Counter(
			"treegraph_projection_failures_total",
			metric.WithDescription("Total number of aborted projections"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordProjection records the outcome of one Project call.
func recordProjection(ctx context.Context, language string, d time.Duration, stats Stats, err error) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.Bool("success", err == nil),
	)
	projectionLatency.Record(ctx, d.Seconds(), attrs)
	verticesCreated.Add(ctx, int64(stats.Vertices), attrs)
	edgesCreated.Add(ctx, int64(stats.Edges), attrs)
	if err != nil {
		projectionFailures.Add(ctx, 1, attrs)
	}
}
