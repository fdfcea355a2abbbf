// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gumtree

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/astmine/astmine/services/mine/gumtree")

var (
	diffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astmine",
			Subsystem: "gumtree",
			Name:      "diffs_total",
			Help:      "Diff runs by result.",
		},
		[]string{"result"},
	)

	diffDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "astmine",
			Subsystem: "gumtree",
			Name:      "diff_duration_seconds",
			Help:      "Wall time for one convert, match, and script run.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	actionsPerDiff = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "astmine",
			Subsystem: "gumtree",
			Name:      "actions_per_diff",
			Help:      "Edit script length per successful diff.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

// startDiffSpan opens the tracing span for one Diff call.
func startDiffSpan(ctx context.Context, beforeBytes, afterBytes int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "gumtree.Diff",
		trace.WithAttributes(
			attribute.Int("before_bytes", beforeBytes),
			attribute.Int("after_bytes", afterBytes),
		))
}

// setDiffSpanResult annotates a finished diff with its output sizes.
func setDiffSpanResult(span trace.Span, actions, matches int) {
	span.SetAttributes(
		attribute.Int("actions", actions),
		attribute.Int("matches", matches),
	)
}

// recordDiff updates the diff metrics for one completed run.
func recordDiff(start time.Time, actions int, err error) {
	diffDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		diffsTotal.WithLabelValues("convert_error").Inc()
		return
	}
	diffsTotal.WithLabelValues("ok").Inc()
	actionsPerDiff.Observe(float64(actions))
}
