// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/astmine/astmine/services/mine/pipeline")

// Discard reasons used as the pairs_discarded_total label and in logs.
const (
	reasonIdentical    = "identical"
	reasonOverBudget   = "over_budget"
	reasonRawLineBreak = "raw_line_break"
	reasonDiffFailed   = "diff_failed"
)

var (
	entriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astmine",
			Subsystem: "pipeline",
			Name:      "entries_total",
			Help:      "Input change entries by result.",
		},
		[]string{"result"},
	)

	pairsEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "astmine",
			Subsystem: "pipeline",
			Name:      "pairs_emitted_total",
			Help:      "Function change records written.",
		},
	)

	pairsDiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astmine",
			Subsystem: "pipeline",
			Name:      "pairs_discarded_total",
			Help:      "Matched pairs dropped before emission, by reason.",
		},
		[]string{"reason"},
	)

	duplicateNamesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "astmine",
			Subsystem: "pipeline",
			Name:      "duplicate_names_total",
			Help:      "Duplicate qualified names dropped during extraction.",
		},
	)

	unmatchedNamesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "astmine",
			Subsystem: "pipeline",
			Name:      "unmatched_names_total",
			Help:      "Qualified names present in only one revision.",
		},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "astmine",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per processing stage of one entry or pair.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"stage"},
	)
)

// startEntrySpan opens the tracing span covering one change entry.
func startEntrySpan(ctx context.Context, entry *ChangeEntry) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Processor.Process",
		trace.WithAttributes(
			attribute.String("repository", entry.Repository),
			attribute.String("path_before", entry.PathBefore),
			attribute.String("path_after", entry.PathAfter),
		))
}

// observeStage records the latency of one stage invocation.
func observeStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
