// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/astmine/astmine/services/mine/ast")

var (
	parsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astmine",
			Subsystem: "ast",
			Name:      "parses_total",
			Help:      "Parse attempts by result.",
		},
		[]string{"result"},
	)

	parseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "astmine",
			Subsystem: "ast",
			Name:      "parse_duration_seconds",
			Help:      "Wall time spent parsing one source buffer.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
)

// startParseSpan opens the tracing span for one Parse call.
func startParseSpan(ctx context.Context, sourceBytes int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Parser.Parse",
		trace.WithAttributes(
			attribute.String("language", "python"),
			attribute.Int("source_bytes", sourceBytes),
		))
}

// setParseSpanResult annotates a successful parse with the tree size.
func setParseSpanResult(span trace.Span, nodeCount int) {
	span.SetAttributes(attribute.Int("nodes", nodeCount))
}

// recordParse updates the parse metrics for one completed attempt.
func recordParse(start time.Time, err error) {
	parseDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		parsesTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrSyntax):
		parsesTotal.WithLabelValues("syntax_error").Inc()
	case errors.Is(err, ErrSourceTooLarge):
		parsesTotal.WithLabelValues("too_large").Inc()
	case errors.Is(err, ErrInvalidEncoding):
		parsesTotal.WithLabelValues("bad_encoding").Inc()
	default:
		parsesTotal.WithLabelValues("error").Inc()
	}
}
