// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/astmine/astmine/services/mine/ast"
	"github.com/astmine/astmine/services/mine/extract"
	"github.com/astmine/astmine/services/mine/gumtree"
	"github.com/astmine/astmine/services/mine/idioms"
	"github.com/astmine/astmine/services/mine/normalize"
	"github.com/astmine/astmine/services/mine/pairs"
	"github.com/astmine/astmine/services/mine/tokens"
)

// Processor runs the per-entry stages for one worker.
//
// Description:
//
//	Each worker owns one Processor. The idiom database is the only
//	shared state and is read-only; everything else (canonicalizer
//	sessions, diff engine state) lives within a single Process call.
//
// Thread Safety: not safe for concurrent use. Give each goroutine its
// own Processor.
type Processor struct {
	idioms *idioms.Database
	budget int
	logger *slog.Logger
}

// NewProcessor creates a Processor.
//
// Inputs:
//
//   - db: shared idiom database. Nil means no idioms.
//   - budget: projection token budget. Values <= 0 disable the check.
//   - logger: diagnostics logger. May be nil.
func NewProcessor(db *idioms.Database, budget int, logger *slog.Logger) *Processor {
	if db == nil {
		db = idioms.Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{idioms: db, budget: budget, logger: logger}
}

// EntryOutcome counts what happened to one change entry.
type EntryOutcome struct {
	// ParseFailed marks a whole-file parse failure; the entry produced
	// no records and the remaining fields are zero.
	ParseFailed bool

	// Duplicates counts qualified names dropped as duplicates across
	// both revisions.
	Duplicates int

	// UnmatchedNames counts qualified names present in only one revision.
	UnmatchedNames int

	// PairsMatched counts name-matched pairs before any filtering.
	PairsMatched int

	// Emitted counts records produced.
	Emitted int

	// Identical counts pairs dropped because both revisions rendered or
	// projected identically.
	Identical int

	// OverBudget counts pairs whose projection exceeded the token budget.
	OverBudget int

	// RawLineBreaks counts pairs whose projection would contain a raw
	// line break.
	RawLineBreaks int

	// DiffFailed counts pairs whose raw snippets failed diff-tree
	// conversion.
	DiffFailed int
}

// Process turns one change entry into zero or more function change
// records.
//
// Description:
//
//	Stages run strictly in order: parse both revisions, strip literal
//	statements, extract and match functions, then per pair render the
//	raw snippets, canonicalize in a fresh session, project the one-line
//	forms, and diff the raw snippets. Data-quality conditions are
//	consumed here and reported through the outcome and structured logs.
//
// Outputs:
//
//   - records in before-revision source order.
//   - the outcome counters for this entry.
//   - an error only for context cancellation or a programming error;
//     never for bad input data.
func (p *Processor) Process(ctx context.Context, entry *ChangeEntry) ([]FunctionChange, EntryOutcome, error) {
	ctx, span := startEntrySpan(ctx, entry)
	defer span.End()

	outcome := EntryOutcome{}
	logger := p.logger.With(
		slog.String("repository", entry.Repository),
		slog.String("path", entry.PathAfter),
	)

	parseStart := time.Now()
	before, err := p.parseRevision(ctx, "before", entry.CodeBefore, logger, &outcome)
	if err != nil || outcome.ParseFailed {
		return nil, outcome, err
	}
	after, err := p.parseRevision(ctx, "after", entry.CodeAfter, logger, &outcome)
	if err != nil || outcome.ParseFailed {
		return nil, outcome, err
	}
	observeStage("parse", parseStart)

	extract.RemoveLiteralStatements(before)
	extract.RemoveLiteralStatements(after)

	beforeFuncs := extract.Functions(before, logger)
	afterFuncs := extract.Functions(after, logger)
	outcome.Duplicates = beforeFuncs.Duplicates() + afterFuncs.Duplicates()
	duplicateNamesTotal.Add(float64(outcome.Duplicates))

	matched, matchStats := pairs.Match(beforeFuncs, afterFuncs, logger)
	outcome.PairsMatched = matchStats.Matched
	outcome.UnmatchedNames = matchStats.MissingAfter + matchStats.MissingBefore
	unmatchedNamesTotal.Add(float64(outcome.UnmatchedNames))

	var records []FunctionChange
	for _, pair := range matched {
		record, reason, err := p.processPair(ctx, pair, logger)
		if err != nil {
			return nil, outcome, err
		}
		switch reason {
		case "":
			records = append(records, *record)
			outcome.Emitted++
			pairsEmittedTotal.Inc()
		case reasonIdentical:
			outcome.Identical++
		case reasonOverBudget:
			outcome.OverBudget++
		case reasonRawLineBreak:
			outcome.RawLineBreaks++
		case reasonDiffFailed:
			outcome.DiffFailed++
		}
		if reason != "" {
			pairsDiscardedTotal.WithLabelValues(reason).Inc()
		}
	}

	entriesTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.Int("pairs_matched", outcome.PairsMatched),
		attribute.Int("records", outcome.Emitted),
	)
	return records, outcome, nil
}

// parseRevision parses one side of the entry, consuming data-quality
// failures into the outcome.
func (p *Processor) parseRevision(ctx context.Context, revision, code string, logger *slog.Logger, outcome *EntryOutcome) (*ast.Node, error) {
	root, err := ast.Parse(ctx, []byte(code))
	if err == nil {
		return root, nil
	}
	if dataQualityParseError(err) {
		logger.Warn("file parse failed, entry skipped",
			slog.String("revision", revision),
			slog.String("error", err.Error()))
		outcome.ParseFailed = true
		entriesTotal.WithLabelValues("parse_error").Inc()
		return nil, nil
	}
	return nil, fmt.Errorf("parsing %s revision: %w", revision, err)
}

// dataQualityParseError reports whether a parse error is a property of
// the input file rather than of the run.
func dataQualityParseError(err error) bool {
	return errors.Is(err, ast.ErrSyntax) ||
		errors.Is(err, ast.ErrSourceTooLarge) ||
		errors.Is(err, ast.ErrInvalidEncoding)
}

// processPair runs the per-pair stages. The empty reason means the
// record was produced; a non-empty reason names why the pair was
// dropped. The error return is reserved for cancellation and
// programming errors.
func (p *Processor) processPair(ctx context.Context, pair pairs.Pair, logger *slog.Logger) (*FunctionChange, string, error) {
	beforeCode := strings.TrimSuffix(ast.Render(pair.Before), "\n")
	afterCode := strings.TrimSuffix(ast.Render(pair.After), "\n")
	if beforeCode == afterCode {
		return nil, reasonIdentical, nil
	}

	normalizeStart := time.Now()
	session, err := normalize.NormalizePair(p.idioms, pair.Before, pair.After)
	if err != nil {
		return nil, "", fmt.Errorf("normalizing %s: %w", pair.Name, err)
	}

	beforeOneLine, reason, err := p.project(pair.Before, pair.Name, logger)
	if reason != "" || err != nil {
		return nil, reason, err
	}
	afterOneLine, reason, err := p.project(pair.After, pair.Name, logger)
	if reason != "" || err != nil {
		return nil, reason, err
	}
	observeStage("normalize", normalizeStart)

	if beforeOneLine == afterOneLine {
		logger.Debug("pair dropped after normalization",
			slog.String("name", pair.Name),
			slog.String("reason", reasonIdentical))
		return nil, reasonIdentical, nil
	}

	diffStart := time.Now()
	result, err := gumtree.Diff(ctx, []byte(beforeCode), []byte(afterCode))
	observeStage("diff", diffStart)
	if err != nil {
		if errors.Is(err, ast.ErrSyntax) {
			logger.Warn("pair discarded: diff-tree conversion failed",
				slog.String("name", pair.Name),
				slog.String("error", err.Error()))
			return nil, reasonDiffFailed, nil
		}
		return nil, "", fmt.Errorf("diffing %s: %w", pair.Name, err)
	}

	return &FunctionChange{
		QualifiedName:        pair.Name,
		BeforeCode:           beforeCode,
		AfterCode:            afterCode,
		BeforeCodeNormalized: beforeOneLine,
		AfterCodeNormalized:  afterOneLine,
		EditActions:          result.ActionKinds(),
		ReplacementMap:       session.ReplacementMap(),
	}, "", nil
}

// project flattens one normalized subtree, classifying budget and
// line-break failures as discard reasons.
func (p *Processor) project(root *ast.Node, name string, logger *slog.Logger) (string, string, error) {
	line, err := tokens.Project(root, p.budget)
	if err == nil {
		return line, "", nil
	}
	switch {
	case errors.Is(err, tokens.ErrTokenBudget):
		logger.Warn("pair discarded: too many tokens",
			slog.String("name", name),
			slog.Int("budget", p.budget))
		return "", reasonOverBudget, nil
	case errors.Is(err, tokens.ErrRawLineBreak):
		logger.Warn("pair discarded: raw line break in projection",
			slog.String("name", name))
		return "", reasonRawLineBreak, nil
	default:
		return "", "", fmt.Errorf("projecting %s: %w", name, err)
	}
}
