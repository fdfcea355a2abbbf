// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/astmine/astmine/services/mine/config"
	"github.com/astmine/astmine/services/mine/idioms"
	badgerstore "github.com/astmine/astmine/services/mine/storage/badger"
)

// maxEntryLineSize bounds one input line. Entries carry two whole file
// revisions, so the scanner needs far more than the bufio default.
const maxEntryLineSize = 64 << 20

// Stats summarizes one run. Counters cover entries at line granularity
// and pairs at function granularity.
type Stats struct {
	Entries        int64
	EntriesSkipped int64
	DecodeFailures int64
	ParseFailures  int64
	Duplicates     int64
	UnmatchedNames int64
	PairsMatched   int64
	PairsEmitted   int64
	Identical      int64
	OverBudget     int64
	RawLineBreaks  int64
	DiffFailures   int64
}

// add merges the counters of another run segment.
func (s *Stats) add(other *Stats) {
	s.Entries += other.Entries
	s.EntriesSkipped += other.EntriesSkipped
	s.DecodeFailures += other.DecodeFailures
	s.ParseFailures += other.ParseFailures
	s.Duplicates += other.Duplicates
	s.UnmatchedNames += other.UnmatchedNames
	s.PairsMatched += other.PairsMatched
	s.PairsEmitted += other.PairsEmitted
	s.Identical += other.Identical
	s.OverBudget += other.OverBudget
	s.RawLineBreaks += other.RawLineBreaks
	s.DiffFailures += other.DiffFailures
}

// merge folds one entry outcome into the run counters.
func (s *Stats) merge(outcome EntryOutcome) {
	s.Entries++
	if outcome.ParseFailed {
		s.ParseFailures++
		return
	}
	s.Duplicates += int64(outcome.Duplicates)
	s.UnmatchedNames += int64(outcome.UnmatchedNames)
	s.PairsMatched += int64(outcome.PairsMatched)
	s.PairsEmitted += int64(outcome.Emitted)
	s.Identical += int64(outcome.Identical)
	s.OverBudget += int64(outcome.OverBudget)
	s.RawLineBreaks += int64(outcome.RawLineBreaks)
	s.DiffFailures += int64(outcome.DiffFailed)
}

// Runner streams change entries through a worker pool.
//
// Description:
//
//	One reader goroutine feeds input lines to a channel, Workers
//	goroutines each own a Processor, and one writer goroutine
//	serializes records to the output stream. Entries are independent,
//	so record order across entries follows completion, not input,
//	order. The optional checkpoint store lets an interrupted run
//	resume without re-emitting finished entries.
//
// Thread Safety: Run may not be called concurrently on one Runner.
type Runner struct {
	cfg         *config.Config
	idioms      *idioms.Database
	checkpoints *badgerstore.CheckpointStore
	logger      *slog.Logger
	runID       string
}

// NewRunner creates a Runner.
//
// Inputs:
//
//   - cfg: effective configuration. Must not be nil.
//   - db: shared idiom database. Nil means no idioms.
//   - store: checkpoint database. Nil disables resuming.
//   - logger: run logger. May be nil.
func NewRunner(cfg *config.Config, db *idioms.Database, store *badgerstore.DB, logger *slog.Logger) *Runner {
	if cfg == nil {
		panic("NewRunner: cfg must not be nil")
	}
	if db == nil {
		db = idioms.Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	var checkpoints *badgerstore.CheckpointStore
	if store != nil {
		checkpoints = badgerstore.NewCheckpointStore(store, runID, 0, logger)
	}
	return &Runner{
		cfg:         cfg,
		idioms:      db,
		checkpoints: checkpoints,
		logger:      logger,
		runID:       runID,
	}
}

// RunID returns the identifier stamped on this runner's logs and marks.
func (r *Runner) RunID() string {
	return r.runID
}

// Run processes every line of input and writes one JSON record per
// emitted function change to output.
//
// Description:
//
//	Data-quality conditions are consumed and counted; Run fails only
//	on input/output errors, context cancellation, or a programming
//	error in a stage. On success the returned stats cover exactly the
//	lines consumed from input.
func (r *Runner) Run(ctx context.Context, input io.Reader, output io.Writer) (*Stats, error) {
	group, ctx := errgroup.WithContext(ctx)
	lines := make(chan []byte, r.cfg.Workers)
	records := make(chan FunctionChange, r.cfg.Workers)

	stats := &Stats{}
	var statsMu sync.Mutex

	group.Go(func() error {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		scanner.Buffer(make([]byte, 0, 1<<20), maxEntryLineSize)
		for scanner.Scan() {
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}
			line := make([]byte, len(raw))
			copy(line, raw)
			select {
			case lines <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		return nil
	})

	var workers sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		workers.Add(1)
		group.Go(func() error {
			defer workers.Done()
			processor := NewProcessor(r.idioms, r.cfg.TokenBudget, r.logger)
			for line := range lines {
				entryStats, err := r.processLine(ctx, processor, line, records)
				if err != nil {
					return err
				}
				statsMu.Lock()
				stats.add(entryStats)
				statsMu.Unlock()
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(records)
	}()

	group.Go(func() error {
		encoder := json.NewEncoder(output)
		encoder.SetEscapeHTML(false)
		for record := range records {
			if err := encoder.Encode(record); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return stats, err
	}

	r.logger.Info("run complete",
		slog.Int64("entries", stats.Entries),
		slog.Int64("entries_skipped", stats.EntriesSkipped),
		slog.Int64("decode_failures", stats.DecodeFailures),
		slog.Int64("parse_failures", stats.ParseFailures),
		slog.Int64("pairs_matched", stats.PairsMatched),
		slog.Int64("pairs_emitted", stats.PairsEmitted),
		slog.Int64("identical", stats.Identical),
		slog.Int64("over_budget", stats.OverBudget),
		slog.Int64("diff_failures", stats.DiffFailures),
		slog.Int64("duplicates", stats.Duplicates),
		slog.Int64("unmatched_names", stats.UnmatchedNames))
	return stats, nil
}

// processLine handles one input line inside a worker: checkpoint check,
// decode, process, emit, mark.
func (r *Runner) processLine(ctx context.Context, processor *Processor, line []byte, records chan<- FunctionChange) (*Stats, error) {
	stats := &Stats{}
	digest := badgerstore.Digest(line)

	if r.checkpoints != nil {
		seen, err := r.checkpoints.Seen(ctx, digest)
		if err != nil {
			// Checkpointing is best effort; a broken store must not
			// lose the batch.
			r.logger.Warn("checkpoint lookup failed",
				slog.String("error", err.Error()))
		}
		if seen {
			stats.Entries++
			stats.EntriesSkipped++
			entriesTotal.WithLabelValues("checkpoint_skip").Inc()
			return stats, nil
		}
	}

	entry, err := DecodeEntry(line)
	if err != nil {
		r.logger.Warn("malformed input line skipped",
			slog.String("error", err.Error()))
		stats.Entries++
		stats.DecodeFailures++
		entriesTotal.WithLabelValues("decode_error").Inc()
		return stats, nil
	}

	results, outcome, err := processor.Process(ctx, entry)
	if err != nil {
		return stats, err
	}
	stats.merge(outcome)

	for _, record := range results {
		select {
		case records <- record:
		case <-ctx.Done():
			return stats, ctx.Err()
		}
	}

	if r.checkpoints != nil {
		if err := r.checkpoints.Mark(ctx, digest); err != nil {
			r.logger.Warn("checkpoint mark failed",
				slog.String("error", err.Error()))
		}
	}
	return stats, nil
}
