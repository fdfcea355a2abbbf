// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badgerstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// checkpointDefaultTTL bounds how long a processed-entry mark survives.
// Long enough to resume a run interrupted for weeks without the store
// growing without limit.
const checkpointDefaultTTL = 30 * 24 * time.Hour

// checkpointKeyPrefix is prepended to the entry digest to form the key.
// Versioned (v1) to allow future format changes without collision.
const checkpointKeyPrefix = "mine/done/v1/"

// errNotSeen distinguishes "key not found" (entry never processed) from a
// genuine storage error inside Seen.
var errNotSeen = errors.New("not seen")

// CheckpointStore records which input entries a mining run has finished,
// so an interrupted run can resume without re-emitting records.
//
// Description:
//
//	Entries are keyed by the digest of their raw input line, not by
//	position, so resuming works even when the input file is regenerated
//	with entries in a different order. The value is the run that wrote
//	the mark, kept for the checkpoints dump command.
//
// Thread Safety: safe for concurrent use.
type CheckpointStore struct {
	db     *DB
	runID  string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCheckpointStore creates a CheckpointStore backed by the given DB.
//
// Description:
//
//	The DB must be opened by the caller and outlive the store; the store
//	does not own the DB lifecycle.
//
// Inputs:
//
//   - db: opened database wrapper. Must not be nil.
//   - runID: identifier written as the value of each mark.
//   - ttl: lifetime of each mark. Pass 0 for the default (30 days).
//   - logger: diagnostics logger. May be nil.
func NewCheckpointStore(db *DB, runID string, ttl time.Duration, logger *slog.Logger) *CheckpointStore {
	if db == nil {
		panic("NewCheckpointStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = checkpointDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckpointStore{db: db, runID: runID, ttl: ttl, logger: logger}
}

// Seen reports whether the entry with the given digest was already
// processed by this or an earlier run.
//
// Outputs: (false, nil) when the entry is new or its mark expired,
// (true, nil) when a mark exists, (false, error) on storage failure.
func (s *CheckpointStore) Seen(ctx context.Context, digest string) (bool, error) {
	key := checkpointKey(digest)
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errNotSeen
		}
		if err != nil {
			return fmt.Errorf("get checkpoint key: %w", err)
		}
		return nil
	})
	if errors.Is(err, errNotSeen) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checkpoint seen: %w", err)
	}
	return true, nil
}

// Mark records the entry with the given digest as processed.
func (s *CheckpointStore) Mark(ctx context.Context, digest string) error {
	key := checkpointKey(digest)
	err := s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, []byte(s.runID)).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("checkpoint mark: %w", err)
	}
	s.logger.Debug("checkpoint: marked", slog.String("digest", shortDigest(digest)))
	return nil
}

// Digest returns the hex digest a raw input line is checkpointed under.
func Digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// KeyPrefix returns the key prefix marks are stored under, for tools
// that iterate the store directly.
func KeyPrefix() []byte {
	return []byte(checkpointKeyPrefix)
}

// checkpointKey builds the key for the given entry digest.
func checkpointKey(digest string) []byte {
	return []byte(checkpointKeyPrefix + digest)
}

// shortDigest returns the first 8 characters of a digest for log display.
func shortDigest(d string) string {
	if len(d) > 8 {
		return d[:8] + "..."
	}
	return d
}
