// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badgerstore wraps BadgerDB behind a small transactional API.
//
// The miner uses one embedded database per checkpoint directory. Keeping
// the raw badger handle private forces every access through WithTxn and
// WithReadTxn, which honor context cancellation before touching the store.
package badgerstore

import (
	"context"
	"fmt"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// Config selects where and how the database opens.
type Config struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in RAM. Used by tests.
	InMemory bool
}

// DefaultConfig returns an on-disk configuration. The caller sets Path
// before opening.
func DefaultConfig() Config {
	return Config{}
}

// InMemoryConfig returns a configuration backed entirely by RAM.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// DB is an opened BadgerDB instance.
//
// Thread Safety: safe for concurrent use. Badger transactions are
// per-goroutine.
type DB struct {
	db *dgbadger.DB
}

// OpenDB opens the database described by cfg.
//
// Description:
//
//	Badger's internal logger is suppressed; the store surfaces failures
//	through returned errors instead. The caller owns the handle and must
//	Close it.
func OpenDB(cfg Config) (*DB, error) {
	var opts dgbadger.Options
	if cfg.InMemory {
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("OpenDB: path must not be empty")
		}
		opts = dgbadger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("OpenDB: %w", err)
	}
	return &DB{db: db}, nil
}

// WithTxn runs fn inside a read-write transaction.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("WithTxn: %w", err)
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("WithReadTxn: %w", err)
	}
	return d.db.View(fn)
}

// Close flushes and closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}
