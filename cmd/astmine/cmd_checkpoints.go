// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	badgerstore "github.com/astmine/astmine/services/mine/storage/badger"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints <checkpoint-dir>",
	Short: "List processed-entry marks in a checkpoint directory",
	Long: `Opens the checkpoint store read-only and prints one line per mark:
the entry digest, the run that wrote it, and when the mark expires. Useful
for checking what a rerun over the same input would skip.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckpoints,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
}

func runCheckpoints(cmd *cobra.Command, args []string) error {
	opts := dgbadger.DefaultOptions(args[0]).
		WithLogger(nil).
		WithReadOnly(true)
	db, err := dgbadger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening checkpoint store at %s: %w", args[0], err)
	}
	defer func() { _ = db.Close() }()

	out := cmd.OutOrStdout()
	count := 0
	err = db.View(func(txn *dgbadger.Txn) error {
		iterOpts := dgbadger.DefaultIteratorOptions
		iterOpts.PrefetchValues = true
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		prefix := badgerstore.KeyPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			digest := strings.TrimPrefix(string(item.Key()), string(prefix))
			runID, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("copy value: %w", err)
			}
			expires := "never"
			if item.ExpiresAt() > 0 {
				expires = time.Unix(int64(item.ExpiresAt()), 0).UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", digest, runID, expires)
			count++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing marks: %w", err)
	}
	fmt.Fprintf(out, "# %d mark(s)\n", count)
	return nil
}
