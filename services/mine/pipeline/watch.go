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
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch consumes newly created .jsonl chunk files from dir until the
// context is cancelled, appending records to output.
//
// Description:
//
//	Producers must write a chunk under a temporary name and rename it
//	into the directory; the rename delivers one create event with the
//	file already complete. Files present before Watch starts are not
//	processed; run the batch path over them first. Cancellation is the
//	normal way to stop watching and is not reported as an error.
//
// Outputs: aggregate stats over every chunk consumed.
func (r *Runner) Watch(ctx context.Context, dir string, output io.Writer) (*Stats, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("Watch: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("Watch: watching %s: %w", dir, err)
	}
	r.logger.Info("watching for chunks", slog.String("dir", dir))

	total := &Stats{}
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("watch stopped",
				slog.Int64("entries", total.Entries),
				slog.Int64("pairs_emitted", total.PairsEmitted))
			return total, nil

		case event, ok := <-watcher.Events:
			if !ok {
				return total, nil
			}
			if !event.Has(fsnotify.Create) || !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			stats, err := r.consumeChunk(ctx, event.Name, output)
			if stats != nil {
				total.add(stats)
			}
			if errors.Is(err, context.Canceled) {
				return total, nil
			}
			if err != nil {
				r.logger.Error("chunk failed",
					slog.String("chunk", event.Name),
					slog.String("error", err.Error()))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return total, nil
			}
			r.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// consumeChunk runs the batch path over one chunk file.
func (r *Runner) consumeChunk(ctx context.Context, path string, output io.Writer) (*Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk: %w", err)
	}
	defer file.Close()

	stats, err := r.Run(ctx, file, output)
	if err != nil {
		return stats, err
	}
	r.logger.Info("chunk processed",
		slog.String("chunk", path),
		slog.Int64("entries", stats.Entries),
		slog.Int64("pairs_emitted", stats.PairsEmitted))
	return stats, nil
}
