// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// syncBuffer is an io.Writer shared between the watch goroutine and the
// test goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchConsumesRenamedChunks(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(testConfig(1), nil, nil, quietLogger())
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type watchResult struct {
		stats *Stats
		err   error
	}
	done := make(chan watchResult, 1)
	go func() {
		stats, err := runner.Watch(ctx, dir, out)
		done <- watchResult{stats, err}
	}()

	// Give the watcher time to register before producing the chunk.
	time.Sleep(100 * time.Millisecond)

	tmp := filepath.Join(dir, "chunk-001.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(fixtureLine(t, 0)+"\n"), 0o600))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "chunk-001.jsonl")))

	deadline := time.After(5 * time.Second)
	for len(decodeRecords(t, out.String())) == 0 {
		select {
		case <-deadline:
			t.Fatal("no record appeared within the deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	result := <-done
	require.NoError(t, result.err)
	require.EqualValues(t, 1, result.stats.Entries)
	require.EqualValues(t, 1, result.stats.PairsEmitted)

	records := decodeRecords(t, out.String())
	require.Len(t, records, 1)
	require.Equal(t, "handler_0", records[0].QualifiedName)
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(testConfig(1), nil, nil, quietLogger())
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var stats *Stats
	go func() {
		stats, _ = runner.Watch(ctx, dir, out)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a chunk\n"), 0o600))
	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	require.Zero(t, stats.Entries)
	require.Empty(t, out.String())
}

func TestWatchMissingDirectory(t *testing.T) {
	runner := NewRunner(testConfig(1), nil, nil, quietLogger())
	_, err := runner.Watch(context.Background(), filepath.Join(t.TempDir(), "absent"), &bytes.Buffer{})
	require.Error(t, err)
}
