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
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astmine/astmine/services/mine/config"
	badgerstore "github.com/astmine/astmine/services/mine/storage/badger"
)

func testConfig(workers int) *config.Config {
	cfg := config.Default()
	cfg.Workers = workers
	return cfg
}

func fixtureLine(t *testing.T, i int) string {
	t.Helper()
	entry := ChangeEntry{
		Repository:   fmt.Sprintf("acme/repo-%d", i),
		CommitBefore: "aaaaaaa",
		CommitAfter:  "bbbbbbb",
		PathBefore:   "pkg/mod.py",
		PathAfter:    "pkg/mod.py",
		CodeBefore:   fmt.Sprintf("def handler_%d(x):\n    return x + 1\n", i),
		CodeAfter:    fmt.Sprintf("def handler_%d(x):\n    return x + 2\n", i),
	}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	return string(raw)
}

func fixtureInput(t *testing.T, n int) string {
	t.Helper()
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lines = append(lines, fixtureLine(t, i))
	}
	return strings.Join(lines, "\n") + "\n"
}

func decodeRecords(t *testing.T, raw string) []FunctionChange {
	t.Helper()
	var records []FunctionChange
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var record FunctionChange
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].QualifiedName < records[j].QualifiedName
	})
	return records
}

func TestRunEmitsAllEntries(t *testing.T) {
	runner := NewRunner(testConfig(1), nil, nil, quietLogger())
	var out bytes.Buffer

	stats, err := runner.Run(context.Background(), strings.NewReader(fixtureInput(t, 3)), &out)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Entries)
	require.EqualValues(t, 3, stats.PairsMatched)
	require.EqualValues(t, 3, stats.PairsEmitted)
	require.Zero(t, stats.EntriesSkipped)

	records := decodeRecords(t, out.String())
	require.Len(t, records, 3)
	require.Equal(t, "handler_0", records[0].QualifiedName)
	require.Equal(t, "handler_2", records[2].QualifiedName)
}

func TestRunWorkerCountDoesNotChangeOutput(t *testing.T) {
	input := fixtureInput(t, 3)

	var serial bytes.Buffer
	_, err := NewRunner(testConfig(1), nil, nil, quietLogger()).
		Run(context.Background(), strings.NewReader(input), &serial)
	require.NoError(t, err)

	var parallel bytes.Buffer
	_, err = NewRunner(testConfig(4), nil, nil, quietLogger()).
		Run(context.Background(), strings.NewReader(input), &parallel)
	require.NoError(t, err)

	require.Equal(t, decodeRecords(t, serial.String()), decodeRecords(t, parallel.String()))
}

func TestRunSkipsBlankAndMalformedLines(t *testing.T) {
	input := "\n" + fixtureLine(t, 0) + "\nnot json at all\n"
	runner := NewRunner(testConfig(1), nil, nil, quietLogger())
	var out bytes.Buffer

	stats, err := runner.Run(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Entries)
	require.EqualValues(t, 1, stats.DecodeFailures)
	require.EqualValues(t, 1, stats.PairsEmitted)
	require.Len(t, decodeRecords(t, out.String()), 1)
}

func TestRunCountsParseFailures(t *testing.T) {
	entry := ChangeEntry{
		Repository: "acme/broken",
		PathAfter:  "bad.py",
		CodeBefore: "def broken(:\n",
		CodeAfter:  "def broken():\n    pass\n",
	}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	runner := NewRunner(testConfig(1), nil, nil, quietLogger())
	var out bytes.Buffer
	stats, err := runner.Run(context.Background(), strings.NewReader(string(raw)+"\n"), &out)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Entries)
	require.EqualValues(t, 1, stats.ParseFailures)
	require.Zero(t, stats.PairsEmitted)
	require.Empty(t, out.String())
}

func TestRunResumesFromCheckpoints(t *testing.T) {
	db, err := badgerstore.OpenDB(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	input := fixtureInput(t, 3)

	var first bytes.Buffer
	stats, err := NewRunner(testConfig(2), nil, db, quietLogger()).
		Run(context.Background(), strings.NewReader(input), &first)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.PairsEmitted)

	var second bytes.Buffer
	stats, err = NewRunner(testConfig(2), nil, db, quietLogger()).
		Run(context.Background(), strings.NewReader(input), &second)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Entries)
	require.EqualValues(t, 3, stats.EntriesSkipped)
	require.Zero(t, stats.PairsEmitted)
	require.Empty(t, second.String())
}

func TestRunEmptyInput(t *testing.T) {
	runner := NewRunner(testConfig(1), nil, nil, quietLogger())
	var out bytes.Buffer

	stats, err := runner.Run(context.Background(), strings.NewReader(""), &out)
	require.NoError(t, err)
	require.Zero(t, stats.Entries)
	require.Empty(t, out.String())
}

func TestRunIDStampsRunner(t *testing.T) {
	a := NewRunner(testConfig(1), nil, nil, quietLogger())
	b := NewRunner(testConfig(1), nil, nil, quietLogger())
	require.NotEmpty(t, a.RunID())
	require.NotEqual(t, a.RunID(), b.RunID())
}
