// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pairs aligns two extracted function maps by qualified name.
package pairs

import (
	"log/slog"

	"github.com/astmine/astmine/services/mine/ast"
	"github.com/astmine/astmine/services/mine/extract"
)

// Pair is one function present in both revisions of a file.
type Pair struct {
	Name   string
	Before *ast.Node
	After  *ast.Node
}

// Stats summarizes one matching run for diagnostics and counters.
type Stats struct {
	Matched       int
	MissingAfter  int
	MissingBefore int
}

// Match yields every qualified name present in both maps, in before-map
// source order. Names on only one side are logged and dropped; renames,
// additions, and removals are not guessed at.
func Match(before, after *extract.FunctionMap, logger *slog.Logger) ([]Pair, Stats) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		matched []Pair
		stats   Stats
	)
	for _, name := range before.Names() {
		beforeNode, _ := before.Get(name)
		afterNode, ok := after.Get(name)
		if !ok {
			stats.MissingAfter++
			logger.Debug("function missing in after revision", slog.String("name", name))
			continue
		}
		matched = append(matched, Pair{Name: name, Before: beforeNode, After: afterNode})
		stats.Matched++
	}
	for _, name := range after.Names() {
		if _, ok := before.Get(name); !ok {
			stats.MissingBefore++
			logger.Debug("function missing in before revision", slog.String("name", name))
		}
	}
	return matched, stats
}
