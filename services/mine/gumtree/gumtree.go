// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gumtree computes structural edit scripts between two snippets
// of source. Matching follows the GumTree algorithm (greedy top-down
// isomorphic anchoring, then greedy bottom-up container recovery) and
// the script comes from a Chawathe-style generator working on the match.
package gumtree

import (
	"context"
	"fmt"
	"time"
)

// Match is one mapped node pair between the two trees.
type Match struct {
	Src *Tree
	Dst *Tree
}

// Result carries everything one diff run produced. Downstream consumers
// keep only the ordered action kinds; Matches and the full actions stay
// available for inspection tooling.
type Result struct {
	Src     *Tree
	Dst     *Tree
	Matches []Match
	Actions []Action
}

// ActionKinds returns the ordered kind sequence of the edit script.
func (r *Result) ActionKinds() []string {
	kinds := make([]string, len(r.Actions))
	for i, a := range r.Actions {
		kinds[i] = string(a.Kind)
	}
	return kinds
}

// Diff converts, matches, and scripts one before/after snippet pair.
//
// Description:
//
//	Both snippets are parsed fresh, so Diff always compares the code as
//	written. Conversion failure on either side is returned as an error
//	for the caller to log and skip; a successful run always returns a
//	result, possibly with an empty action list for identical snippets.
//
// Inputs: the raw before and after snippet bytes.
// Outputs: the matched trees and ordered edit script, or an error.
func Diff(ctx context.Context, before, after []byte) (*Result, error) {
	start := time.Now()
	ctx, span := startDiffSpan(ctx, len(before), len(after))
	defer span.End()

	srcTree, err := FromSnippet(ctx, before)
	if err != nil {
		err = fmt.Errorf("before snippet: %w", err)
		recordDiff(start, 0, err)
		return nil, err
	}
	dstTree, err := FromSnippet(ctx, after)
	if err != nil {
		err = fmt.Errorf("after snippet: %w", err)
		recordDiff(start, 0, err)
		return nil, err
	}

	mappings := match(srcTree, dstTree)
	actions := editScript(srcTree, dstTree, mappings)

	result := &Result{Src: srcTree, Dst: dstTree, Actions: actions}
	for _, s := range srcTree.preorder(nil) {
		if d := mappings.Dst(s); d != nil {
			result.Matches = append(result.Matches, Match{Src: s, Dst: d})
		}
	}

	setDiffSpanResult(span, len(actions), len(result.Matches))
	recordDiff(start, len(actions), nil)
	return result, nil
}
