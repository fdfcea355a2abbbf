// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package idioms

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/astmine/astmine/services/mine/ast"
	"github.com/astmine/astmine/services/mine/walker"
)

// Limits bounds how many entries per category a built table keeps.
type Limits struct {
	Identifiers int
	Ints        int
	Floats      int
	Strings     int
}

// DefaultLimits matches the cutoffs the shipped idiom tables were built
// with: identifiers and strings have a long useful tail, numerics do not.
var DefaultLimits = Limits{Identifiers: 200, Ints: 50, Floats: 50, Strings: 200}

// Counter accumulates identifier and literal frequencies over a corpus of
// Python files, to build an idiom table. Values are counted with the same
// identity rules the Database looks them up with (integers by numeric
// value, strings decoded), so a built table round-trips exactly.
//
// Thread Safety: not safe for concurrent use; count a corpus from one
// goroutine.
type Counter struct {
	identifiers map[string]int64
	ints        map[string]int64
	floats      map[float64]int64
	strings     map[string]int64
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{
		identifiers: map[string]int64{},
		ints:        map[string]int64{},
		floats:      map[float64]int64{},
		strings:     map[string]int64{},
	}
}

// CountFile parses one file and accumulates its values.
func (c *Counter) CountFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := c.CountSource(ctx, src); err != nil {
		return fmt.Errorf("counting %s: %w", path, err)
	}
	return nil
}

// CountSource accumulates identifier and literal frequencies from one
// source buffer. Bytes, imaginary numbers, and templated strings are not
// counted; the canonicalizer never rewrites those, so idiom entries for
// them would be dead weight.
func (c *Counter) CountSource(ctx context.Context, src []byte) error {
	root, err := ast.Parse(ctx, src)
	if err != nil {
		return err
	}

	w := walker.New()
	w.Handle("identifier", func(w *walker.Walker, n *ast.Node) {
		c.identifiers[n.Value]++
	})
	w.Handle("integer", func(w *walker.Walker, n *ast.Node) {
		if ast.IsImaginaryLiteral(n.Value) {
			return
		}
		if value, ok := ast.ParseIntLiteral(n.Value); ok {
			c.ints[value.String()]++
		}
	})
	w.Handle("float", func(w *walker.Walker, n *ast.Node) {
		if ast.IsImaginaryLiteral(n.Value) {
			return
		}
		if value, ok := ast.ParseFloatLiteral(n.Value); ok {
			c.floats[value]++
		}
	})
	w.Handle("string", func(w *walker.Walker, n *ast.Node) {
		if ast.IsBytesLiteral(n.Value) {
			return
		}
		if value, err := ast.DecodeString(n.Value); err == nil {
			c.strings[value]++
		}
	})
	w.Handle("concatenated_string", func(w *walker.Walker, n *ast.Node) {
		if value, ok := decodeConcatenated(n); ok {
			c.strings[value]++
		}
	})
	return w.Walk(root)
}

// decodeConcatenated folds an implicit-concatenation node into one decoded
// value, the way the language itself folds adjacent literals. Fails (and
// the node is skipped) when any part is templated or a bytes literal.
func decodeConcatenated(n *ast.Node) (string, bool) {
	out := ""
	for _, part := range n.Children {
		if part.Kind != "string" || ast.IsBytesLiteral(part.Value) {
			return "", false
		}
		decoded, err := ast.DecodeString(part.Value)
		if err != nil {
			return "", false
		}
		out += decoded
	}
	return out, true
}

// Table reduces the counts to a persisted table, keeping the most frequent
// entries per category. Ordering is deterministic: count descending, value
// ascending on ties.
func (c *Counter) Table(limits Limits) Table {
	return Table{
		Identifiers: topStringEntries(c.identifiers, limits.Identifiers, func(v string) any { return v }),
		Ints:        topStringEntries(c.ints, limits.Ints, intEntryValue),
		Floats:      topFloatEntries(c.floats, limits.Floats),
		Strings:     topStringEntries(c.strings, limits.Strings, func(v string) any { return v }),
	}
}

// intEntryValue writes an integer idiom as a JSON number when it fits a
// 64-bit value and as a decimal string otherwise.
func intEntryValue(key string) any {
	value, ok := new(big.Int).SetString(key, 10)
	if ok && value.IsInt64() {
		return value.Int64()
	}
	return key
}

func topStringEntries(counts map[string]int64, limit int, valueOf func(string) any) []Entry {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Value: valueOf(k), Count: counts[k]})
	}
	return entries
}

func topFloatEntries(counts map[float64]int64, limit int) []Entry {
	keys := make([]float64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Value: k, Count: counts[k]})
	}
	return entries
}

// WriteTable persists a table as indented JSON.
func WriteTable(path string, table Table) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding idiom table: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing idiom table: %w", err)
	}
	return nil
}
