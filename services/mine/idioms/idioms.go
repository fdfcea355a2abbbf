// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package idioms holds the table of high-frequency identifiers and literal
// values that the canonicalizer passes through unrewritten.
package idioms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"regexp"

	"github.com/astmine/astmine/services/mine/ast"
)

// Entry is one persisted idiom: a value and how often the corpus scan saw
// it. Counts are informational after the table is built; lookup ignores
// them.
type Entry struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// Table is the persisted JSON form of the idiom database: four arrays of
// entries keyed "identifiers", "int", "float", and "str".
type Table struct {
	Identifiers []Entry `json:"identifiers"`
	Ints        []Entry `json:"int"`
	Floats      []Entry `json:"float"`
	Strings     []Entry `json:"str"`
}

// Database is the loaded, immutable idiom lookup.
//
// Description:
//
//	Loaded once per process and shared read-only across every worker; no
//	locking is needed after Load returns. Integer idioms are keyed by
//	numeric value (so "0x10" in the table matches the literal 16), floats
//	by parsed value, strings by decoded value. Strings containing any
//	whitespace are dropped at load time no matter how frequent they are:
//	the one-line projector treats whitespace as a token boundary, and a
//	multi-word idiom would split into several tokens there.
//
// Thread Safety: immutable after construction; safe for concurrent use.
type Database struct {
	identifiers map[string]struct{}
	ints        map[string]struct{}
	floats      map[float64]struct{}
	strings     map[string]struct{}
}

var whitespacePattern = regexp.MustCompile(`\s`)

// Empty returns a database with no idioms; every value normalizes.
func Empty() *Database {
	return &Database{
		identifiers: map[string]struct{}{},
		ints:        map[string]struct{}{},
		floats:      map[float64]struct{}{},
		strings:     map[string]struct{}{},
	}
}

// Load reads and indexes an idiom table from disk.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading idiom table: %w", err)
	}
	var table Table
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("parsing idiom table %s: %w", path, err)
	}
	db, err := FromTable(table)
	if err != nil {
		return nil, fmt.Errorf("indexing idiom table %s: %w", path, err)
	}
	return db, nil
}

// FromTable indexes an in-memory table.
func FromTable(table Table) (*Database, error) {
	db := Empty()

	for _, e := range table.Identifiers {
		name, ok := e.Value.(string)
		if !ok {
			return nil, fmt.Errorf("identifier idiom %v: value must be a string", e.Value)
		}
		db.identifiers[name] = struct{}{}
	}

	for _, e := range table.Ints {
		key, err := intKey(e.Value)
		if err != nil {
			return nil, fmt.Errorf("int idiom %v: %w", e.Value, err)
		}
		db.ints[key] = struct{}{}
	}

	for _, e := range table.Floats {
		value, err := floatKey(e.Value)
		if err != nil {
			return nil, fmt.Errorf("float idiom %v: %w", e.Value, err)
		}
		db.floats[value] = struct{}{}
	}

	excluded := 0
	for _, e := range table.Strings {
		s, ok := e.Value.(string)
		if !ok {
			return nil, fmt.Errorf("string idiom %v: value must be a string", e.Value)
		}
		if whitespacePattern.MatchString(s) {
			excluded++
			continue
		}
		db.strings[s] = struct{}{}
	}
	if excluded > 0 {
		slog.Debug("excluded whitespace string idioms", slog.Int("count", excluded))
	}
	return db, nil
}

// intKey coerces a persisted int idiom (JSON number, a Go integer from a
// freshly built table, or a string in any Python integer spelling) to the
// canonical decimal key.
func intKey(value any) (string, error) {
	switch v := value.(type) {
	case json.Number:
		parsed, ok := new(big.Int).SetString(v.String(), 10)
		if !ok {
			return "", fmt.Errorf("not an integer: %s", v)
		}
		return parsed.String(), nil
	case string:
		parsed, ok := ast.ParseIntLiteral(v)
		if !ok {
			return "", fmt.Errorf("not an integer literal: %q", v)
		}
		return parsed.String(), nil
	case int64:
		return big.NewInt(v).String(), nil
	case int:
		return big.NewInt(int64(v)).String(), nil
	case float64:
		return big.NewInt(int64(v)).String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

func floatKey(value any) (float64, error) {
	switch v := value.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case string:
		parsed, ok := ast.ParseFloatLiteral(v)
		if !ok {
			return 0, fmt.Errorf("not a float literal: %q", v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", value)
	}
}

// ContainsIdentifier reports whether name is an idiom identifier.
func (db *Database) ContainsIdentifier(name string) bool {
	_, ok := db.identifiers[name]
	return ok
}

// ContainsInt reports whether the integer value is an idiom.
func (db *Database) ContainsInt(value *big.Int) bool {
	_, ok := db.ints[value.String()]
	return ok
}

// ContainsFloat reports whether the float value is an idiom.
func (db *Database) ContainsFloat(value float64) bool {
	_, ok := db.floats[value]
	return ok
}

// ContainsString reports whether the decoded string value is an idiom.
func (db *Database) ContainsString(value string) bool {
	_, ok := db.strings[value]
	return ok
}

// Sizes returns the per-category idiom counts, for startup logging.
func (db *Database) Sizes() (identifiers, ints, floats, strings int) {
	return len(db.identifiers), len(db.ints), len(db.floats), len(db.strings)
}
