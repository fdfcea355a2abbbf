// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package normalize rewrites identifiers and literals to category-tagged
// placeholders (IDENTIFIER_0, INT_1, ...), bounded by the idiom database,
// and produces the reversible replacement map that undoes the rewrite.
package normalize

import (
	"fmt"

	"github.com/astmine/astmine/services/mine/ast"
	"github.com/astmine/astmine/services/mine/idioms"
	"github.com/astmine/astmine/services/mine/walker"
)

// Session holds the rewrite state for one before/after function pair.
//
// Description:
//
//	A Session is created fresh per pair and shared by both trees, which is
//	what guarantees that a value occurring in both revisions maps to the
//	same placeholder. Five independent value→placeholder maps cover the
//	five categories (identifier, float, int, string, templated string);
//	each is backed by a monotonic counter. The counters skip any name
//	already present in either tree — collected at construction — so a
//	generated placeholder can never collide with real code.
//
// Thread Safety: none. One session, one pair, one goroutine.
type Session struct {
	db      *idioms.Database
	exclude map[string]struct{}

	identifiers map[string]string
	floats      map[float64]string
	ints        map[string]string
	strings     map[string]string
	templates   map[string]string

	nextIdentifier int
	nextFloat      int
	nextInt        int
	nextString     int
	nextTemplate   int
}

// NewSession builds a session for the given trees, seeding the exclusion
// set with every identifier name the trees already use.
func NewSession(db *idioms.Database, trees ...*ast.Node) *Session {
	s := &Session{
		db:          db,
		exclude:     make(map[string]struct{}),
		identifiers: make(map[string]string),
		floats:      make(map[float64]string),
		ints:        make(map[string]string),
		strings:     make(map[string]string),
		templates:   make(map[string]string),
	}
	for _, tree := range trees {
		s.seedExclusions(tree)
	}
	return s
}

func (s *Session) seedExclusions(root *ast.Node) {
	w := walker.New()
	w.Handle("identifier", func(w *walker.Walker, n *ast.Node) {
		s.exclude[n.Value] = struct{}{}
	})
	// A fresh walker over a finite tree cannot fail.
	_ = w.Walk(root)
}

// placeholder mints the next free name for one category's counter,
// skipping names the trees already contain.
func (s *Session) placeholder(prefix string, counter *int) string {
	for {
		name := fmt.Sprintf("%s_%d", prefix, *counter)
		*counter++
		if _, taken := s.exclude[name]; !taken {
			return name
		}
	}
}
