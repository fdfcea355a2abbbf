// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package normalize

import (
	"strings"

	"github.com/astmine/astmine/services/mine/ast"
	"github.com/astmine/astmine/services/mine/idioms"
	"github.com/astmine/astmine/services/mine/walker"
)

// NormalizePair canonicalizes a before/after pair under one shared session
// and returns that session (for its replacement map). The before tree is
// rewritten first, so placeholder numbering follows before-tree order for
// values present in both revisions.
func NormalizePair(db *idioms.Database, before, after *ast.Node) (*Session, error) {
	s := NewSession(db, before, after)
	if err := s.Rewrite(before); err != nil {
		return nil, err
	}
	if err := s.Rewrite(after); err != nil {
		return nil, err
	}
	return s, nil
}

// Rewrite canonicalizes one tree in place.
//
// Description:
//
//	Every identifier leaf and every int, float, string, and templated
//	string literal is replaced by the session's placeholder for its value,
//	unless the value is idiom-listed. Literals are spliced in as plain
//	identifier leaves, so a normalized string literal renders as the bare
//	token STR_0. Bytes and imaginary literals pass through untouched, as
//	do the boolean/None/Ellipsis sentinels (they are distinct node kinds
//	and are never visited). There is no failure mode at this stage: every
//	value either maps to a placeholder or passes through.
func (s *Session) Rewrite(root *ast.Node) error {
	w := walker.New()
	w.Handle("identifier", func(w *walker.Walker, n *ast.Node) {
		s.rewriteIdentifier(n)
	})
	w.Handle("integer", func(w *walker.Walker, n *ast.Node) {
		s.rewriteInt(n)
	})
	w.Handle("float", func(w *walker.Walker, n *ast.Node) {
		s.rewriteFloat(n)
	})
	w.Handle("string", func(w *walker.Walker, n *ast.Node) {
		s.rewriteString(n)
	})
	w.Handle("template_string", func(w *walker.Walker, n *ast.Node) {
		s.rewriteTemplate(n, n.Value)
	})
	w.Handle("concatenated_string", func(w *walker.Walker, n *ast.Node) {
		s.rewriteConcatenated(n)
	})
	return w.Walk(root)
}

func (s *Session) rewriteIdentifier(n *ast.Node) {
	if s.db.ContainsIdentifier(n.Value) {
		return
	}
	placeholder, ok := s.identifiers[n.Value]
	if !ok {
		placeholder = s.placeholder("IDENTIFIER", &s.nextIdentifier)
		s.identifiers[n.Value] = placeholder
	}
	n.Value = placeholder
}

func (s *Session) rewriteInt(n *ast.Node) {
	if ast.IsImaginaryLiteral(n.Value) {
		return
	}
	value, ok := ast.ParseIntLiteral(n.Value)
	if !ok {
		return
	}
	if s.db.ContainsInt(value) {
		return
	}
	key := value.String()
	placeholder, seen := s.ints[key]
	if !seen {
		placeholder = s.placeholder("INT", &s.nextInt)
		s.ints[key] = placeholder
	}
	spliceIdentifier(n, placeholder)
}

func (s *Session) rewriteFloat(n *ast.Node) {
	if ast.IsImaginaryLiteral(n.Value) {
		return
	}
	value, ok := ast.ParseFloatLiteral(n.Value)
	if !ok {
		return
	}
	if s.db.ContainsFloat(value) {
		return
	}
	placeholder, seen := s.floats[value]
	if !seen {
		placeholder = s.placeholder("FLOAT", &s.nextFloat)
		s.floats[value] = placeholder
	}
	spliceIdentifier(n, placeholder)
}

func (s *Session) rewriteString(n *ast.Node) {
	if ast.IsBytesLiteral(n.Value) {
		return
	}
	decoded, err := ast.DecodeString(n.Value)
	if err != nil {
		return
	}
	if s.db.ContainsString(decoded) {
		return
	}
	placeholder, seen := s.strings[decoded]
	if !seen {
		placeholder = s.placeholder("STR", &s.nextString)
		s.strings[decoded] = placeholder
	}
	spliceIdentifier(n, placeholder)
}

func (s *Session) rewriteTemplate(n *ast.Node, key string) {
	placeholder, seen := s.templates[key]
	if !seen {
		placeholder = s.placeholder("F_STR", &s.nextTemplate)
		s.templates[key] = placeholder
	}
	spliceIdentifier(n, placeholder)
}

// rewriteConcatenated folds an implicit string concatenation the way the
// language runtime folds it: the whole node is one value. A concatenation
// with a templated part is itself templated (keyed by its serialized
// form); a bytes concatenation passes through; otherwise the node is one
// string value. The handler never descends, so the parts are not rewritten
// individually — two bare identifier tokens side by side would not be
// valid source.
func (s *Session) rewriteConcatenated(n *ast.Node) {
	hasTemplate := false
	for _, part := range n.Children {
		switch {
		case part.Kind == "template_string":
			hasTemplate = true
		case part.Kind == "string" && ast.IsBytesLiteral(part.Value):
			return
		}
	}
	if hasTemplate {
		s.rewriteTemplate(n, serializeParts(n))
		return
	}

	decoded := ""
	for _, part := range n.Children {
		value, err := ast.DecodeString(part.Value)
		if err != nil {
			return
		}
		decoded += value
	}
	if s.db.ContainsString(decoded) {
		return
	}
	placeholder, seen := s.strings[decoded]
	if !seen {
		placeholder = s.placeholder("STR", &s.nextString)
		s.strings[decoded] = placeholder
	}
	spliceIdentifier(n, placeholder)
}

func serializeParts(n *ast.Node) string {
	parts := make([]string, 0, len(n.Children))
	for _, part := range n.Children {
		parts = append(parts, part.Value)
	}
	return strings.Join(parts, " ")
}

// spliceIdentifier turns a literal node into a bare identifier leaf
// carrying the placeholder name. The source span is kept for debugging.
func spliceIdentifier(n *ast.Node, name string) {
	n.Kind = "identifier"
	n.Value = name
	n.Named = true
	n.Children = nil
}
