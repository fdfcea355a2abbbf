// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extract pulls named function subtrees out of a parsed module and
// strips no-op literal statements. Both passes run on the walker.
package extract

import (
	"log/slog"

	"github.com/astmine/astmine/services/mine/ast"
	"github.com/astmine/astmine/services/mine/walker"
)

// FunctionMap is the qualified-name index of one file's extracted
// functions. Methods of top-level classes are keyed "ClassName.name";
// everything else is keyed by its bare name. Names() preserves source
// order, which downstream pairing relies on for deterministic output.
type FunctionMap struct {
	byName     map[string]*ast.Node
	names      []string
	duplicates int
}

// Get returns the subtree for one qualified name.
func (m *FunctionMap) Get(name string) (*ast.Node, bool) {
	node, ok := m.byName[name]
	return node, ok
}

// Names returns the qualified names in source order.
func (m *FunctionMap) Names() []string {
	return m.names
}

// Len reports how many functions were kept.
func (m *FunctionMap) Len() int {
	return len(m.names)
}

// Duplicates reports how many later definitions were dropped in favor of
// an earlier one with the same qualified name.
func (m *FunctionMap) Duplicates() int {
	return m.duplicates
}

// Functions collects the extractable definitions of a module.
//
// Description:
//
//	Collected are top-level function definitions and the methods of
//	top-level classes; a decorated definition is captured together with
//	its decorators. Functions nested in other functions, in nested
//	classes, or inside top-level compound statements (a def under an
//	if, say) are out of scope. On a duplicate qualified name the first
//	definition wins and the later one is dropped with a log event.
//
// Inputs: the module root and an optional logger (nil uses the default).
// Outputs: the function map; empty when the module defines nothing.
func Functions(root *ast.Node, logger *slog.Logger) *FunctionMap {
	if logger == nil {
		logger = slog.Default()
	}
	m := &FunctionMap{byName: make(map[string]*ast.Node)}

	w := walker.New()
	// Only the module's direct children are candidates, so nothing
	// descends except the module node itself.
	w.SetFallback(func(w *walker.Walker, n *ast.Node) {})
	w.Handle("module", func(w *walker.Walker, n *ast.Node) {
		w.Descend(n)
	})
	w.Handle("function_definition", func(w *walker.Walker, n *ast.Node) {
		m.record(definitionName(n), n, logger)
	})
	w.Handle("class_definition", func(w *walker.Walker, n *ast.Node) {
		m.recordMethods(n, logger)
	})
	w.Handle("decorated_definition", func(w *walker.Walker, n *ast.Node) {
		if fn := n.FirstChildOfKind("function_definition"); fn != nil {
			m.record(definitionName(fn), n, logger)
			return
		}
		if class := n.FirstChildOfKind("class_definition"); class != nil {
			m.recordMethods(class, logger)
		}
	})
	// A fresh walker cannot already be running.
	_ = w.Walk(root)
	return m
}

// recordMethods indexes the immediate function definitions of a class
// body under "ClassName.name". It looks exactly one level deep, so inner
// classes and functions nested in methods stay out of the map.
func (m *FunctionMap) recordMethods(class *ast.Node, logger *slog.Logger) {
	className := definitionName(class)
	body := class.FirstChildOfKind("block")
	if className == "" || body == nil {
		return
	}
	for _, stmt := range body.Children {
		switch stmt.Kind {
		case "function_definition":
			if name := definitionName(stmt); name != "" {
				m.record(className+"."+name, stmt, logger)
			}
		case "decorated_definition":
			if fn := stmt.FirstChildOfKind("function_definition"); fn != nil {
				if name := definitionName(fn); name != "" {
					m.record(className+"."+name, stmt, logger)
				}
			}
		}
	}
}

func (m *FunctionMap) record(name string, node *ast.Node, logger *slog.Logger) {
	if name == "" {
		return
	}
	if _, taken := m.byName[name]; taken {
		m.duplicates++
		logger.Warn("duplicate qualified name dropped",
			slog.String("name", name),
			slog.Int("offset", node.Span.Offset))
		return
	}
	m.byName[name] = node
	m.names = append(m.names, name)
}

// definitionName returns the name token of a function or class definition.
func definitionName(def *ast.Node) string {
	if id := def.FirstChildOfKind("identifier"); id != nil {
		return id.Value
	}
	return ""
}
