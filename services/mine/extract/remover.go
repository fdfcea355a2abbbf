// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extract

import (
	"github.com/astmine/astmine/services/mine/ast"
	"github.com/astmine/astmine/services/mine/walker"
)

// RemoveLiteralStatements deletes, in place, every statement whose sole
// effect is evaluating and discarding a literal.
//
// Description:
//
//	Applies to every block in the tree (function bodies, loop bodies,
//	else and except and finally suites). Docstrings are the main
//	casualty, but any bare string, bytes, numeric, or constant-folded
//	concatenation statement goes too. Boolean, None, and ellipsis
//	statements stay, since bare sentinels can carry marker meaning. A
//	block left empty gets a single pass statement so the tree still
//	renders to valid source. The module top level is not a block and is
//	left alone.
func RemoveLiteralStatements(root *ast.Node) {
	w := walker.New()
	w.Handle("block", func(w *walker.Walker, n *ast.Node) {
		kept := n.Children[:0]
		for _, stmt := range n.Children {
			if !literalStatement(stmt) {
				kept = append(kept, stmt)
			}
		}
		if len(kept) == 0 {
			kept = append(kept, ast.NewPassStatement())
		}
		n.Children = kept
		w.Descend(n)
	})
	// A fresh walker cannot already be running.
	_ = w.Walk(root)
}

// literalStatement reports whether stmt is an expression statement whose
// only child is a literal. A concatenation containing an interpolated
// part is an expression, not a constant, and does not qualify; neither
// does a unary-wrapped number.
func literalStatement(stmt *ast.Node) bool {
	if stmt.Kind != "expression_statement" || len(stmt.Children) != 1 {
		return false
	}
	switch child := stmt.Children[0]; child.Kind {
	case "string", "integer", "float":
		return true
	case "concatenated_string":
		for _, part := range child.Children {
			if part.Kind == "template_string" {
				return false
			}
		}
		return true
	}
	return false
}
