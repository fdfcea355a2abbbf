// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import "strings"

// Render emits canonical Python source for a module or a single statement
// subtree (a function definition, for example).
//
// Description:
//
//	The renderer walks the tree and re-emits every leaf token, one
//	statement per line, four spaces of indentation per block depth.
//	Token separation follows a small spacing table; the table is cosmetic
//	only, because Python's grammar is insensitive to horizontal whitespace
//	between tokens, so any tree that parsed will render to source that
//	parses again. Render is deterministic: rendering, re-parsing, and
//	rendering again yields byte-identical output.
//
// Inputs: a node of kind "module", or any single statement node.
// Outputs: source text terminated by a newline (empty for an empty module).
func Render(n *Node) string {
	var r renderer
	if n.Kind == "module" {
		for _, c := range n.Children {
			r.statement(c, 0)
		}
	} else {
		r.statement(n, 0)
	}
	return r.b.String()
}

const indentUnit = "    "

// noSpaceBefore lists tokens that attach to the preceding token.
var noSpaceBefore = map[string]bool{
	",": true, ":": true, ";": true, ")": true, "]": true, "}": true, ".": true,
}

// noSpaceAfter lists tokens the following token attaches to.
var noSpaceAfter = map[string]bool{
	"(": true, "[": true, "{": true, ".": true,
}

type renderer struct {
	b             strings.Builder
	atLineStart   bool
	pendingIndent int
	suppressSpace bool
}

// statement renders one statement-level node on its own line (or lines,
// for compound statements containing blocks).
func (r *renderer) statement(n *Node, indent int) {
	r.continuationAt(indent)
	r.inline(n, indent)
	r.endLine()
}

// inline walks a statement's subtree emitting tokens. Nested blocks recurse
// one indent level deeper; tokens following a block (an else clause, say)
// resume on a fresh line at the parent's indent.
func (r *renderer) inline(n *Node, indent int) {
	if n.IsLeaf() {
		r.token(n, nil)
		return
	}
	for _, c := range n.Children {
		switch {
		case c.Kind == "block":
			r.endLine()
			for _, s := range c.Children {
				r.statement(s, indent+1)
			}
			r.continuationAt(indent)
		case c.Kind == "decorator":
			r.inline(c, indent)
			r.endLine()
			r.continuationAt(indent)
		case c.IsLeaf():
			r.token(c, n)
		default:
			r.inline(c, indent)
		}
	}
}

func (r *renderer) continuationAt(indent int) {
	r.atLineStart = true
	r.pendingIndent = indent
	r.suppressSpace = false
}

func (r *renderer) endLine() {
	if !r.atLineStart {
		r.b.WriteByte('\n')
		r.atLineStart = true
	}
}

func (r *renderer) token(c *Node, parent *Node) {
	text := c.Value
	if text == "" {
		text = c.Kind
	}
	joined := tightBefore(text, parent)
	if r.atLineStart {
		for i := 0; i < r.pendingIndent; i++ {
			r.b.WriteString(indentUnit)
		}
		r.atLineStart = false
	} else if !r.suppressSpace && !joined && !noSpaceBefore[text] {
		r.b.WriteByte(' ')
	}
	r.b.WriteString(text)
	tightEquals := joined && text == "="
	r.suppressSpace = tightEquals || noSpaceAfter[text] || tightAfter(text, parent)
}

// tightBefore reports tokens that attach directly to the preceding token:
// the opening parenthesis of a call or parameter list, the bracket of a
// subscript, and the "=" of a default or keyword argument.
func tightBefore(text string, parent *Node) bool {
	if parent == nil {
		return false
	}
	switch text {
	case "(":
		return parent.Kind == "argument_list" || parent.Kind == "parameters"
	case "[":
		return parent.Kind == "subscript" || parent.Kind == "type_parameter"
	case "=":
		return parent.Kind == "default_parameter" || parent.Kind == "keyword_argument"
	}
	return false
}

// tightAfter reports operator tokens that attach directly to their operand.
func tightAfter(text string, parent *Node) bool {
	if parent == nil {
		return false
	}
	switch text {
	case "@":
		return parent.Kind == "decorator"
	case "-", "+", "~":
		return parent.Kind == "unary_operator"
	case "*":
		return parent.Kind == "list_splat" || parent.Kind == "list_splat_pattern"
	case "**":
		return parent.Kind == "dictionary_splat" || parent.Kind == "dictionary_splat_pattern"
	}
	return false
}
