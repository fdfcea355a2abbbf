// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ast parses Python source into a generic mutable tree and renders
// that tree back to canonical source text. It is the only package in the
// pipeline that touches concrete syntax; everything downstream (extraction,
// literal removal, canonicalization, tokenization) operates on *Node values.
package ast

import (
	"fmt"
	"strings"
)

// Span locates a node in the original source buffer.
type Span struct {
	// Offset is the byte offset of the first byte of the node.
	Offset int
	// Length is the node's extent in bytes.
	Length int
}

// Node is one node of the generic tree.
//
// Description:
//
//	A Node is either an interior node (len(Children) > 0, Value empty) or a
//	leaf carrying the token text in Value. Every token of the original
//	source survives as a leaf, which is what makes Render a faithful
//	unparser. Kind is the grammar production name for named nodes
//	("function_definition", "identifier", ...) and the token text itself
//	for anonymous tokens ("def", "(", "=").
//
// Thread Safety: a tree is owned by one goroutine at a time. Rewriting
// passes mutate nodes in place; nothing in this package synchronizes access.
type Node struct {
	// Kind is the grammar kind tag.
	Kind string
	// Value is the leaf token text. Empty for interior nodes.
	Value string
	// Named reports whether the node is a named grammar production rather
	// than an anonymous token.
	Named bool
	// Span is the node's position in the source the tree was parsed from.
	// Synthesized nodes carry a zero Span.
	Span Span
	// Children are the node's ordered children.
	Children []*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// FirstChildOfKind returns the first direct child with the given kind, or nil.
func (n *Node) FirstChildOfKind(kind string) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// CountNodes returns the number of nodes in the subtree rooted at n,
// including n itself.
func (n *Node) CountNodes() int {
	count := 0
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return count
}

// String returns a compact single-line description for logs and test
// failures, e.g. `identifier("total")` or `function_definition[5]`.
func (n *Node) String() string {
	if n.IsLeaf() {
		if n.Value != "" && n.Value != n.Kind {
			return fmt.Sprintf("%s(%q)", n.Kind, n.Value)
		}
		return n.Kind
	}
	return fmt.Sprintf("%s[%d]", n.Kind, len(n.Children))
}

// Dump renders the subtree as an indented multi-line listing. Debug aid for
// tests and the CLI inspection commands; never used on the hot path.
func (n *Node) Dump() string {
	var b strings.Builder
	dumpInto(&b, n, 0)
	return b.String()
}

func dumpInto(b *strings.Builder, n *Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.String())
	b.WriteByte('\n')
	for _, c := range n.Children {
		dumpInto(b, c, depth+1)
	}
}

// NewPassStatement builds a synthetic no-op statement used when a rewriting
// pass would otherwise leave a block empty.
func NewPassStatement() *Node {
	return &Node{
		Kind:  "pass_statement",
		Named: true,
		Children: []*Node{
			{Kind: "pass", Value: "pass"},
		},
	}
}
