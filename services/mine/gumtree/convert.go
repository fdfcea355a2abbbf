// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gumtree

import (
	"context"
	"fmt"
	"unicode"

	"github.com/astmine/astmine/services/mine/ast"
)

// droppedPunctuation lists the single-character tokens whose presence is
// fully implied by the shape of the surrounding node.
var droppedPunctuation = map[string]bool{
	".": true, "(": true, ")": true, "[": true, "]": true, ":": true, ";": true,
}

// FromSnippet parses one snippet and converts it to the differ's tree form.
//
// Description:
//
//	The snippet is parsed from scratch, so the differ always sees the
//	raw code, not a rewritten tree. Interior nodes keep their grammar
//	kind; named leaves keep their text as label. Keyword tokens and the
//	bracketing punctuation are dropped since the interior node already
//	encodes them; remaining anonymous tokens (operators, commas) become
//	type "operator" with their text as label, so an operator swap shows
//	up as an update rather than a silent no-change.
//
// Outputs: the snippet's tree, or the parse error (callers skip the pair).
func FromSnippet(ctx context.Context, src []byte) (*Tree, error) {
	root, err := ast.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("converting snippet: %w", err)
	}
	tree := fromNode(root)
	tree.finalize()
	return tree, nil
}

// fromNode maps one ast node to a diff-tree node, nil when omitted.
func fromNode(n *ast.Node) *Tree {
	out := &Tree{
		Type:   n.Kind,
		Pos:    n.Span.Offset,
		Length: n.Span.Length,
	}
	if n.IsLeaf() {
		if !n.Named {
			if droppedPunctuation[n.Value] || alphabetic(n.Value) {
				return nil
			}
			out.Type = "operator"
		}
		out.Label = n.Value
		return out
	}
	for _, c := range n.Children {
		if child := fromNode(c); child != nil {
			out.Children = append(out.Children, child)
		}
	}
	return out
}

func alphabetic(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
