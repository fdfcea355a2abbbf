// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tokens flattens a statement tree into a single line of
// whitespace-joined tokens with explicit structure markers.
package tokens

import (
	"errors"
	"fmt"
	"strings"

	"github.com/astmine/astmine/services/mine/ast"
)

// Structure markers. Line breaks and indentation changes survive the
// flattening as these tokens, mirroring how a lexer reports NEWLINE,
// INDENT, and DEDENT.
const (
	NewlineMarker = "$NEWLINE"
	IndentMarker  = "$INDENT"
	DedentMarker  = "$DEDENT"
)

var (
	// ErrTokenBudget reports that the projection exceeds the configured
	// token budget. Callers discard the pair whole; truncating would
	// hand a learner half a function.
	ErrTokenBudget = errors.New("too many tokens")

	// ErrRawLineBreak reports a token carrying a literal line break,
	// which would smuggle a second line into the one-line form. Bytes
	// literals with triple quotes are the usual source.
	ErrRawLineBreak = errors.New("raw line break in token")
)

// Project flattens a module or single statement subtree to one line.
//
// Description:
//
//	Tokens are emitted in source order and joined with single spaces;
//	statement boundaries and block depth changes become marker tokens.
//	The marker count participates in the budget. A budget of zero or
//	less means unlimited.
//
// Outputs: the one-line token string, or ErrTokenBudget / ErrRawLineBreak.
func Project(root *ast.Node, budget int) (string, error) {
	var p projector
	if root.Kind == "module" {
		for _, c := range root.Children {
			p.statement(c)
		}
	} else {
		p.statement(root)
	}

	for _, token := range p.tokens {
		if strings.ContainsAny(token, "\n\r") {
			return "", fmt.Errorf("%w: %q", ErrRawLineBreak, token)
		}
	}
	if budget > 0 && len(p.tokens) > budget {
		return "", fmt.Errorf("%w: %d over budget %d", ErrTokenBudget, len(p.tokens), budget)
	}
	return strings.Join(p.tokens, " "), nil
}

type projector struct {
	tokens []string
}

// statement emits one statement's tokens. Simple statements close with a
// newline marker; compound ones already end on the dedent of their last
// block.
func (p *projector) statement(n *ast.Node) {
	p.inline(n)
	if count := len(p.tokens); count == 0 || p.tokens[count-1] != DedentMarker {
		p.tokens = append(p.tokens, NewlineMarker)
	}
}

func (p *projector) inline(n *ast.Node) {
	if n.IsLeaf() {
		p.emit(n)
		return
	}
	for _, c := range n.Children {
		switch {
		case c.Kind == "block":
			p.tokens = append(p.tokens, NewlineMarker, IndentMarker)
			for _, s := range c.Children {
				p.statement(s)
			}
			p.tokens = append(p.tokens, DedentMarker)
		case c.Kind == "decorator":
			p.inline(c)
			p.tokens = append(p.tokens, NewlineMarker)
		case c.IsLeaf():
			p.emit(c)
		default:
			p.inline(c)
		}
	}
}

func (p *projector) emit(n *ast.Node) {
	text := n.Value
	if text == "" {
		text = n.Kind
	}
	p.tokens = append(p.tokens, text)
}
