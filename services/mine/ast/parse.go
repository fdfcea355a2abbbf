// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxSourceSize caps how much source a single Parse call accepts.
// Change-entry payloads are single files; anything larger than this is
// almost certainly generated code that the pipeline should not train on.
const DefaultMaxSourceSize = 10 * 1024 * 1024

var (
	// ErrSyntax reports that the grammar could not produce an error-free
	// tree. Covers malformed source and foreign dialects (Python 2 prints,
	// for example). Callers skip the offending entry and continue.
	ErrSyntax = errors.New("source does not parse")

	// ErrSourceTooLarge reports that the input exceeds the configured size cap.
	ErrSourceTooLarge = errors.New("source exceeds maximum size")

	// ErrInvalidEncoding reports non-UTF-8 input.
	ErrInvalidEncoding = errors.New("source is not valid UTF-8")
)

// Parser converts Python source text into the generic tree form.
//
// Description:
//
//	Parser wraps the tree-sitter Python grammar. Each Parse call builds a
//	fresh tree-sitter parser because tree-sitter parser instances are not
//	safe for concurrent use; the Parser value itself only holds
//	configuration and is safe to share.
//
// Inputs: raw source bytes (must be UTF-8).
// Outputs: a *Node tree in which every source token is a leaf, or an error.
type Parser struct {
	maxSourceSize int
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxSourceSize overrides DefaultMaxSourceSize. Values <= 0 are ignored.
func WithMaxSourceSize(n int) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.maxSourceSize = n
		}
	}
}

// NewParser builds a Parser with the supplied options.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{maxSourceSize: DefaultMaxSourceSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse is shorthand for NewParser().Parse for callers that need no options.
func Parse(ctx context.Context, src []byte) (*Node, error) {
	return NewParser().Parse(ctx, src)
}

// Parse converts src into a generic tree.
//
// Description:
//
//	Runs the Python grammar over src and converts the resulting concrete
//	syntax tree into *Node form. Comments, line continuations, and
//	statement-separator semicolons are dropped during conversion; string
//	literals are collapsed to single leaves (see atomize). The conversion
//	refuses trees containing ERROR or missing nodes so that downstream
//	passes never see partially parsed structure.
//
// Outputs: the module root node, or an error wrapping ErrSyntax,
// ErrSourceTooLarge, or ErrInvalidEncoding.
func (p *Parser) Parse(ctx context.Context, src []byte) (*Node, error) {
	start := time.Now()
	ctx, span := startParseSpan(ctx, len(src))
	defer span.End()

	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("parse canceled before start: %w", err)
		recordParse(start, err)
		return nil, err
	}
	if len(src) > p.maxSourceSize {
		err := fmt.Errorf("%w: %d bytes (limit %d)", ErrSourceTooLarge, len(src), p.maxSourceSize)
		recordParse(start, err)
		return nil, err
	}
	if !utf8.Valid(src) {
		recordParse(start, ErrInvalidEncoding)
		return nil, ErrInvalidEncoding
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		err = fmt.Errorf("running grammar: %w", err)
		recordParse(start, err)
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		err := syntaxError(root)
		recordParse(start, err)
		return nil, err
	}

	converted := convert(root, src)
	setParseSpanResult(span, converted.CountNodes())
	recordParse(start, nil)
	return converted, nil
}

// syntaxError locates the first ERROR node for the diagnostic message.
func syntaxError(root *sitter.Node) error {
	if errNode := findErrorNode(root); errNode != nil {
		point := errNode.StartPoint()
		return fmt.Errorf("%w: error at line %d, column %d",
			ErrSyntax, point.Row+1, point.Column+1)
	}
	return ErrSyntax
}

func findErrorNode(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := findErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// convert maps one tree-sitter node (and its subtree) to the generic form.
//
// Dropped outright: comment and line_continuation extras (comments are not
// preserved by the pipeline) and anonymous ";" separators (the renderer
// places every statement on its own line, so separators carry no
// information). String literals are atomized; everything else converts
// child-for-child.
func convert(node *sitter.Node, src []byte) *Node {
	out := &Node{
		Kind:  node.Type(),
		Named: node.IsNamed(),
		Span: Span{
			Offset: int(node.StartByte()),
			Length: int(node.EndByte() - node.StartByte()),
		},
	}

	if node.Type() == "string" {
		return atomize(node, src, out)
	}

	childCount := int(node.ChildCount())
	if childCount == 0 {
		out.Value = node.Content(src)
		return out
	}

	out.Children = make([]*Node, 0, childCount)
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		switch child.Type() {
		case "comment", "line_continuation", ";":
			continue
		}
		out.Children = append(out.Children, convert(child, src))
	}
	// An interior node can lose all children to the drop rules (a block
	// holding nothing but comments cannot, because the grammar requires a
	// statement, so this only affects nodes that render to nothing anyway).
	if len(out.Children) == 0 {
		out.Value = node.Content(src)
	}
	return out
}

// atomize collapses a string literal to a single leaf carrying the raw
// literal text (prefix, quotes, and body). Literals embedding interpolated
// expressions become kind "template_string" so the canonicalizer can treat
// them wholesale; plain literals keep kind "string".
func atomize(node *sitter.Node, src []byte, out *Node) *Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "interpolation" {
			out.Kind = "template_string"
			break
		}
	}
	out.Value = node.Content(src)
	out.Children = nil
	return out
}
