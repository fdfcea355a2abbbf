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
	"strings"
	"sync"
	"testing"
)

func parseSource(t *testing.T, source string) *Node {
	t.Helper()
	root, err := Parse(context.Background(), []byte(source))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return root
}

// findKind returns the first node of the given kind in depth-first order.
func findKind(n *Node, kind string) *Node {
	if n.Kind == kind {
		return n
	}
	for _, c := range n.Children {
		if found := findKind(c, kind); found != nil {
			return found
		}
	}
	return nil
}

func countKind(n *Node, kind string) int {
	count := 0
	if n.Kind == kind {
		count++
	}
	for _, c := range n.Children {
		count += countKind(c, kind)
	}
	return count
}

func TestParseSimpleAssignment(t *testing.T) {
	root := parseSource(t, "x = 1\n")

	if root.Kind != "module" {
		t.Fatalf("root kind = %q, want module", root.Kind)
	}
	if len(root.Children) != 1 {
		t.Fatalf("module has %d children, want 1", len(root.Children))
	}

	assign := findKind(root, "assignment")
	if assign == nil {
		t.Fatal("assignment not found")
	}
	if len(assign.Children) != 3 {
		t.Fatalf("assignment has %d children, want 3", len(assign.Children))
	}

	name := assign.Children[0]
	if name.Kind != "identifier" || name.Value != "x" || !name.Named {
		t.Errorf("first child = %s named=%v, want identifier(\"x\") named", name, name.Named)
	}
	eq := assign.Children[1]
	if eq.Kind != "=" || eq.Named {
		t.Errorf("second child = %s named=%v, want anonymous \"=\"", eq, eq.Named)
	}
	value := assign.Children[2]
	if value.Kind != "integer" || value.Value != "1" {
		t.Errorf("third child = %s, want integer(\"1\")", value)
	}
}

func TestParseSpans(t *testing.T) {
	root := parseSource(t, "x = 10\n")

	name := findKind(root, "identifier")
	if name.Span.Offset != 0 || name.Span.Length != 1 {
		t.Errorf("identifier span = %+v, want {0 1}", name.Span)
	}
	value := findKind(root, "integer")
	if value.Span.Offset != 4 || value.Span.Length != 2 {
		t.Errorf("integer span = %+v, want {4 2}", value.Span)
	}
}

func TestParseDropsComments(t *testing.T) {
	source := "# leading\nx = 1  # trailing\ny = 2\n"
	root := parseSource(t, source)

	if n := countKind(root, "comment"); n != 0 {
		t.Errorf("tree contains %d comment nodes, want 0", n)
	}
	if len(root.Children) != 2 {
		t.Errorf("module has %d children, want 2", len(root.Children))
	}
}

func TestParseDropsSemicolons(t *testing.T) {
	root := parseSource(t, "a = 1; b = 2\n")

	if n := countKind(root, ";"); n != 0 {
		t.Errorf("tree contains %d \";\" nodes, want 0", n)
	}
	if len(root.Children) != 2 {
		t.Fatalf("module has %d children, want 2", len(root.Children))
	}
	for i, c := range root.Children {
		if c.Kind != "expression_statement" {
			t.Errorf("child %d kind = %q, want expression_statement", i, c.Kind)
		}
	}
}

func TestParseDropsLineContinuations(t *testing.T) {
	root := parseSource(t, "total = 1 + \\\n    2\n")

	if n := countKind(root, "line_continuation"); n != 0 {
		t.Errorf("tree contains %d line_continuation nodes, want 0", n)
	}
	if got := Render(root); got != "total = 1 + 2\n" {
		t.Errorf("Render = %q, want %q", got, "total = 1 + 2\n")
	}
}

func TestParseAtomizesStrings(t *testing.T) {
	root := parseSource(t, "s = 'hi'\n")

	str := findKind(root, "string")
	if str == nil {
		t.Fatal("string not found")
	}
	if !str.IsLeaf() {
		t.Errorf("string has %d children, want leaf", len(str.Children))
	}
	if str.Value != "'hi'" {
		t.Errorf("string value = %q, want %q", str.Value, "'hi'")
	}
	if str.Span.Offset != 4 || str.Span.Length != 4 {
		t.Errorf("string span = %+v, want {4 4}", str.Span)
	}
}

func TestParseFStringBecomesTemplate(t *testing.T) {
	root := parseSource(t, "v = f\"{x}!\"\n")

	tpl := findKind(root, "template_string")
	if tpl == nil {
		t.Fatal("template_string not found")
	}
	if !tpl.IsLeaf() {
		t.Errorf("template_string has %d children, want leaf", len(tpl.Children))
	}
	if tpl.Value != "f\"{x}!\"" {
		t.Errorf("template_string value = %q, want %q", tpl.Value, "f\"{x}!\"")
	}
	if n := countKind(root, "interpolation"); n != 0 {
		t.Errorf("tree contains %d interpolation nodes, want 0", n)
	}
}

func TestParseFStringWithoutInterpolationStaysString(t *testing.T) {
	root := parseSource(t, "w = f\"plain\"\n")

	if tpl := findKind(root, "template_string"); tpl != nil {
		t.Errorf("found template_string %s, want plain string", tpl)
	}
	str := findKind(root, "string")
	if str == nil {
		t.Fatal("string not found")
	}
	if str.Value != "f\"plain\"" {
		t.Errorf("string value = %q, want %q", str.Value, "f\"plain\"")
	}
}

func TestParseConcatenatedString(t *testing.T) {
	root := parseSource(t, "msg = 'a' 'b'\n")

	concat := findKind(root, "concatenated_string")
	if concat == nil {
		t.Fatal("concatenated_string not found")
	}
	if len(concat.Children) != 2 {
		t.Fatalf("concatenated_string has %d children, want 2", len(concat.Children))
	}
	for i, want := range []string{"'a'", "'b'"} {
		part := concat.Children[i]
		if part.Kind != "string" || part.Value != want {
			t.Errorf("part %d = %s, want string(%q)", i, part, want)
		}
	}
}

func TestParseSyntaxError(t *testing.T) {
	for _, source := range []string{
		"def broken(:\n",
		"x = (1\n",
		"class :\n    pass\n",
	} {
		_, err := Parse(context.Background(), []byte(source))
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q): err = %v, want ErrSyntax", source, err)
		}
	}
}

func TestParseInvalidEncoding(t *testing.T) {
	_, err := Parse(context.Background(), []byte{0xff, 0xfe, 'x'})
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("err = %v, want ErrInvalidEncoding", err)
	}
}

func TestParseSourceTooLarge(t *testing.T) {
	parser := NewParser(WithMaxSourceSize(16))
	_, err := parser.Parse(context.Background(), []byte("x = 'more than sixteen bytes'\n"))
	if !errors.Is(err, ErrSourceTooLarge) {
		t.Errorf("err = %v, want ErrSourceTooLarge", err)
	}
}

func TestParseIgnoresNonPositiveSizeOption(t *testing.T) {
	parser := NewParser(WithMaxSourceSize(0), WithMaxSourceSize(-1))
	if _, err := parser.Parse(context.Background(), []byte("x = 1\n")); err != nil {
		t.Errorf("Parse failed: %v", err)
	}
}

func TestParseEmptySource(t *testing.T) {
	root := parseSource(t, "")
	if root.Kind != "module" {
		t.Errorf("root kind = %q, want module", root.Kind)
	}
	if got := Render(root); got != "" {
		t.Errorf("Render = %q, want empty", got)
	}
}

func TestParseCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, []byte("def f():\n    pass\n"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParseConcurrent(t *testing.T) {
	parser := NewParser()
	sources := []string{
		"def func1():\n    pass\n",
		"class Class1:\n    pass\n",
		"async def async1():\n    pass\n",
		"import os\n",
		"def func2(x: int) -> str:\n    return str(x)\n",
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(sources)*10)
	for i := 0; i < 10; i++ {
		for _, src := range sources {
			wg.Add(1)
			go func(source string) {
				defer wg.Done()
				if _, err := parser.Parse(context.Background(), []byte(source)); err != nil {
					errs <- err
				}
			}(src)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent parse error: %v", err)
	}
}

func TestCountNodes(t *testing.T) {
	root := parseSource(t, "x = 1\n")
	// module, expression_statement, assignment, identifier, "=", integer.
	if got := root.CountNodes(); got != 6 {
		t.Errorf("CountNodes = %d, want 6", got)
	}
}

func TestNewPassStatement(t *testing.T) {
	pass := NewPassStatement()
	if pass.Kind != "pass_statement" || !pass.Named {
		t.Errorf("node = %s named=%v, want named pass_statement", pass, pass.Named)
	}
	if got := Render(pass); got != "pass\n" {
		t.Errorf("Render = %q, want %q", got, "pass\n")
	}
}

func TestDumpShowsStructure(t *testing.T) {
	root := parseSource(t, "x = 1\n")
	dump := root.Dump()
	for _, want := range []string{"module", "assignment", "identifier(\"x\")", "integer(\"1\")"} {
		if !strings.Contains(dump, want) {
			t.Errorf("Dump missing %q:\n%s", want, dump)
		}
	}
}
