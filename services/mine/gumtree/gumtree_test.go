// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gumtree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astmine/astmine/services/mine/ast"
)

func snippetTree(t *testing.T, source string) *Tree {
	t.Helper()
	tree, err := FromSnippet(context.Background(), []byte(source))
	require.NoError(t, err)
	return tree
}

// typeLabels flattens a tree to "type" or "type[label]" strings in
// preorder, which keeps conversion expectations readable.
func typeLabels(tree *Tree) []string {
	var out []string
	for _, n := range tree.preorder(nil) {
		if n.Label == "" {
			out = append(out, n.Type)
		} else {
			out = append(out, n.Type+"["+n.Label+"]")
		}
	}
	return out
}

func TestFromSnippetDropsSyntaxTokens(t *testing.T) {
	tree := snippetTree(t, "def f(x):\n    return x\n")

	require.Equal(t, []string{
		"module",
		"function_definition",
		"identifier[f]",
		"parameters",
		"identifier[x]",
		"block",
		"return_statement",
		"identifier[x]",
	}, typeLabels(tree))
}

func TestFromSnippetKeepsOperatorsAndCommas(t *testing.T) {
	tree := snippetTree(t, "r = f(a, b)\n")

	require.Equal(t, []string{
		"module",
		"expression_statement",
		"assignment",
		"identifier[r]",
		"operator[=]",
		"call",
		"identifier[f]",
		"argument_list",
		"identifier[a]",
		"operator[,]",
		"identifier[b]",
	}, typeLabels(tree))
}

func TestFromSnippetAtomizesStrings(t *testing.T) {
	tree := snippetTree(t, "s = \"hi\"\n")
	labels := typeLabels(tree)
	require.Contains(t, labels, "string[\"hi\"]")
}

func TestFromSnippetSpans(t *testing.T) {
	tree := snippetTree(t, "x = 10\n")
	var integer *Tree
	for _, n := range tree.preorder(nil) {
		if n.Type == "integer" {
			integer = n
		}
	}
	require.NotNil(t, integer)
	require.Equal(t, 4, integer.Pos)
	require.Equal(t, 2, integer.Length)
}

func TestDiffIdenticalSnippets(t *testing.T) {
	source := []byte("def f(x):\n    return x\n")

	result, err := Diff(context.Background(), source, source)
	require.NoError(t, err)

	require.Empty(t, result.Actions)
	// Every one of the eight nodes is matched.
	require.Len(t, result.Matches, 8)
	require.Same(t, result.Src, result.Matches[0].Src)
	require.Same(t, result.Dst, result.Matches[0].Dst)
}

func TestDiffInsertedStatement(t *testing.T) {
	before := []byte("def f():\n    a = 1\n")
	after := []byte("def f():\n    a = 1\n    b = 2\n")

	result, err := Diff(context.Background(), before, after)
	require.NoError(t, err)

	require.Equal(t, []string{
		"insert-node", "insert-node", "insert-node", "insert-node", "insert-node",
	}, result.ActionKinds())

	// Breadth-first emission: the statement shell first, tokens last.
	require.Equal(t, "expression_statement", result.Actions[0].Node.Type)
	require.Equal(t, "block", result.Actions[0].Parent.Type)
	require.Equal(t, 1, result.Actions[0].Pos)
	require.Equal(t, "assignment", result.Actions[1].Node.Type)
	require.Equal(t, "identifier", result.Actions[2].Node.Type)
	require.Equal(t, "b", result.Actions[2].Node.Label)
	require.Equal(t, "operator", result.Actions[3].Node.Type)
	require.Equal(t, "integer", result.Actions[4].Node.Type)
}

func TestDiffDeletedStatement(t *testing.T) {
	before := []byte("def f():\n    a = 1\n    b = 2\n")
	after := []byte("def f():\n    a = 1\n")

	result, err := Diff(context.Background(), before, after)
	require.NoError(t, err)

	require.Equal(t, []string{
		"delete-node", "delete-node", "delete-node", "delete-node", "delete-node",
	}, result.ActionKinds())

	// Deletions run children first, so the statement shell goes last.
	require.Equal(t, "identifier", result.Actions[0].Node.Type)
	require.Equal(t, "b", result.Actions[0].Node.Label)
	require.Equal(t, "expression_statement", result.Actions[4].Node.Type)
}

func TestDiffRenamedIdentifier(t *testing.T) {
	before := []byte("def f(x):\n    return x + 1\n")
	after := []byte("def f(y):\n    return y + 1\n")

	result, err := Diff(context.Background(), before, after)
	require.NoError(t, err)

	// One update per occurrence, parameter first (breadth-first order).
	require.Equal(t, []string{"update-node", "update-node"}, result.ActionKinds())
	for _, action := range result.Actions {
		require.Equal(t, "identifier", action.Node.Type)
		require.Equal(t, "x", action.Node.Label)
		require.Equal(t, "y", action.Value)
	}
}

func TestDiffChangedLiteral(t *testing.T) {
	before := []byte("def f():\n    return 1\n")
	after := []byte("def f():\n    return 2\n")

	result, err := Diff(context.Background(), before, after)
	require.NoError(t, err)

	require.Equal(t, []string{"update-node"}, result.ActionKinds())
	require.Equal(t, "integer", result.Actions[0].Node.Type)
	require.Equal(t, "2", result.Actions[0].Value)
}

func TestDiffReorderedStatements(t *testing.T) {
	before := []byte("def f():\n    a = 1\n    b = 2\n")
	after := []byte("def f():\n    b = 2\n    a = 1\n")

	result, err := Diff(context.Background(), before, after)
	require.NoError(t, err)

	require.Equal(t, []string{"move-tree"}, result.ActionKinds())
	require.Equal(t, "expression_statement", result.Actions[0].Node.Type)
	require.Equal(t, "block", result.Actions[0].Parent.Type)
}

func TestDiffConvertFailure(t *testing.T) {
	valid := []byte("def f():\n    pass\n")
	broken := []byte("def f(:\n")

	_, err := Diff(context.Background(), broken, valid)
	require.Error(t, err)
	require.ErrorIs(t, err, ast.ErrSyntax)

	_, err = Diff(context.Background(), valid, broken)
	require.Error(t, err)
	require.ErrorIs(t, err, ast.ErrSyntax)
}

func TestDiffLeavesInputTreesReusable(t *testing.T) {
	before := []byte("def f():\n    a = 1\n")
	after := []byte("def f():\n    a = 1\n    b = 2\n")

	result, err := Diff(context.Background(), before, after)
	require.NoError(t, err)

	// The script generator works on a copy: the result trees still
	// mirror the snippets they came from.
	require.Len(t, result.Src.preorder(nil), 10)
	require.Len(t, result.Dst.preorder(nil), 15)
	require.Nil(t, result.Dst.Parent())
}

func TestMatchMapsUnchangedSubtreesWholesale(t *testing.T) {
	src := snippetTree(t, "def f():\n    total = a + b\n    return total\n")
	dst := snippetTree(t, "def f():\n    total = a + b\n    return total * 2\n")

	mappings := match(src, dst)

	// The untouched assignment statement matches node for node.
	var srcAssign *Tree
	for _, n := range src.preorder(nil) {
		if n.Type == "expression_statement" {
			srcAssign = n
			break
		}
	}
	require.NotNil(t, srcAssign)
	partner := mappings.Dst(srcAssign)
	require.NotNil(t, partner)
	require.Equal(t, "expression_statement", partner.Type)
	for _, d := range srcAssign.descendants() {
		require.True(t, mappings.HasSrc(d), "descendant %s[%s] unmapped", d.Type, d.Label)
	}
	// Roots always end up matched.
	require.Same(t, dst, mappings.Dst(src))
}
