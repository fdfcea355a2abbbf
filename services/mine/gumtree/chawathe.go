// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gumtree

// editScript derives the ordered action list that turns src into dst
// under the given mapping, following Chawathe's algorithm.
//
// The generator works on a private copy of the source tree so the
// matcher's trees stay untouched; emitted actions reference the original
// nodes. Destination nodes are visited breadth-first: unmapped ones
// become inserts, mapped ones are checked for label updates and parent
// moves, and each visited node's children are realigned with an LCS
// pass. Source nodes still unmapped afterwards are deleted in postorder,
// children before parents.
func editScript(src, dst *Tree, mappings *Mappings) []Action {
	g := &scriptGenerator{
		orig:       make(map[*Tree]*Tree),
		inOrderSrc: make(map[*Tree]bool),
		inOrderDst: make(map[*Tree]bool),
	}
	cpySrc := src.deepCopy(g.orig)

	g.mappings = newMappings()
	for s, d := range mappings.srcToDst {
		g.mappings.put(g.copyOf(cpySrc, src, s), d)
	}

	srcFake := &Tree{Children: []*Tree{cpySrc}}
	cpySrc.parent = srcFake
	dstFake := &Tree{Children: []*Tree{dst}}
	savedDstParent := dst.parent
	dst.parent = dstFake
	defer func() { dst.parent = savedDstParent }()
	g.mappings.put(srcFake, dstFake)

	for _, x := range dst.breadthFirst() {
		var w *Tree
		z := g.mappings.Src(x.parent)
		if !g.mappings.HasDst(x) {
			k := g.findPos(x)
			w = &Tree{Type: x.Type, Label: x.Label, Pos: x.Pos, Length: x.Length}
			g.orig[w] = x
			g.mappings.put(w, x)
			g.actions = append(g.actions, Action{
				Kind:   InsertNode,
				Node:   x,
				Parent: g.orig[z],
				Pos:    k,
			})
			insertChild(z, w, k)
		} else {
			w = g.mappings.Src(x)
			if x != dst {
				v := w.parent
				if w.Label != x.Label {
					g.actions = append(g.actions, Action{
						Kind:  UpdateNode,
						Node:  g.orig[w],
						Value: x.Label,
					})
					w.Label = x.Label
				}
				if z != v {
					k := g.findPos(x)
					g.actions = append(g.actions, Action{
						Kind:   MoveTree,
						Node:   g.orig[w],
						Parent: g.orig[z],
						Pos:    k,
					})
					removeChild(v, w)
					insertChild(z, w, k)
				}
			}
		}
		g.inOrderSrc[w] = true
		g.inOrderDst[x] = true
		g.alignChildren(w, x)
	}

	for _, w := range cpySrc.postorder(nil) {
		if !g.mappings.HasSrc(w) {
			g.actions = append(g.actions, Action{Kind: DeleteNode, Node: g.orig[w]})
		}
	}
	return g.actions
}

type scriptGenerator struct {
	mappings   *Mappings
	orig       map[*Tree]*Tree
	inOrderSrc map[*Tree]bool
	inOrderDst map[*Tree]bool
	actions    []Action
}

// copyOf translates an original source node to its counterpart in the
// working copy by following the identical paths of the two trees.
func (g *scriptGenerator) copyOf(cpyRoot, srcRoot, node *Tree) *Tree {
	var path []int
	for n := node; n != srcRoot; n = n.parent {
		path = append(path, n.positionInParent())
	}
	out := cpyRoot
	for i := len(path) - 1; i >= 0; i-- {
		out = out.Children[path[i]]
	}
	return out
}

// alignChildren re-orders the matched children of w under x's order,
// emitting a move for every pair outside the longest common subsequence.
func (g *scriptGenerator) alignChildren(w, x *Tree) {
	for _, c := range w.Children {
		delete(g.inOrderSrc, c)
	}
	for _, c := range x.Children {
		delete(g.inOrderDst, c)
	}

	var s1 []*Tree
	for _, c := range w.Children {
		if d := g.mappings.Dst(c); d != nil && d.parent == x {
			s1 = append(s1, c)
		}
	}
	var s2 []*Tree
	for _, c := range x.Children {
		if s := g.mappings.Src(c); s != nil && s.parent == w {
			s2 = append(s2, c)
		}
	}

	inLCS := make(map[*Tree]*Tree)
	for _, pair := range lcs(s1, s2, func(a, b *Tree) bool { return g.mappings.Dst(a) == b }) {
		g.inOrderSrc[pair[0]] = true
		g.inOrderDst[pair[1]] = true
		inLCS[pair[0]] = pair[1]
	}

	for _, b := range s2 {
		for _, a := range s1 {
			if g.mappings.Dst(a) != b || inLCS[a] == b {
				continue
			}
			k := g.findPos(b)
			g.actions = append(g.actions, Action{
				Kind:   MoveTree,
				Node:   g.orig[a],
				Parent: g.orig[w],
				Pos:    k,
			})
			removeChild(w, a)
			insertChild(w, a, k)
			g.inOrderSrc[a] = true
			g.inOrderDst[b] = true
		}
	}
}

// findPos computes where x's partner must land among its parent's
// children, counting only siblings already marked in order.
func (g *scriptGenerator) findPos(x *Tree) int {
	y := x.parent
	for _, c := range y.Children {
		if g.inOrderDst[c] {
			if c == x {
				return 0
			}
			break
		}
	}
	var rightmost *Tree
	for _, c := range y.Children {
		if c == x {
			break
		}
		if g.inOrderDst[c] {
			rightmost = c
		}
	}
	if rightmost == nil {
		return 0
	}
	u := g.mappings.Src(rightmost)
	return u.positionInParent() + 1
}

func insertChild(parent, child *Tree, pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(parent.Children) {
		pos = len(parent.Children)
	}
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[pos+1:], parent.Children[pos:])
	parent.Children[pos] = child
	child.parent = parent
}

func removeChild(parent, child *Tree) {
	for i, c := range parent.Children {
		if c == child {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			break
		}
	}
}

// lcs returns the longest common subsequence of a and b under eq, as
// aligned pairs.
func lcs(a, b []*Tree, eq func(*Tree, *Tree) bool) [][2]*Tree {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil
	}
	lengths := make([][]int, m+1)
	for i := range lengths {
		lengths[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if eq(a[i], b[j]) {
				lengths[i][j] = lengths[i+1][j+1] + 1
			} else if lengths[i+1][j] >= lengths[i][j+1] {
				lengths[i][j] = lengths[i+1][j]
			} else {
				lengths[i][j] = lengths[i][j+1]
			}
		}
	}
	var out [][2]*Tree
	for i, j := 0, 0; i < m && j < n; {
		switch {
		case eq(a[i], b[j]):
			out = append(out, [2]*Tree{a[i], b[j]})
			i++
			j++
		case lengths[i+1][j] >= lengths[i][j+1]:
			i++
		default:
			j++
		}
	}
	return out
}
