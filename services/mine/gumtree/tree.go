// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gumtree

import (
	"encoding/binary"
	"hash/fnv"
)

// Tree is the intermediate form the differ matches on: a kind label, an
// optional token text, and a byte span into the snippet it came from.
// It is deliberately lighter than ast.Node (pure-syntax tokens are gone)
// and carries the parent links and cached metrics the matcher needs.
type Tree struct {
	Type     string
	Label    string
	Pos      int
	Length   int
	Children []*Tree

	parent *Tree
	height int
	size   int
	hash   uint64
}

// Parent returns the node's parent, nil for a root.
func (t *Tree) Parent() *Tree { return t.parent }

// IsLeaf reports whether the node has no children.
func (t *Tree) IsLeaf() bool { return len(t.Children) == 0 }

// Height is 1 for a leaf and one more than the tallest child otherwise.
func (t *Tree) Height() int { return t.height }

// Size is the number of nodes in the subtree, including the node itself.
func (t *Tree) Size() int { return t.size }

func (t *Tree) isRoot() bool { return t.parent == nil }

func (t *Tree) positionInParent() int {
	if t.parent == nil {
		return -1
	}
	for i, c := range t.parent.Children {
		if c == t {
			return i
		}
	}
	return -1
}

// finalize wires parent pointers and computes height, size, and the
// structural hash, bottom-up.
func (t *Tree) finalize() {
	t.height = 1
	t.size = 1
	h := fnv.New64a()
	h.Write([]byte(t.Type))
	h.Write([]byte{0})
	h.Write([]byte(t.Label))
	for _, c := range t.Children {
		c.parent = t
		c.finalize()
		if c.height+1 > t.height {
			t.height = c.height + 1
		}
		t.size += c.size
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], c.hash)
		h.Write(buf[:])
	}
	t.hash = h.Sum64()
}

// preorder appends the subtree's nodes in preorder to out.
func (t *Tree) preorder(out []*Tree) []*Tree {
	out = append(out, t)
	for _, c := range t.Children {
		out = c.preorder(out)
	}
	return out
}

// postorder appends the subtree's nodes in postorder to out.
func (t *Tree) postorder(out []*Tree) []*Tree {
	for _, c := range t.Children {
		out = c.postorder(out)
	}
	return append(out, t)
}

// breadthFirst returns the subtree's nodes level by level.
func (t *Tree) breadthFirst() []*Tree {
	out := []*Tree{t}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].Children...)
	}
	return out
}

// descendants returns the subtree's nodes excluding t itself.
func (t *Tree) descendants() []*Tree {
	out := make([]*Tree, 0, t.size-1)
	for _, c := range t.Children {
		out = c.preorder(out)
	}
	return out
}

// isomorphic reports whether two subtrees match node for node on type,
// label, and shape. The cached hashes reject almost everything early;
// the structural walk is the ground truth.
func isomorphic(a, b *Tree) bool {
	if a.hash != b.hash {
		return false
	}
	if a.Type != b.Type || a.Label != b.Label || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !isomorphic(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// deepCopy clones the subtree. Parent links and metrics are rebuilt on
// the clone; orig fills the clone-to-original index as it goes.
func (t *Tree) deepCopy(orig map[*Tree]*Tree) *Tree {
	cp := &Tree{
		Type:   t.Type,
		Label:  t.Label,
		Pos:    t.Pos,
		Length: t.Length,
		height: t.height,
		size:   t.size,
		hash:   t.hash,
	}
	orig[cp] = t
	if len(t.Children) > 0 {
		cp.Children = make([]*Tree, len(t.Children))
		for i, c := range t.Children {
			cc := c.deepCopy(orig)
			cc.parent = cp
			cp.Children[i] = cc
		}
	}
	return cp
}

// Mappings is the bidirectional node match between a source and a
// destination tree.
type Mappings struct {
	srcToDst map[*Tree]*Tree
	dstToSrc map[*Tree]*Tree
}

func newMappings() *Mappings {
	return &Mappings{
		srcToDst: make(map[*Tree]*Tree),
		dstToSrc: make(map[*Tree]*Tree),
	}
}

func (m *Mappings) put(src, dst *Tree) {
	m.srcToDst[src] = dst
	m.dstToSrc[dst] = src
}

// putTrees maps two isomorphic subtrees node for node.
func (m *Mappings) putTrees(src, dst *Tree) {
	m.put(src, dst)
	for i := range src.Children {
		m.putTrees(src.Children[i], dst.Children[i])
	}
}

// HasSrc reports whether the source node is mapped.
func (m *Mappings) HasSrc(src *Tree) bool {
	_, ok := m.srcToDst[src]
	return ok
}

// HasDst reports whether the destination node is mapped.
func (m *Mappings) HasDst(dst *Tree) bool {
	_, ok := m.dstToSrc[dst]
	return ok
}

// Dst returns the partner of a source node, nil when unmapped.
func (m *Mappings) Dst(src *Tree) *Tree { return m.srcToDst[src] }

// Src returns the partner of a destination node, nil when unmapped.
func (m *Mappings) Src(dst *Tree) *Tree { return m.dstToSrc[dst] }

// Len reports the number of mapped pairs.
func (m *Mappings) Len() int { return len(m.srcToDst) }

// dice measures how much of two subtrees is already mapped into each
// other: twice the mapped descendant pairs over the total descendants.
func (m *Mappings) dice(src, dst *Tree) float64 {
	total := float64(src.size-1) + float64(dst.size-1)
	if total == 0 {
		return 0
	}
	within := make(map[*Tree]bool, dst.size-1)
	for _, d := range dst.descendants() {
		within[d] = true
	}
	common := 0
	for _, s := range src.descendants() {
		if partner, ok := m.srcToDst[s]; ok && within[partner] {
			common++
		}
	}
	return 2 * float64(common) / total
}
