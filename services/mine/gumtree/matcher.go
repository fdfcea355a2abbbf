// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gumtree

import "sort"

const (
	// minHeight keeps the top-down phase away from trivial subtrees;
	// single tokens match far too promiscuously to anchor on.
	minHeight = 2

	// minDice is the similarity floor for the bottom-up phase.
	minDice = 0.5
)

// matcher holds the state of one match run between two trees.
type matcher struct {
	src, dst *Tree
	mappings *Mappings
}

// match runs the two phases and returns the node mapping.
func match(src, dst *Tree) *Mappings {
	m := &matcher{src: src, dst: dst, mappings: newMappings()}
	m.topDown()
	m.bottomUp()
	return m.mappings
}

// candidate is one ambiguous isomorphic pair awaiting arbitration.
type candidate struct {
	src, dst *Tree
}

// topDown greedily maps the largest isomorphic subtrees first.
//
// Both trees feed a height-ordered worklist. Whenever the two lists
// expose subtrees of equal height, every isomorphic cross pair is
// recorded; pairs with a unique partner are mapped outright, ambiguous
// ones are deferred and arbitrated by the similarity of their parents.
// Unmatched subtrees are opened and their children rejoin the lists.
func (m *matcher) topDown() {
	var ambiguous []candidate

	srcQueue := newHeightQueue(m.src)
	dstQueue := newHeightQueue(m.dst)

	for srcQueue.peekHeight() >= minHeight && dstQueue.peekHeight() >= minHeight {
		if srcQueue.peekHeight() > dstQueue.peekHeight() {
			srcQueue.openPopped()
			continue
		}
		if dstQueue.peekHeight() > srcQueue.peekHeight() {
			dstQueue.openPopped()
			continue
		}

		srcTrees := srcQueue.pop()
		dstTrees := dstQueue.pop()
		srcMatched := make([]bool, len(srcTrees))
		dstMatched := make([]bool, len(dstTrees))

		for i, s := range srcTrees {
			for j, d := range dstTrees {
				if !isomorphic(s, d) {
					continue
				}
				if m.uniquePair(s, d, srcTrees, dstTrees) {
					m.mappings.putTrees(s, d)
				} else {
					ambiguous = append(ambiguous, candidate{src: s, dst: d})
				}
				srcMatched[i] = true
				dstMatched[j] = true
			}
		}

		for i, s := range srcTrees {
			if !srcMatched[i] {
				srcQueue.open(s)
			}
		}
		for j, d := range dstTrees {
			if !dstMatched[j] {
				dstQueue.open(d)
			}
		}
	}

	m.arbitrate(ambiguous)
}

// uniquePair reports whether s and d are each other's only isomorphic
// partner within the current height band.
func (m *matcher) uniquePair(s, d *Tree, srcTrees, dstTrees []*Tree) bool {
	for _, other := range dstTrees {
		if other != d && isomorphic(s, other) {
			return false
		}
	}
	for _, other := range srcTrees {
		if other != s && isomorphic(other, d) {
			return false
		}
	}
	return true
}

// arbitrate settles ambiguous candidates best-first: highest parent
// similarity wins, position breaks ties, and every pair touching an
// already-settled node is discarded.
func (m *matcher) arbitrate(ambiguous []candidate) {
	if len(ambiguous) == 0 {
		return
	}
	score := make([]float64, len(ambiguous))
	for i, c := range ambiguous {
		if c.src.parent != nil && c.dst.parent != nil {
			score[i] = m.mappings.dice(c.src.parent, c.dst.parent)
		}
	}
	order := make([]int, len(ambiguous))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if score[order[a]] != score[order[b]] {
			return score[order[a]] > score[order[b]]
		}
		ca, cb := ambiguous[order[a]], ambiguous[order[b]]
		if ca.src.Pos != cb.src.Pos {
			return ca.src.Pos < cb.src.Pos
		}
		return ca.dst.Pos < cb.dst.Pos
	})
	for _, i := range order {
		c := ambiguous[i]
		if m.mappings.HasSrc(c.src) || m.mappings.HasDst(c.dst) {
			continue
		}
		m.mappings.putTrees(c.src, c.dst)
	}
}

// bottomUp matches interior containers whose children already found
// partners. Source nodes are visited in postorder; a node with no
// mapping gets the destination candidate sharing the most mapped
// descendants, provided the dice similarity clears minDice. The roots
// are always mapped to each other.
func (m *matcher) bottomUp() {
	for _, s := range m.src.postorder(nil) {
		if s.isRoot() {
			if !m.mappings.HasSrc(s) && !m.mappings.HasDst(m.dst) {
				m.mappings.put(s, m.dst)
				m.lastChance(s, m.dst)
			}
			break
		}
		if m.mappings.HasSrc(s) || s.IsLeaf() {
			continue
		}
		best := m.bestCandidate(s)
		if best == nil {
			continue
		}
		m.lastChance(s, best)
		m.mappings.put(s, best)
	}
}

// bestCandidate walks up from the partners of s's mapped descendants and
// keeps the unmapped same-type ancestor with the highest dice score.
func (m *matcher) bestCandidate(s *Tree) *Tree {
	seen := make(map[*Tree]bool)
	var best *Tree
	bestScore := minDice
	for _, d := range s.descendants() {
		partner := m.mappings.Dst(d)
		if partner == nil {
			continue
		}
		for p := partner.parent; p != nil && !seen[p]; p = p.parent {
			seen[p] = true
			if p.Type != s.Type || p.isRoot() || m.mappings.HasDst(p) {
				continue
			}
			if score := m.mappings.dice(s, p); score > bestScore {
				best, bestScore = p, score
			}
		}
	}
	return best
}

// lastChance recovers child pairs the phases missed: when a kind occurs
// exactly once among each side's unmapped children, those two children
// are mapped and examined the same way.
func (m *matcher) lastChance(s, d *Tree) {
	srcByType := make(map[string][]*Tree)
	for _, c := range s.Children {
		if !m.mappings.HasSrc(c) {
			srcByType[c.Type] = append(srcByType[c.Type], c)
		}
	}
	dstByType := make(map[string][]*Tree)
	for _, c := range d.Children {
		if !m.mappings.HasDst(c) {
			dstByType[c.Type] = append(dstByType[c.Type], c)
		}
	}
	for typ, srcOnes := range srcByType {
		dstOnes := dstByType[typ]
		if len(srcOnes) != 1 || len(dstOnes) != 1 {
			continue
		}
		m.mappings.put(srcOnes[0], dstOnes[0])
		m.lastChance(srcOnes[0], dstOnes[0])
	}
}

// heightQueue serves subtrees tallest first, preserving left-to-right
// order within one height band.
type heightQueue struct {
	trees []*Tree
}

func newHeightQueue(root *Tree) *heightQueue {
	return &heightQueue{trees: []*Tree{root}}
}

// peekHeight returns the tallest pending height, 0 when drained.
func (q *heightQueue) peekHeight() int {
	max := 0
	for _, t := range q.trees {
		if t.height > max {
			max = t.height
		}
	}
	return max
}

// pop removes and returns every subtree of the current tallest height.
func (q *heightQueue) pop() []*Tree {
	h := q.peekHeight()
	var out, rest []*Tree
	for _, t := range q.trees {
		if t.height == h {
			out = append(out, t)
		} else {
			rest = append(rest, t)
		}
	}
	q.trees = rest
	return out
}

// open pushes a subtree's children onto the queue.
func (q *heightQueue) open(t *Tree) {
	q.trees = append(q.trees, t.Children...)
}

// openPopped pops the current height band and opens every tree in it.
func (q *heightQueue) openPopped() {
	for _, t := range q.pop() {
		q.open(t)
	}
}
