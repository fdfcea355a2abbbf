// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package walker implements a recursion-safe preorder traversal over the
// generic tree. The traversal runs on an explicit work stack instead of the
// call stack, so degenerate trees (kilobyte-long chained expressions nest
// thousands of levels deep) cannot overflow anything.
package walker

import (
	"errors"

	"github.com/astmine/astmine/services/mine/ast"
)

// ErrTraversalInProgress reports reentrant use of one Walker: a handler
// (or another goroutine) started Walk while a traversal was already
// running on the same instance. This is a programming error; callers are
// expected to fail fast rather than recover from it.
var ErrTraversalInProgress = errors.New("walker: traversal already in progress")

// Handler processes one visited node. Handlers that want the traversal to
// continue into the node's children must call w.Descend(n); the default
// handler does exactly that. Because Descend reads the child list at call
// time, a handler may rewrite n.Children first and the traversal will see
// the edited list — removed nodes are never visited.
type Handler func(w *Walker, n *ast.Node)

// Walker dispatches each visited node to a kind-specific handler, falling
// back to a default handler that descends into the children.
//
// Description:
//
//	Visit order is identical to naive recursive preorder: the node itself,
//	then each child subtree in original order. Handlers are registered per
//	kind before the first Walk. A Walker instance is not reentrant; Walk
//	returns ErrTraversalInProgress when misused. Distinct Walker instances
//	are independent.
//
// Thread Safety: one goroutine per Walker. Register and Walk must not be
// called concurrently.
type Walker struct {
	handlers map[string]Handler
	fallback Handler
	stack    []*ast.Node
	active   bool
}

// New builds a Walker whose default behavior is plain preorder descent.
func New() *Walker {
	return &Walker{
		handlers: make(map[string]Handler),
		fallback: func(w *Walker, n *ast.Node) { w.Descend(n) },
	}
}

// Handle registers fn for nodes of the given kind, replacing any previous
// registration.
func (w *Walker) Handle(kind string, fn Handler) {
	w.handlers[kind] = fn
}

// SetFallback replaces the default handler applied to unregistered kinds.
func (w *Walker) SetFallback(fn Handler) {
	if fn != nil {
		w.fallback = fn
	}
}

// Descend schedules n's children for visiting, preserving preorder: the
// children are pushed in reverse so the first child is popped next.
func (w *Walker) Descend(n *ast.Node) {
	for i := len(n.Children) - 1; i >= 0; i-- {
		w.stack = append(w.stack, n.Children[i])
	}
}

// Walk visits the subtree rooted at root in preorder.
//
// Outputs: ErrTraversalInProgress on reentrant use, nil otherwise.
func (w *Walker) Walk(root *ast.Node) error {
	if w.active {
		return ErrTraversalInProgress
	}
	w.active = true
	defer func() {
		w.active = false
		w.stack = w.stack[:0]
	}()

	w.stack = append(w.stack, root)
	for len(w.stack) > 0 {
		n := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		if handler, ok := w.handlers[n.Kind]; ok {
			handler(w, n)
		} else {
			w.fallback(w, n)
		}
	}
	return nil
}
