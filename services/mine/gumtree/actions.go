// Copyright (C) 2025 The astmine authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gumtree

import "fmt"

// ActionKind tags one edit-script operation.
type ActionKind string

const (
	InsertNode ActionKind = "insert-node"
	DeleteNode ActionKind = "delete-node"
	UpdateNode ActionKind = "update-node"
	MoveTree   ActionKind = "move-tree"
)

// Action is one step of the edit script.
//
// Node is the destination-tree node for an insert and the source-tree
// node otherwise. Parent and Pos locate the landing slot for inserts and
// moves; Value carries the new label for updates.
type Action struct {
	Kind   ActionKind
	Node   *Tree
	Parent *Tree
	Pos    int
	Value  string
}

// String renders one action for logs and the debug command.
func (a Action) String() string {
	subject := a.Node.Type
	if a.Node.Label != "" {
		subject = fmt.Sprintf("%s[%s]", a.Node.Type, a.Node.Label)
	}
	switch a.Kind {
	case InsertNode, MoveTree:
		return fmt.Sprintf("%s %s into %s at %d", a.Kind, subject, a.Parent.Type, a.Pos)
	case UpdateNode:
		return fmt.Sprintf("%s %s to [%s]", a.Kind, subject, a.Value)
	default:
		return fmt.Sprintf("%s %s", a.Kind, subject)
	}
}
