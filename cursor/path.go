// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cursor provides read-only addressing of positions inside the
// hierarchy and the checkpointed-advance primitive that makes
// backtracking during comparison cheap.
//
// Positions are measured in atoms: every path node records the
// cumulative atom count at the moment it was entered, captured at
// append time. Entry positions are never recomputed from later state.
package cursor

import (
	"fmt"

	"github.com/AleutianAI/contextgraph/graph"
)

// Node is one position-annotated step of a descent: the child slot it
// occupies and the atom position at which it was entered.
type Node struct {
	Loc   graph.ChildLocation
	Entry graph.AtomPos
}

// RolePath is a sequence of nodes descending from a root child. The
// zero value is an empty path sitting at the root child itself.
type RolePath []Node

// Extend returns a copy of the path with one more node appended. The
// receiver is not modified; paths are shared between checkpoints and
// candidates.
func (p RolePath) Extend(loc graph.ChildLocation, entry graph.AtomPos) RolePath {
	out := make(RolePath, len(p), len(p)+1)
	copy(out, p)
	return append(out, Node{Loc: loc, Entry: entry})
}

// Truncate returns the path without its deepest node.
func (p RolePath) Truncate() RolePath {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

// Leaf returns the deepest node, if any.
func (p RolePath) Leaf() (Node, bool) {
	if len(p) == 0 {
		return Node{}, false
	}
	return p[len(p)-1], true
}

// ChildCursor walks one pattern of one containing entity, descending
// into decompositions as the compare engine requires.
//
// Entry is the atom position at which the current leaf was entered;
// Exit is the position after all confirmed matches. Both are relative
// to the start of the matched region, like every trace key.
type ChildCursor struct {
	// Root locates the pattern being matched inside its owner.
	Root graph.PatternLocation
	// RootIndex is the position within the root pattern.
	RootIndex int
	// Descent holds the decomposition steps below the root child.
	Descent RolePath
	// Leaf is the entity at the cursor's current position.
	Leaf graph.Token

	Entry graph.AtomPos
	Exit  graph.AtomPos
}

// NewChildCursor positions a cursor on child index of the located
// pattern, entering at the given atom position.
func NewChildCursor(root graph.PatternLocation, index int, leaf graph.Token, entry graph.AtomPos) ChildCursor {
	return ChildCursor{Root: root, RootIndex: index, Leaf: leaf, Entry: entry, Exit: entry}
}

func (c ChildCursor) String() string {
	return fmt.Sprintf("%v[%d]+%d@%d..%d", c.Root.Parent, c.RootIndex, len(c.Descent), c.Entry, c.Exit)
}

// Descend pushes one decomposition step: the cursor moves from its
// current leaf to that leaf's first child under pattern pid.
func (c ChildCursor) Descend(pid graph.PatternID, child graph.Token) ChildCursor {
	loc := graph.ChildLocation{Parent: c.Leaf, Pattern: pid, Index: 0}
	c.Descent = c.Descent.Extend(loc, c.Exit)
	c.Leaf = child
	c.Entry = c.Exit
	return c
}

// MarkMatch consumes the current leaf: the exit position advances by
// exactly the leaf's width.
func (c ChildCursor) MarkMatch() ChildCursor {
	c.Exit += graph.AtomPos(c.Leaf.Width)
	return c
}

// Advance moves to the next position of the stored structure: the next
// sibling at the deepest level, popping exhausted levels as needed.
// It reports Exhausted (false) when every level up to and including
// the root pattern has run out, leaving the receiver's value for the
// caller to escalate from.
func (c ChildCursor) Advance(g *graph.Hypergraph) (ChildCursor, bool) {
	next := c
	next.Descent = append(RolePath(nil), c.Descent...)
	for {
		if leaf, ok := next.Descent.Leaf(); ok {
			p, err := patternOf(g, leaf.Loc.Parent.ID, leaf.Loc.Pattern)
			if err == nil && leaf.Loc.Index+1 < len(p) {
				leaf.Loc.Index++
				leaf.Entry = next.Exit
				next.Descent[len(next.Descent)-1] = leaf
				next.Leaf = p[leaf.Loc.Index]
				next.Entry = next.Exit
				return next, true
			}
			next.Descent = next.Descent.Truncate()
			continue
		}
		p, err := patternOf(g, next.Root.Parent.ID, next.Root.Pattern)
		if err == nil && next.RootIndex+1 < len(p) {
			next.RootIndex++
			next.Leaf = p[next.RootIndex]
			next.Entry = next.Exit
			return next, true
		}
		return c, false
	}
}

func patternOf(g *graph.Hypergraph, id graph.EntityID, pid graph.PatternID) (graph.Pattern, error) {
	v, err := g.Vertex(id)
	if err != nil {
		return nil, err
	}
	p, ok := v.Pattern(pid)
	if !ok {
		return nil, graph.ErrPatternNotFound
	}
	return p, nil
}
