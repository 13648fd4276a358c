// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trace

import (
	"testing"

	"github.com/AleutianAI/contextgraph/graph"
)

func tok(id int, width int) graph.Token {
	return graph.Token{ID: graph.EntityID(id), Width: width}
}

func TestNew_SeedsStartVertex(t *testing.T) {
	start := tok(1, 1)
	c := New(start)

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	vc, ok := c.Vertex(start.ID)
	if !ok {
		t.Fatal("start vertex missing")
	}
	if vc.Positions(Up) != 0 || vc.Positions(Down) != 0 {
		t.Errorf("start vertex should carry no positions, got up=%d down=%d",
			vc.Positions(Up), vc.Positions(Down))
	}
}

func TestMarkVisited_Dedupe(t *testing.T) {
	c := New(tok(1, 1))
	key := DirectedKey{Entity: 2, Dir: Up, Pos: 0}

	if !c.MarkVisited(key) {
		t.Error("first visit should be new")
	}
	if c.MarkVisited(key) {
		t.Error("second visit should be deduplicated")
	}
	if !c.Seen(key) {
		t.Error("Seen after MarkVisited = false")
	}

	// Same position in the other direction is a distinct key.
	down := DirectedKey{Entity: 2, Dir: Down, Pos: 0}
	if c.Seen(down) {
		t.Error("direction must partition the visited set")
	}
}

func TestAddEdge_MarksSourceOnly(t *testing.T) {
	c := New(tok(1, 1))
	parent := tok(5, 3)
	key := DirectedKey{Entity: 1, Dir: Up, Pos: 1}
	edge := Edge{Target: parent, Sub: graph.SubLocation{Pattern: 7, Index: 2}}

	c.AddEdge(key, edge)

	vc, ok := c.Vertex(1)
	if !ok {
		t.Fatal("source vertex missing")
	}
	edges := vc.Edges(Up, 1)
	if len(edges) != 1 || edges[0] != edge {
		t.Fatalf("source edges = %v, want [%v]", edges, edge)
	}
	if !c.Seen(key) {
		t.Error("recording an edge must mark the source position")
	}

	// The target is marked by the traversal when it enqueues the node,
	// never by edge recording.
	targetKey := DirectedKey{Entity: parent.ID, Dir: Up, Pos: 1}
	if c.Seen(targetKey) {
		t.Error("edge recording must not mark the target")
	}
	if !c.MarkVisited(targetKey) {
		t.Error("first enqueue of the target should be new")
	}
}

func TestAddEdge_AppendsConvergingEdges(t *testing.T) {
	c := New(tok(1, 1))
	key := DirectedKey{Entity: 1, Dir: Down, Pos: 0}

	c.AddEdge(key, Edge{Target: tok(2, 1), Sub: graph.SubLocation{Pattern: 1, Index: 0}})
	c.AddEdge(key, Edge{Target: tok(3, 1), Sub: graph.SubLocation{Pattern: 2, Index: 0}})

	vc, _ := c.Vertex(1)
	if got := len(vc.Edges(Down, 0)); got != 2 {
		t.Errorf("edges at position = %d, want 2", got)
	}
}
