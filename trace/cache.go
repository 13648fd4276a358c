// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trace records the edges a traversal has already walked.
//
// # Description
//
// The cache maps each visited entity to the directed edges leaving it,
// keyed by the query-relative atom position at which the edge was
// taken. Bottom-up edges point at a parent slot reached while
// escalating; top-down edges point at a child slot reached while
// descending into a decomposition. A traversal marks a node's key when
// it enqueues the node for expansion: a key that is already present
// means another path got there first and the node is dropped.
//
// # Thread Safety
//
// A Cache belongs to a single traversal and is not safe for concurrent
// use.
package trace

import "github.com/AleutianAI/contextgraph/graph"

// Direction orients a cache key along the hierarchy.
type Direction int

const (
	// Up marks edges recorded while escalating to parents.
	Up Direction = iota
	// Down marks edges recorded while descending into children.
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// DirectedKey addresses one visit: an entity, the travel direction,
// and the query-relative atom position at which it was reached.
type DirectedKey struct {
	Entity graph.EntityID
	Dir    Direction
	Pos    graph.AtomPos
}

// Edge is one recorded step out of a vertex: the entity it leads to
// and the pattern slot it was taken through.
type Edge struct {
	Target graph.Token
	Sub    graph.SubLocation
}

// VertexCache holds the directed edges recorded for one entity.
type VertexCache struct {
	bottomUp map[graph.AtomPos][]Edge
	topDown  map[graph.AtomPos][]Edge
}

func newVertexCache() *VertexCache {
	return &VertexCache{
		bottomUp: make(map[graph.AtomPos][]Edge),
		topDown:  make(map[graph.AtomPos][]Edge),
	}
}

func (vc *VertexCache) bucket(d Direction) map[graph.AtomPos][]Edge {
	if d == Up {
		return vc.bottomUp
	}
	return vc.topDown
}

// Edges returns the edges recorded at pos in the given direction.
func (vc *VertexCache) Edges(d Direction, pos graph.AtomPos) []Edge {
	return vc.bucket(d)[pos]
}

// Positions returns the number of distinct positions recorded in the
// given direction.
func (vc *VertexCache) Positions(d Direction) int {
	return len(vc.bucket(d))
}

// Cache is the visited set of one traversal.
type Cache struct {
	vertices map[graph.EntityID]*VertexCache
}

// New creates a cache seeded with an empty vertex for the traversal's
// start entity.
func New(start graph.Token) *Cache {
	c := &Cache{vertices: make(map[graph.EntityID]*VertexCache)}
	c.vertices[start.ID] = newVertexCache()
	return c
}

// Vertex returns the recorded state of one entity, if any.
func (c *Cache) Vertex(id graph.EntityID) (*VertexCache, bool) {
	vc, ok := c.vertices[id]
	return vc, ok
}

// Len returns the number of entities the traversal has touched.
func (c *Cache) Len() int {
	return len(c.vertices)
}

// Seen reports whether the key's position was already recorded on its
// entity in its direction.
func (c *Cache) Seen(key DirectedKey) bool {
	vc, ok := c.vertices[key.Entity]
	if !ok {
		return false
	}
	_, ok = vc.bucket(key.Dir)[key.Pos]
	return ok
}

// MarkVisited records the key with no outgoing edge, creating the
// vertex if needed. It reports whether the key was new.
func (c *Cache) MarkVisited(key DirectedKey) bool {
	vc, ok := c.vertices[key.Entity]
	if !ok {
		vc = newVertexCache()
		c.vertices[key.Entity] = vc
	}
	b := vc.bucket(key.Dir)
	if _, ok := b[key.Pos]; ok {
		return false
	}
	b[key.Pos] = nil
	return true
}

// AddEdge records an edge leaving key toward edge.Target, creating
// the source vertex if needed. Recording an edge marks the source
// key's position; targets are marked by the traversal when it
// enqueues them, never on arrival.
func (c *Cache) AddEdge(key DirectedKey, edge Edge) {
	vc, ok := c.vertices[key.Entity]
	if !ok {
		vc = newVertexCache()
		c.vertices[key.Entity] = vc
	}
	b := vc.bucket(key.Dir)
	b[key.Pos] = append(b[key.Pos], edge)
}
