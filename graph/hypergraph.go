// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Hypergraph is the shared handle to one arena of entities.
//
// The zero value is not usable; create with New. The handle is safe to
// copy by pointer and share across goroutines. There is no teardown
// beyond dropping the handle.
type Hypergraph struct {
	// ID identifies this graph instance in logs and telemetry.
	ID uuid.UUID

	mu       sync.RWMutex
	vertices map[EntityID]*VertexData
	atoms    map[rune]EntityID

	// patternIndex maps the exact child sequence of every composite
	// pattern to the entity owning it. This is what makes partition
	// reuse (and therefore the no-duplication invariant) a lookup
	// instead of a scan.
	patternIndex map[string]EntityID

	// writeMu serializes writers. Readers are never blocked by it;
	// they only contend on the per-entity locks of the commit set.
	writeMu sync.Mutex

	nextEntity  atomic.Int64
	nextPattern atomic.Int64
}

// New creates an empty hypergraph.
func New() *Hypergraph {
	return &Hypergraph{
		ID:           uuid.New(),
		vertices:     make(map[EntityID]*VertexData),
		atoms:        make(map[rune]EntityID),
		patternIndex: make(map[string]EntityID),
	}
}

// allocEntityID hands out the next arena id.
func (g *Hypergraph) allocEntityID() EntityID {
	return EntityID(g.nextEntity.Add(1))
}

// allocPatternID hands out the next graph-wide pattern id.
func (g *Hypergraph) allocPatternID() PatternID {
	return PatternID(g.nextPattern.Add(1))
}

// CreateAtom interns the symbol r, returning the existing entity when
// the symbol has been seen before.
func (g *Hypergraph) CreateAtom(r rune) Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.atoms[r]; ok {
		return g.vertices[id].token
	}
	id := g.allocEntityID()
	tok := Token{ID: id, Width: 1}
	g.vertices[id] = &VertexData{
		token:    tok,
		atom:     r,
		isAtom:   true,
		patterns: make(map[PatternID]Pattern),
		parents:  make(map[EntityID]*ParentRef),
	}
	g.atoms[r] = id
	return tok
}

// CreateAtoms interns every rune of s in order.
func (g *Hypergraph) CreateAtoms(s string) []Token {
	out := make([]Token, 0, len(s))
	for _, r := range s {
		out = append(out, g.CreateAtom(r))
	}
	return out
}

// AtomToken returns the entity for a previously interned symbol.
func (g *Hypergraph) AtomToken(r rune) (Token, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.atoms[r]
	if !ok {
		return Token{}, false
	}
	return g.vertices[id].token, true
}

// InsertPattern creates a composite entity decomposing into children,
// or returns the existing entity when the exact child sequence is
// already indexed.
func (g *Hypergraph) InsertPattern(children ...Token) (Token, error) {
	tok, _, err := g.InsertPatternWithID(children...)
	return tok, err
}

// InsertPatternWithID is InsertPattern exposing the id of the pattern
// that records the decomposition.
func (g *Hypergraph) InsertPatternWithID(children ...Token) (Token, PatternID, error) {
	p := Pattern(children)
	if len(p) == 0 {
		return Token{}, 0, ErrEmptyPattern
	}
	if len(p) == 1 {
		return Token{}, 0, ErrSingletonPattern
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.mu.RLock()
	if id, ok := g.patternIndex[p.Key()]; ok {
		v := g.vertices[id]
		g.mu.RUnlock()
		v.mu.RLock()
		pid, _ := v.hasPattern(p)
		v.mu.RUnlock()
		return v.token, pid, nil
	}
	g.mu.RUnlock()

	txn := g.begin()
	tok, pid := txn.CreateEntity(p.Clone())
	if err := txn.Commit(); err != nil {
		return Token{}, 0, err
	}
	return tok, pid, nil
}

// AppendPattern adds an alternative decomposition to an existing
// composite. Identical child sequences are deduplicated: appending a
// pattern the entity already owns returns the existing PatternID.
func (g *Hypergraph) AppendPattern(e Token, children ...Token) (PatternID, error) {
	p := Pattern(children)
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	v, err := g.Vertex(e.ID)
	if err != nil {
		return 0, err
	}
	v.mu.RLock()
	if pid, ok := v.hasPattern(p); ok {
		v.mu.RUnlock()
		return pid, nil
	}
	v.mu.RUnlock()

	txn := g.begin()
	if err := txn.AppendPattern(e, p.Clone()); err != nil {
		return 0, err
	}
	if err := txn.Commit(); err != nil {
		return 0, err
	}
	// Commit validated and applied exactly one append.
	v.mu.RLock()
	pid, _ := v.hasPattern(p)
	v.mu.RUnlock()
	return pid, nil
}

// Vertex returns the record for an entity id.
func (g *Hypergraph) Vertex(id EntityID) (*VertexData, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	return v, nil
}

// TokenOf resolves an entity id to its token.
func (g *Hypergraph) TokenOf(id EntityID) (Token, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.vertices[id]
	if !ok {
		return Token{}, false
	}
	return v.token, true
}

// ChildPatterns enumerates the pattern ids and patterns of an entity.
func (g *Hypergraph) ChildPatterns(e Token) ([]PatternID, []Pattern, error) {
	v, err := g.Vertex(e.ID)
	if err != nil {
		return nil, nil, err
	}
	ids, ps := v.Patterns()
	return ids, ps, nil
}

// ParentLocations enumerates every slot where e occurs as a child, in
// the fixed exploration order (parent id, pattern id, index).
func (g *Hypergraph) ParentLocations(e Token) ([]ChildLocation, error) {
	v, err := g.Vertex(e.ID)
	if err != nil {
		return nil, err
	}
	return v.ParentLocations(g.TokenOf), nil
}

// ChildAt resolves a child location to the token stored there.
func (g *Hypergraph) ChildAt(loc ChildLocation) (Token, error) {
	v, err := g.Vertex(loc.Parent.ID)
	if err != nil {
		return Token{}, err
	}
	p, ok := v.Pattern(loc.Pattern)
	if !ok {
		return Token{}, fmt.Errorf("%w: entity %d pattern %d", ErrPatternNotFound, loc.Parent.ID, loc.Pattern)
	}
	if loc.Index < 0 || loc.Index >= len(p) {
		return Token{}, fmt.Errorf("%w: index %d in pattern of length %d", ErrInvalidRange, loc.Index, len(p))
	}
	return p[loc.Index], nil
}

// Reconstruct flattens an entity back to its atomic symbol sequence,
// descending through the oldest pattern at every level. Only read
// locks are taken, one entity at a time.
func (g *Hypergraph) Reconstruct(ctx context.Context, id EntityID) (string, error) {
	ctx, span := startGraphSpan(ctx, "Reconstruct")
	defer span.End()

	v, err := g.Vertex(id)
	if err != nil {
		return "", err
	}
	var b []rune
	if err := g.flatten(ctx, v, &b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (g *Hypergraph) flatten(ctx context.Context, v *VertexData, out *[]rune) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r, ok := v.Atom(); ok {
		*out = append(*out, r)
		return nil
	}
	_, p, ok := v.FirstPattern()
	if !ok {
		return fmt.Errorf("%w: composite %d has no patterns", ErrPatternNotFound, v.token.ID)
	}
	for _, c := range p {
		cv, err := g.Vertex(c.ID)
		if err != nil {
			return err
		}
		if err := g.flatten(ctx, cv, out); err != nil {
			return err
		}
	}
	return nil
}

// LookupPattern returns the entity owning the exact child sequence, if
// one exists.
func (g *Hypergraph) LookupPattern(p Pattern) (Token, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.patternIndex[p.Key()]
	if !ok {
		return Token{}, false
	}
	return g.vertices[id].token, true
}

// Stats reports arena counts for diagnostics.
type Stats struct {
	Entities int `json:"entities"`
	Atoms    int `json:"atoms"`
	Patterns int `json:"patterns"`
}

// Stats returns current arena counts.
func (g *Hypergraph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := Stats{Entities: len(g.vertices), Atoms: len(g.atoms)}
	for _, v := range g.vertices {
		v.mu.RLock()
		s.Patterns += len(v.patternOrder)
		v.mu.RUnlock()
	}
	return s
}

// Validate checks the standing invariants: pattern widths equal their
// entity width, forward and backward references agree, and no entity
// owns two identical patterns. Intended for tests and diagnostics.
//
// Validate serializes with writers and snapshots one entity at a
// time, never holding two entity locks at once. It therefore observes
// only fully committed structure and cannot deadlock against the
// ordered lock acquisition of a concurrent commit.
func (g *Hypergraph) Validate() error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.mu.RLock()
	ids := make([]EntityID, 0, len(g.vertices))
	for id := range g.vertices {
		ids = append(ids, id)
	}
	g.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		v, err := g.Vertex(id)
		if err != nil {
			continue
		}
		pids, patterns := v.Patterns()
		for n, pid := range pids {
			p := patterns[n]
			if p.Width() != v.token.Width {
				return fmt.Errorf("%w: entity %d pattern %d", ErrWidthMismatch, id, pid)
			}
			for i, c := range p {
				cv, err := g.Vertex(c.ID)
				if err != nil {
					return fmt.Errorf("%w: child %d of entity %d", ErrEntityNotFound, c.ID, id)
				}
				if !cv.hasParentSlot(id, SubLocation{Pattern: pid, Index: i}) {
					return fmt.Errorf("missing back-reference: entity %d child %d at pattern %d index %d", id, c.ID, pid, i)
				}
			}
			for m, other := range pids {
				if other != pid && patterns[m].Equal(p) {
					return fmt.Errorf("duplicate pattern on entity %d: %d and %d", id, pid, other)
				}
			}
		}
	}
	return nil
}

// logger returns a logger annotated with this graph's identity.
func (g *Hypergraph) logger() *slog.Logger {
	return slog.Default().With(slog.String("graph_id", g.ID.String()))
}
