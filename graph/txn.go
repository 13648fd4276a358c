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
	"time"
)

// Txn stages the write set of one insertion so it can be applied
// atomically.
//
// # Description
//
// An insertion typically creates several entities, appends split
// patterns to existing ones, and rewrites a range of a parent pattern.
// Txn records all of it without touching shared state; Commit then
// acquires the write locks of every affected pre-existing entity in
// ascending EntityID order and applies the whole set before releasing
// any of them. Concurrent readers observe either the old structure or
// the new one, never a mixture.
//
// # Thread Safety
//
// A Txn is single-goroutine. Writers are serialized by the graph's
// writer mutex, which the caller (the insertion engine) holds from
// before its reads until after Commit.
type Txn struct {
	g          *Hypergraph
	committed  bool
	ownsWriter bool

	created  []*stagedVertex
	appends  []stagedAppend
	replaces []stagedReplace

	// index mirrors patternIndex for staged entities so that partition
	// reuse sees its own writes.
	index map[string]Token
}

type stagedVertex struct {
	token    Token
	patterns []Pattern
	ids      []PatternID
}

type stagedAppend struct {
	entity Token
	id     PatternID
	p      Pattern
}

type stagedReplace struct {
	loc      PatternLocation
	from, to int
	rep      Token
}

// begin starts a transaction. Callers must hold g.writeMu.
func (g *Hypergraph) begin() *Txn {
	return &Txn{g: g, index: make(map[string]Token)}
}

// Begin starts a write transaction, blocking until any other writer
// has finished. The caller must end the transaction with Commit or
// Abort.
func (g *Hypergraph) Begin() *Txn {
	g.writeMu.Lock()
	t := g.begin()
	t.ownsWriter = true
	return t
}

// CreateEntity stages a new composite owning the given patterns and
// returns its token and the id of the first pattern. The entity
// becomes visible at Commit.
func (t *Txn) CreateEntity(patterns ...Pattern) (Token, PatternID) {
	width := patterns[0].Width()
	tok := Token{ID: t.g.allocEntityID(), Width: width}
	sv := &stagedVertex{token: tok}
	for _, p := range patterns {
		pid := t.g.allocPatternID()
		sv.patterns = append(sv.patterns, p)
		sv.ids = append(sv.ids, pid)
		t.index[p.Key()] = tok
	}
	t.created = append(t.created, sv)
	return tok, sv.ids[0]
}

// LookupPattern resolves an exact child sequence against staged
// entities first, then the committed index.
func (t *Txn) LookupPattern(p Pattern) (Token, bool) {
	if tok, ok := t.index[p.Key()]; ok {
		return tok, true
	}
	return t.g.LookupPattern(p)
}

// GetOrCreate returns the entity for the exact child sequence,
// staging a new one when none exists. Sequences of length one resolve
// to the child itself.
func (t *Txn) GetOrCreate(p Pattern) Token {
	if len(p) == 1 {
		return p[0]
	}
	if tok, ok := t.LookupPattern(p); ok {
		return tok
	}
	tok, _ := t.CreateEntity(p.Clone())
	return tok
}

// AppendPattern stages an alternative decomposition on an existing or
// staged entity.
func (t *Txn) AppendPattern(e Token, p Pattern) error {
	if len(p) == 0 {
		return ErrEmptyPattern
	}
	if len(p) == 1 {
		return ErrSingletonPattern
	}
	if e.Width == 1 {
		return ErrAtomPattern
	}
	if p.Width() != e.Width {
		return fmt.Errorf("%w: entity width %d, pattern width %d", ErrWidthMismatch, e.Width, p.Width())
	}
	// Append onto an entity staged in this transaction.
	for _, sv := range t.created {
		if sv.token.ID == e.ID {
			for _, existing := range sv.patterns {
				if existing.Equal(p) {
					return nil
				}
			}
			sv.patterns = append(sv.patterns, p)
			sv.ids = append(sv.ids, t.g.allocPatternID())
			t.index[p.Key()] = e
			return nil
		}
	}
	t.appends = append(t.appends, stagedAppend{entity: e, id: t.g.allocPatternID(), p: p})
	t.index[p.Key()] = e
	return nil
}

// ReplaceRange stages the substitution of children [from, to) of the
// located pattern with a single reference to rep.
func (t *Txn) ReplaceRange(loc PatternLocation, from, to int, rep Token) error {
	if from < 0 || to <= from {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, from, to)
	}
	t.replaces = append(t.replaces, stagedReplace{loc: loc, from: from, to: to, rep: rep})
	return nil
}

// Abort discards the staged write set.
func (t *Txn) Abort() {
	if t.committed {
		return
	}
	t.committed = true
	if t.ownsWriter {
		t.g.writeMu.Unlock()
	}
}

// Commit applies the staged write set atomically.
//
// Lock protocol: new vertices enter the arena first (they are
// unreachable until the pattern rewrites land), then the write locks
// of every affected pre-existing entity are acquired in ascending
// EntityID order, all appends, replacements and back-reference updates
// are applied, and only then are the locks released.
func (t *Txn) Commit() error {
	if t.committed {
		return ErrTxnCommitted
	}
	t.committed = true
	if t.ownsWriter {
		defer t.g.writeMu.Unlock()
	}
	g := t.g
	start := time.Now()

	// Validate replacements against current state before taking any
	// write locks.
	for _, r := range t.replaces {
		v, err := g.Vertex(r.loc.Parent.ID)
		if err != nil {
			return err
		}
		p, ok := v.Pattern(r.loc.Pattern)
		if !ok {
			return fmt.Errorf("%w: entity %d pattern %d", ErrPatternNotFound, r.loc.Parent.ID, r.loc.Pattern)
		}
		if r.to > len(p) {
			return fmt.Errorf("%w: [%d, %d) in pattern of length %d", ErrInvalidRange, r.from, r.to, len(p))
		}
		if Pattern(p[r.from:r.to]).Width() != r.rep.Width {
			return fmt.Errorf("%w: replacing width %d with token width %d",
				ErrWidthMismatch, Pattern(p[r.from:r.to]).Width(), r.rep.Width)
		}
	}

	// Phase 1: arena membership for new vertices. They stay
	// unreachable to readers until the pattern rewrites below land.
	g.mu.Lock()
	for _, sv := range t.created {
		v := &VertexData{
			token:    sv.token,
			patterns: make(map[PatternID]Pattern, len(sv.patterns)),
			parents:  make(map[EntityID]*ParentRef),
		}
		for i, p := range sv.patterns {
			v.patterns[sv.ids[i]] = p
			v.patternOrder = append(v.patternOrder, sv.ids[i])
			g.patternIndex[p.Key()] = sv.token.ID
		}
		g.vertices[sv.token.ID] = v
	}
	for _, a := range t.appends {
		g.patternIndex[a.p.Key()] = a.entity.ID
	}
	g.mu.Unlock()

	// Phase 2: collect the affected pre-existing entities.
	createdSet := make(map[EntityID]bool, len(t.created))
	for _, sv := range t.created {
		createdSet[sv.token.ID] = true
	}
	affected := make(map[EntityID]bool)
	touch := func(id EntityID) {
		if !createdSet[id] {
			affected[id] = true
		}
	}
	for _, sv := range t.created {
		for _, p := range sv.patterns {
			for _, c := range p {
				touch(c.ID)
			}
		}
	}
	for _, a := range t.appends {
		touch(a.entity.ID)
		for _, c := range a.p {
			touch(c.ID)
		}
	}
	for _, r := range t.replaces {
		touch(r.loc.Parent.ID)
		touch(r.rep.ID)
		v, err := g.Vertex(r.loc.Parent.ID)
		if err != nil {
			return err
		}
		p, _ := v.Pattern(r.loc.Pattern)
		for _, c := range p {
			touch(c.ID)
		}
	}

	order := make([]EntityID, 0, len(affected))
	for id := range affected {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	// Resolve every vertex pointer before locking anything; taking
	// g.mu while holding per-entity locks would invert the order used
	// by readers like Stats.
	resolved := make(map[EntityID]*VertexData)
	g.mu.RLock()
	for id := range createdSet {
		resolved[id] = g.vertices[id]
	}
	for _, id := range order {
		resolved[id] = g.vertices[id]
	}
	for _, a := range t.appends {
		resolved[a.entity.ID] = g.vertices[a.entity.ID]
	}
	g.mu.RUnlock()
	vertex := func(id EntityID) *VertexData { return resolved[id] }

	locked := make([]*VertexData, 0, len(order))
	for _, id := range order {
		v := vertex(id)
		if v == nil {
			return fmt.Errorf("%w: entity %d", ErrEntityNotFound, id)
		}
		v.mu.Lock()
		locked = append(locked, v)
	}
	defer func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}()

	// Back-references for the patterns of new vertices. Created
	// entities are not in the lock set; touching them unlocked is safe
	// because readers cannot reach them yet.
	for _, sv := range t.created {
		for i, p := range sv.patterns {
			pid := sv.ids[i]
			for idx, c := range p {
				vertex(c.ID).addParentLocked(sv.token, SubLocation{Pattern: pid, Index: idx})
			}
		}
	}

	// Appended patterns.
	for _, a := range t.appends {
		v := vertex(a.entity.ID)
		if _, dup := v.hasPattern(a.p); dup {
			continue
		}
		v.patterns[a.id] = a.p
		v.patternOrder = append(v.patternOrder, a.id)
		for idx, c := range a.p {
			vertex(c.ID).addParentLocked(a.entity, SubLocation{Pattern: a.id, Index: idx})
		}
	}

	// Range replacements. Pattern index deltas are deferred until the
	// per-entity locks are released; only writers consult the index
	// and they are serialized.
	var indexDrops []string
	indexAdds := make(map[string]EntityID)
	for _, r := range t.replaces {
		dropped, added, err := applyReplace(vertex, r)
		if err != nil {
			return err
		}
		indexDrops = append(indexDrops, dropped)
		indexAdds[added] = r.loc.Parent.ID
	}

	for i := len(locked) - 1; i >= 0; i-- {
		locked[i].mu.Unlock()
	}
	locked = locked[:0]

	if len(indexDrops) > 0 || len(indexAdds) > 0 {
		g.mu.Lock()
		for _, k := range indexDrops {
			delete(g.patternIndex, k)
		}
		for k, id := range indexAdds {
			g.patternIndex[k] = id
		}
		g.mu.Unlock()
	}

	recordCommit(context.Background(), len(t.created), len(t.appends), time.Since(start))
	slog.Debug("committed graph transaction",
		slog.String("graph_id", g.ID.String()),
		slog.Int("created", len(t.created)),
		slog.Int("appended", len(t.appends)),
		slog.Int("replaced", len(t.replaces)))
	return nil
}

// applyReplace rewrites one pattern range under the already-held
// locks, keeping back-references consistent. It returns the pattern
// index key to drop and the key to add.
func applyReplace(vertex func(EntityID) *VertexData, r stagedReplace) (dropped, added string, err error) {
	v := vertex(r.loc.Parent.ID)
	old, ok := v.patterns[r.loc.Pattern]
	if !ok {
		return "", "", fmt.Errorf("%w: entity %d pattern %d", ErrPatternNotFound, r.loc.Parent.ID, r.loc.Pattern)
	}

	// Drop back-references of the replaced children and of every child
	// whose index shifts.
	for i := r.from; i < len(old); i++ {
		vertex(old[i].ID).removeParentLocked(r.loc.Parent.ID, SubLocation{Pattern: r.loc.Pattern, Index: i})
	}

	repl := make(Pattern, 0, len(old)-(r.to-r.from)+1)
	repl = append(repl, old[:r.from]...)
	repl = append(repl, r.rep)
	repl = append(repl, old[r.to:]...)
	v.patterns[r.loc.Pattern] = repl

	// Re-add back-references from the substitute onward.
	for i := r.from; i < len(repl); i++ {
		vertex(repl[i].ID).addParentLocked(v.token, SubLocation{Pattern: r.loc.Pattern, Index: i})
	}
	return old.Key(), repl.Key(), nil
}
