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
	"sort"
	"sync"
)

// VertexData is the arena record for one entity.
//
// Thread Safety:
//
//	Each record carries its own RWMutex. All exported accessors take the
//	read lock; mutations go through Hypergraph/Txn, which take the write
//	lock in ascending EntityID order across the affected set.
type VertexData struct {
	mu sync.RWMutex

	token Token

	// atom holds the symbol when the entity is an atom. Composites
	// leave it zero.
	atom   rune
	isAtom bool

	// patternOrder preserves insertion order of pattern ids so that
	// enumeration (and therefore search tie-breaking) is deterministic.
	patternOrder []PatternID
	patterns     map[PatternID]Pattern

	// parents maps parent entity id to the slots where this entity
	// occurs inside that parent.
	parents map[EntityID]*ParentRef
}

// Token returns the entity reference (id + width).
func (v *VertexData) Token() Token {
	return v.token
}

// Width returns the total atom width of the entity.
func (v *VertexData) Width() int {
	return v.token.Width
}

// IsAtom reports whether the entity is an indivisible symbol.
func (v *VertexData) IsAtom() bool {
	return v.isAtom
}

// Atom returns the symbol of an atom entity. The second return is
// false for composites.
func (v *VertexData) Atom() (rune, bool) {
	return v.atom, v.isAtom
}

// PatternCount returns the number of alternative decompositions.
func (v *VertexData) PatternCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.patternOrder)
}

// Pattern returns the pattern with the given id.
func (v *VertexData) Pattern(id PatternID) (Pattern, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.patterns[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Patterns returns all patterns in insertion order, as (id, pattern)
// pairs. The returned slices are snapshots safe to hold across
// concurrent mutation.
func (v *VertexData) Patterns() ([]PatternID, []Pattern) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]PatternID, len(v.patternOrder))
	copy(ids, v.patternOrder)
	ps := make([]Pattern, len(ids))
	for i, id := range ids {
		ps[i] = v.patterns[id].Clone()
	}
	return ids, ps
}

// FirstPattern returns the oldest pattern of a composite. Atoms return
// false.
func (v *VertexData) FirstPattern() (PatternID, Pattern, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.patternOrder) == 0 {
		return 0, nil, false
	}
	id := v.patternOrder[0]
	return id, v.patterns[id].Clone(), true
}

// PrefixChildren returns the first child of every pattern, widest
// first. These are the decomposition targets the compare engine
// descends into when the entity is wider than the symbol being
// matched. Width ties keep pattern insertion order.
func (v *VertexData) PrefixChildren() []ChildLocation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]ChildLocation, 0, len(v.patternOrder))
	for _, id := range v.patternOrder {
		out = append(out, ChildLocation{
			Parent:  v.token,
			Pattern: id,
			Index:   0,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi := v.patterns[out[i].Pattern][0].Width
		wj := v.patterns[out[j].Pattern][0].Width
		return wi > wj
	})
	return out
}

// ParentCount returns the number of distinct parent entities.
func (v *VertexData) ParentCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.parents)
}

// ParentLocations enumerates every slot where this entity occurs as a
// child, ordered by parent EntityID, then PatternID, then index. The
// fixed order is what makes parent exploration deterministic.
func (v *VertexData) ParentLocations(resolve func(EntityID) (Token, bool)) []ChildLocation {
	v.mu.RLock()
	ids := make([]EntityID, 0, len(v.parents))
	for id := range v.parents {
		ids = append(ids, id)
	}
	refs := make(map[EntityID]*ParentRef, len(v.parents))
	for id, ref := range v.parents {
		refs[id] = ref.clone()
	}
	v.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []ChildLocation
	for _, id := range ids {
		parent, ok := resolve(id)
		if !ok {
			continue
		}
		ref := refs[id]
		locs := make([]SubLocation, 0, len(ref.Locations))
		for l := range ref.Locations {
			locs = append(locs, l)
		}
		sort.Slice(locs, func(i, j int) bool {
			if locs[i].Pattern != locs[j].Pattern {
				return locs[i].Pattern < locs[j].Pattern
			}
			return locs[i].Index < locs[j].Index
		})
		for _, l := range locs {
			out = append(out, ChildLocation{
				Parent:  parent,
				Pattern: l.Pattern,
				Index:   l.Index,
			})
		}
	}
	return out
}

// hasParentSlot reports whether the given parent slot is recorded,
// taking only this entity's lock.
func (v *VertexData) hasParentSlot(parent EntityID, sub SubLocation) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ref, ok := v.parents[parent]
	if !ok {
		return false
	}
	_, ok = ref.Locations[sub]
	return ok
}

// hasPattern reports whether an identical child sequence is already
// present. Caller must hold at least the read lock.
func (v *VertexData) hasPattern(p Pattern) (PatternID, bool) {
	for _, id := range v.patternOrder {
		if v.patterns[id].Equal(p) {
			return id, true
		}
	}
	return 0, false
}

// addParentLocked records a parent slot. Caller must hold the write
// lock.
func (v *VertexData) addParentLocked(parent Token, sub SubLocation) {
	ref, ok := v.parents[parent.ID]
	if !ok {
		ref = &ParentRef{Width: parent.Width, Locations: make(map[SubLocation]struct{})}
		v.parents[parent.ID] = ref
	}
	ref.Locations[sub] = struct{}{}
}

// removeParentLocked drops a parent slot, deleting the ParentRef when
// it becomes empty. Caller must hold the write lock.
func (v *VertexData) removeParentLocked(parent EntityID, sub SubLocation) {
	ref, ok := v.parents[parent]
	if !ok {
		return
	}
	delete(ref.Locations, sub)
	if len(ref.Locations) == 0 {
		delete(v.parents, parent)
	}
}
