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
	"fmt"
	"strings"
)

// EntityID identifies one entity in the arena. IDs are assigned in
// insertion order and never reused, which makes ascending EntityID the
// fixed total order for multi-entity lock acquisition and for
// deterministic tie-breaking during search.
type EntityID int

// PatternID identifies one pattern. PatternIDs are unique across the
// whole graph, not just within their owning entity.
type PatternID int

// AtomPos counts atomic symbols consumed so far. It is comparable
// across all hierarchy levels regardless of how many composite layers
// separate two points, and is the only coordinate used for cross-level
// comparison, range math, and cache keys.
type AtomPos int

// Token is a reference to an entity together with its cached total atom
// width. Carrying the width on the reference keeps all range math free
// of arena lookups.
type Token struct {
	ID    EntityID
	Width int
}

// IsAtom reports whether the token references an indivisible symbol.
func (t Token) IsAtom() bool {
	return t.Width == 1
}

// String returns a compact representation for logging.
func (t Token) String() string {
	return fmt.Sprintf("#%d/%d", t.ID, t.Width)
}

// Pattern is one ordered decomposition of a composite into child
// tokens. Patterns on the same entity are width-equal alternatives.
type Pattern []Token

// Width returns the total atom width of the pattern.
func (p Pattern) Width() int {
	w := 0
	for _, c := range p {
		w += c.Width
	}
	return w
}

// OffsetOf returns the atom offset of the child at index i, i.e. the
// cumulative width of the children strictly before it.
func (p Pattern) OffsetOf(i int) AtomPos {
	w := 0
	for _, c := range p[:i] {
		w += c.Width
	}
	return AtomPos(w)
}

// ChildAt locates the child containing atom offset pos and returns its
// index together with the local offset inside that child. pos must be
// in [0, Width()).
func (p Pattern) ChildAt(pos AtomPos) (index int, local AtomPos) {
	off := AtomPos(0)
	for i, c := range p {
		next := off + AtomPos(c.Width)
		if pos < next {
			return i, pos - off
		}
		off = next
	}
	return len(p) - 1, AtomPos(p[len(p)-1].Width)
}

// Key returns a canonical string form of the exact child sequence,
// used as the deduplication index key. Two patterns share a key iff
// they reference the same children in the same order.
func (p Pattern) Key() string {
	var b strings.Builder
	for i, c := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", c.ID)
	}
	return b.String()
}

// Equal reports whether two patterns reference the same children in
// the same order.
func (p Pattern) Equal(o Pattern) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i].ID != o[i].ID {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the pattern.
func (p Pattern) Clone() Pattern {
	out := make(Pattern, len(p))
	copy(out, p)
	return out
}

// SubLocation identifies one occurrence of a child inside a pattern,
// relative to the pattern's owning entity: (pattern id, index).
type SubLocation struct {
	Pattern PatternID
	Index   int
}

// PatternLocation identifies one pattern of one entity.
type PatternLocation struct {
	Parent  Token
	Pattern PatternID
}

// ChildLocation identifies one occurrence of a child inside a specific
// pattern of a specific parent.
type ChildLocation struct {
	Parent  Token
	Pattern PatternID
	Index   int
}

// Sub returns the parent-relative part of the location.
func (l ChildLocation) Sub() SubLocation {
	return SubLocation{Pattern: l.Pattern, Index: l.Index}
}

// String returns a compact representation for logging.
func (l ChildLocation) String() string {
	return fmt.Sprintf("%v[p%d:%d]", l.Parent, l.Pattern, l.Index)
}

// ParentRef records where an entity occurs as a child of one specific
// parent: the parent's width plus the set of (pattern, index) slots.
type ParentRef struct {
	Width     int
	Locations map[SubLocation]struct{}
}

// clone returns a deep copy, used when snapshotting back-references.
func (p *ParentRef) clone() *ParentRef {
	locs := make(map[SubLocation]struct{}, len(p.Locations))
	for l := range p.Locations {
		locs[l] = struct{}{}
	}
	return &ParentRef{Width: p.Width, Locations: locs}
}
