// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package insert

import (
	"fmt"

	"github.com/AleutianAI/contextgraph/graph"
)

// partition returns the entity for atoms [lo, hi) of the located
// pattern, creating the minimal set of new entities needed to align
// those boundaries with existing structure.
//
// A boundary that falls on an existing child edge is perfect and needs
// no restructuring. An imperfect boundary cuts through a child; the
// cut child is split, and a wrapper entity extends the target out to
// the nearest aligned edges so the parent pattern can be rewritten by
// substituting a single reference. Partitions merely covered by a
// required partition are never materialized.
func (i *Inserter) partition(txn *graph.Txn, root graph.Token, pid graph.PatternID, lo, hi graph.AtomPos) (graph.Token, error) {
	if lo == 0 && hi == graph.AtomPos(root.Width) {
		return root, nil
	}
	p, err := i.pattern(root.ID, pid)
	if err != nil {
		return graph.Token{}, err
	}
	if lo < 0 || hi > graph.AtomPos(p.Width()) || lo >= hi {
		return graph.Token{}, fmt.Errorf("%w: [%d, %d) of width %d", graph.ErrInvalidRange, lo, hi, p.Width())
	}

	headIdx, headLocal := p.ChildAt(lo)
	tailIdx, _ := p.ChildAt(hi - 1)
	tailCut := hi - p.OffsetOf(tailIdx)
	headPerfect := headLocal == 0
	tailPerfect := tailCut == graph.AtomPos(p[tailIdx].Width)

	// The range lives inside a single child: recurse into it.
	if headIdx == tailIdx && !(headPerfect && tailPerfect) {
		child := p[headIdx]
		off := p.OffsetOf(headIdx)
		v, err := i.g.Vertex(child.ID)
		if err != nil {
			return graph.Token{}, err
		}
		cpid, _, ok := v.FirstPattern()
		if !ok {
			return graph.Token{}, fmt.Errorf("%w: cutting inside atom %v", graph.ErrInvalidRange, child)
		}
		return i.partition(txn, child, cpid, lo-off, hi-off)
	}

	// Overlap: the children the range covers entirely.
	middleFrom, middleTo := headIdx, tailIdx+1
	if !headPerfect {
		middleFrom = headIdx + 1
	}
	if !tailPerfect {
		middleTo = tailIdx
	}
	var overlap graph.Token
	hasOverlap := middleTo > middleFrom
	if hasOverlap {
		overlap = txn.GetOrCreate(p[middleFrom:middleTo])
	}

	// Inner partitions: the halves of each cut child.
	var headLeft, headRight, tailLeft, tailRight graph.Token
	if !headPerfect {
		headLeft, headRight, err = i.split(txn, p[headIdx], headLocal)
		if err != nil {
			return graph.Token{}, err
		}
	}
	if !tailPerfect {
		tailLeft, tailRight, err = i.split(txn, p[tailIdx], tailCut)
		if err != nil {
			return graph.Token{}, err
		}
	}

	// Target: the requested sub-sequence.
	var tparts graph.Pattern
	if !headPerfect {
		tparts = append(tparts, headRight)
	}
	if hasOverlap {
		tparts = append(tparts, overlap)
	}
	if !tailPerfect {
		tparts = append(tparts, tailLeft)
	}
	target := txn.GetOrCreate(tparts)

	loc := graph.PatternLocation{Parent: root, Pattern: pid}
	if headPerfect && tailPerfect {
		if tailIdx+1-headIdx > 1 {
			if err := txn.ReplaceRange(loc, headIdx, tailIdx+1, target); err != nil {
				return graph.Token{}, err
			}
		}
		return target, nil
	}

	// Wrapper: the target extended to the nearest aligned edges, with
	// a second pattern preserving the original cut children.
	aligned := make(graph.Pattern, 0, 3)
	if !headPerfect {
		aligned = append(aligned, headLeft)
	}
	aligned = append(aligned, target)
	if !tailPerfect {
		aligned = append(aligned, tailRight)
	}
	// An aligned range spanning the whole pattern gets no separate
	// wrapper: it would flatten to the same atoms as root itself. The
	// root gains the aligned decomposition instead and keeps its place
	// in the hierarchy.
	if headIdx == 0 && tailIdx == len(p)-1 {
		if err := txn.AppendPattern(root, aligned); err != nil {
			return graph.Token{}, err
		}
		return target, nil
	}

	wrapper := txn.GetOrCreate(aligned)

	original := make(graph.Pattern, 0, 3)
	if !headPerfect {
		original = append(original, p[headIdx])
	}
	if hasOverlap {
		original = append(original, overlap)
	}
	if !tailPerfect {
		original = append(original, p[tailIdx])
	}
	if len(original) > 1 && !original.Equal(aligned) {
		if err := txn.AppendPattern(wrapper, original.Clone()); err != nil {
			return graph.Token{}, err
		}
	}

	if err := txn.ReplaceRange(loc, headIdx, tailIdx+1, wrapper); err != nil {
		return graph.Token{}, err
	}
	return target, nil
}

// split divides an entity at an interior atom offset, returning the
// entities for its two halves. A pattern that already has a child edge
// at the offset makes the split perfect; otherwise the cut child is
// split recursively and the entity gains a two-child pattern exposing
// the new boundary.
func (i *Inserter) split(txn *graph.Txn, e graph.Token, off graph.AtomPos) (graph.Token, graph.Token, error) {
	if off <= 0 || off >= graph.AtomPos(e.Width) {
		return graph.Token{}, graph.Token{}, fmt.Errorf("%w: splitting %v at %d", graph.ErrInvalidRange, e, off)
	}

	v, err := i.g.Vertex(e.ID)
	if err != nil {
		return graph.Token{}, graph.Token{}, err
	}
	_, patterns := v.Patterns()

	// Perfect split: some pattern already has the boundary.
	for _, p := range patterns {
		for k := 1; k < len(p); k++ {
			if p.OffsetOf(k) == off {
				return txn.GetOrCreate(p[:k]), txn.GetOrCreate(p[k:]), nil
			}
		}
	}

	// Imperfect: cut through the oldest pattern's covering child.
	if len(patterns) == 0 {
		return graph.Token{}, graph.Token{}, fmt.Errorf("%w: splitting atom %v", graph.ErrAtomPattern, e)
	}
	p := patterns[0]
	k, local := p.ChildAt(off)
	innerLeft, innerRight, err := i.split(txn, p[k], local)
	if err != nil {
		return graph.Token{}, graph.Token{}, err
	}

	left := txn.GetOrCreate(append(p[:k:k], innerLeft))
	rightPattern := make(graph.Pattern, 0, len(p)-k)
	rightPattern = append(rightPattern, innerRight)
	rightPattern = append(rightPattern, p[k+1:]...)
	right := txn.GetOrCreate(rightPattern)

	if err := txn.AppendPattern(e, graph.Pattern{left, right}); err != nil {
		return graph.Token{}, graph.Token{}, err
	}
	return left, right, nil
}

func (i *Inserter) pattern(id graph.EntityID, pid graph.PatternID) (graph.Pattern, error) {
	v, err := i.g.Vertex(id)
	if err != nil {
		return nil, err
	}
	p, ok := v.Pattern(pid)
	if !ok {
		return nil, graph.ErrPatternNotFound
	}
	return p, nil
}
