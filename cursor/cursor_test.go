// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cursor

import (
	"testing"

	"github.com/AleutianAI/contextgraph/graph"
)

func TestQueryCursor_AdvanceAndMark(t *testing.T) {
	g := graph.New()
	q := NewQueryCursor(graph.Pattern{g.CreateAtom('a'), g.CreateAtom('b')})

	if q.Pos != 0 || q.Index != 0 {
		t.Fatalf("fresh cursor at index %d pos %d", q.Index, q.Pos)
	}
	q = q.MarkMatch()
	if q.Pos != 1 {
		t.Errorf("pos after first match = %d, want 1", q.Pos)
	}

	q2, ok := q.Advance()
	if !ok || q2.Index != 1 {
		t.Fatalf("Advance = (%v, %v)", q2, ok)
	}
	// Advancing past the end is a pure probe.
	q3, ok := q2.Advance()
	if ok {
		t.Error("advance past end should report exhaustion")
	}
	if q3.Index != q2.Index || q3.Pos != q2.Pos {
		t.Errorf("exhausted advance mutated the cursor: %v vs %v", q3, q2)
	}

	q2 = q2.MarkMatch()
	if !q2.Finished() {
		t.Errorf("cursor with all symbols confirmed should be finished: %v", q2)
	}
}

func TestChildCursor_AdvancePopsExhaustedLevels(t *testing.T) {
	g := graph.New()
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	c := g.CreateAtom('c')
	ab, abPID, _ := g.InsertPatternWithID(a, b)
	abc, abcPID, _ := g.InsertPatternWithID(ab, c)

	cur := NewChildCursor(graph.PatternLocation{Parent: abc, Pattern: abcPID}, 0, ab, 0)
	cur = cur.Descend(abPID, a)
	if cur.Entry != 0 {
		t.Errorf("entry after descent = %d, want 0", cur.Entry)
	}
	cur = cur.MarkMatch()
	if cur.Exit != 1 {
		t.Errorf("exit after matching a = %d, want 1", cur.Exit)
	}

	// Next sibling inside ab.
	next, ok := cur.Advance(g)
	if !ok {
		t.Fatal("expected to advance to b")
	}
	if next.Leaf != b || next.Entry != 1 {
		t.Errorf("leaf = %v entry = %d, want %v entry 1", next.Leaf, next.Entry, b)
	}

	// b exhausts ab; the next advance pops up to the root pattern.
	next = next.MarkMatch()
	next2, ok := next.Advance(g)
	if !ok {
		t.Fatal("expected to pop into the root pattern")
	}
	if next2.Leaf != c || next2.RootIndex != 1 || len(next2.Descent) != 0 {
		t.Errorf("after pop: leaf %v rootIndex %d descent %d", next2.Leaf, next2.RootIndex, len(next2.Descent))
	}
	if next2.Entry != 2 {
		t.Errorf("entry into c = %d, want 2", next2.Entry)
	}

	// Root pattern is exhausted after c.
	next2 = next2.MarkMatch()
	same, ok := next2.Advance(g)
	if ok {
		t.Error("advance past the root pattern should report exhaustion")
	}
	if same.Exit != next2.Exit || same.RootIndex != next2.RootIndex {
		t.Errorf("exhausted advance changed the cursor: %v vs %v", same, next2)
	}
}

func TestChildCursor_AdvanceDoesNotAliasDescent(t *testing.T) {
	g := graph.New()
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	c := g.CreateAtom('c')
	ab, abPID, _ := g.InsertPatternWithID(a, b)
	abc, abcPID, _ := g.InsertPatternWithID(ab, c)

	cur := NewChildCursor(graph.PatternLocation{Parent: abc, Pattern: abcPID}, 0, ab, 0)
	cur = cur.Descend(abPID, a).MarkMatch()

	next, ok := cur.Advance(g)
	if !ok {
		t.Fatal("advance failed")
	}
	if cur.Descent[0].Loc.Index != 0 {
		t.Errorf("advance mutated the original descent: %v", cur.Descent[0])
	}
	if next.Descent[0].Loc.Index != 1 {
		t.Errorf("advanced descent index = %d, want 1", next.Descent[0].Loc.Index)
	}
}

func TestCheckpointed_Contract(t *testing.T) {
	s := NewCheckpointed(10)
	if s.Tag() != TagMatched || s.Get() != 10 {
		t.Fatalf("fresh state: tag %v value %d", s.Tag(), s.Get())
	}

	// A failed probe changes nothing.
	if s.Advance(func(v int) (int, bool) { return 0, false }) {
		t.Error("failed probe reported success")
	}
	if s.Tag() != TagMatched || s.Get() != 10 || s.Checkpoint() != 10 {
		t.Errorf("failed probe mutated state: tag %v get %d checkpoint %d", s.Tag(), s.Get(), s.Checkpoint())
	}

	// A successful probe proposes a candidate without moving the
	// checkpoint.
	if !s.Advance(func(v int) (int, bool) { return v + 1, true }) {
		t.Fatal("probe failed")
	}
	if s.Tag() != TagCandidate || s.Get() != 11 || s.Checkpoint() != 10 {
		t.Errorf("candidate state: tag %v get %d checkpoint %d", s.Tag(), s.Get(), s.Checkpoint())
	}

	// Chained probes stack on the candidate.
	s.Advance(func(v int) (int, bool) { return v + 1, true })
	if s.Get() != 12 || s.Checkpoint() != 10 {
		t.Errorf("chained candidate: get %d checkpoint %d", s.Get(), s.Checkpoint())
	}

	// Mismatch falls back to the checkpoint.
	s.Mismatch()
	if s.Tag() != TagMismatched || s.Get() != 10 {
		t.Errorf("after mismatch: tag %v get %d", s.Tag(), s.Get())
	}

	// Confirm folds the candidate in.
	s.Advance(func(v int) (int, bool) { return v + 5, true })
	s.Confirm()
	if s.Tag() != TagMatched || s.Checkpoint() != 15 {
		t.Errorf("after confirm: tag %v checkpoint %d", s.Tag(), s.Checkpoint())
	}
}
