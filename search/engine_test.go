// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/contextgraph/graph"
	"github.com/AleutianAI/contextgraph/trace"
)

func query(g *graph.Hypergraph, s string) graph.Pattern {
	p := make(graph.Pattern, 0, len(s))
	for _, r := range s {
		p = append(p, g.CreateAtom(r))
	}
	return p
}

func TestFindAncestor_EmptyQuery(t *testing.T) {
	e := NewEngine(graph.New())
	if _, err := e.FindAncestor(context.Background(), nil); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
}

func TestFindAncestor_NoMatch(t *testing.T) {
	g := graph.New()
	e := NewEngine(g)

	// Unknown leading symbol.
	if _, err := e.FindSequence(context.Background(), "zz"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("error = %v, want ErrNoMatch", err)
	}

	// Known atom with no containing entity.
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	if _, err := e.FindAncestor(context.Background(), graph.Pattern{a, b}); !errors.Is(err, ErrNoMatch) {
		t.Errorf("error = %v, want ErrNoMatch", err)
	}
}

func TestFindAncestor_SingleSymbol(t *testing.T) {
	g := graph.New()
	a := g.CreateAtom('a')
	e := NewEngine(g)

	m, err := e.FindAncestor(context.Background(), graph.Pattern{a})
	if err != nil {
		t.Fatalf("FindAncestor: %v", err)
	}
	if m.Root != a || m.Coverage != CoverageEntire || !m.QueryExhausted {
		t.Errorf("match = %+v, want entire exhausted self-match", m)
	}
}

func TestFindAncestor_EntireAfterEscalation(t *testing.T) {
	g := graph.New()
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	c := g.CreateAtom('c')
	ab, _ := g.InsertPattern(a, b)
	abc, _ := g.InsertPattern(ab, c)

	m, err := NewEngine(g).FindSequence(context.Background(), "abc")
	if err != nil {
		t.Fatalf("FindSequence: %v", err)
	}
	if m.Root != abc {
		t.Errorf("root = %v, want %v", m.Root, abc)
	}
	if m.Coverage != CoverageEntire || !m.QueryExhausted {
		t.Errorf("coverage = %v exhausted = %v, want entire/true", m.Coverage, m.QueryExhausted)
	}
	if m.Start != 0 || m.End != 3 || m.Matched != 3 {
		t.Errorf("span = [%d,%d) matched %d, want [0,3) 3", m.Start, m.End, m.Matched)
	}
}

// Prefix scenario: heldld = [h, e, ld, ld]. The query [h, e, l, l]
// matches three atoms; the path into the ld child must record entry
// position 2, the cumulative width consumed before entering it.
func TestFindAncestor_PrefixIntoSharedChild(t *testing.T) {
	g := graph.New()
	h := g.CreateAtom('h')
	e := g.CreateAtom('e')
	l := g.CreateAtom('l')
	d := g.CreateAtom('d')
	ld, _ := g.InsertPattern(l, d)
	heldld, _ := g.InsertPattern(h, e, ld, ld)

	m, err := NewEngine(g).FindAncestor(context.Background(), graph.Pattern{h, e, l, l})
	if err != nil {
		t.Fatalf("FindAncestor: %v", err)
	}
	if m.Root != heldld {
		t.Fatalf("root = %v, want %v", m.Root, heldld)
	}
	if m.Coverage != CoveragePrefix || m.QueryExhausted {
		t.Errorf("coverage = %v exhausted = %v, want prefix/false", m.Coverage, m.QueryExhausted)
	}
	if m.Matched != 3 || m.Start != 0 || m.End != 3 {
		t.Errorf("span = [%d,%d) matched %d, want [0,3) 3", m.Start, m.End, m.Matched)
	}

	// The descent into ld was entered after h and e, at position 2.
	leaf, ok := m.Cursor.Descent.Leaf()
	if !ok {
		t.Fatal("terminal cursor has no descent into ld")
	}
	if leaf.Loc.Parent != ld {
		t.Errorf("descent parent = %v, want %v", leaf.Loc.Parent, ld)
	}
	if leaf.Entry != 2 {
		t.Errorf("entry position into ld = %d, want 2", leaf.Entry)
	}

	vc, ok := m.Trace.Vertex(ld.ID)
	if !ok {
		t.Fatal("trace cache has no vertex for ld")
	}
	if edges := vc.Edges(trace.Down, 2); len(edges) != 1 || edges[0].Target != l {
		t.Errorf("top-down edges of ld at 2 = %v, want one edge to %v", edges, l)
	}
}

// Range scenario: xabyz = [xab, yz]. The query [a, b, y, x] matches
// three atoms across the xab/yz boundary; both boundary entities must
// be keyed at atom position 2 in the trace cache.
func TestFindAncestor_RangeAcrossBoundary(t *testing.T) {
	g := graph.New()
	x := g.CreateAtom('x')
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	y := g.CreateAtom('y')
	z := g.CreateAtom('z')
	xab, _ := g.InsertPattern(x, a, b)
	yz, _ := g.InsertPattern(y, z)
	xabyz, _ := g.InsertPattern(xab, yz)

	m, err := NewEngine(g).FindAncestor(context.Background(), graph.Pattern{a, b, y, x})
	if err != nil {
		t.Fatalf("FindAncestor: %v", err)
	}
	if m.Root != xabyz {
		t.Fatalf("root = %v, want %v", m.Root, xabyz)
	}
	if m.Coverage != CoverageRange || m.QueryExhausted {
		t.Errorf("coverage = %v exhausted = %v, want range/false", m.Coverage, m.QueryExhausted)
	}
	if m.Matched != 3 || m.Start != 1 || m.End != 4 {
		t.Errorf("span = [%d,%d) matched %d, want [1,4) 3", m.Start, m.End, m.Matched)
	}

	// Escalation from xab happened at position 2.
	xabVC, ok := m.Trace.Vertex(xab.ID)
	if !ok {
		t.Fatal("trace cache has no vertex for xab")
	}
	upEdges := xabVC.Edges(trace.Up, 2)
	if len(upEdges) != 1 || upEdges[0].Target != xabyz {
		t.Errorf("bottom-up edges of xab at 2 = %v, want one edge to %v", upEdges, xabyz)
	}

	// Descent into yz happened at the same position.
	yzVC, ok := m.Trace.Vertex(yz.ID)
	if !ok {
		t.Fatal("trace cache has no vertex for yz")
	}
	downEdges := yzVC.Edges(trace.Down, 2)
	if len(downEdges) != 1 || downEdges[0].Target != y {
		t.Errorf("top-down edges of yz at 2 = %v, want one edge to %v", downEdges, y)
	}
}

// Converging escalations share one frontier node: both occurrences of
// x inside p's two patterns escalate to the same (entity, position)
// key, and the deduplicated node is still expanded toward p's own
// parent.
func TestFindAncestor_ConvergingEscalationsExpandOnce(t *testing.T) {
	g := graph.New()
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	c := g.CreateAtom('c')
	e := g.CreateAtom('e')
	w := g.CreateAtom('w')
	q := g.CreateAtom('q')
	x, _ := g.InsertPattern(a, b)
	p, _ := g.InsertPattern(c, x)
	if _, err := g.AppendPattern(p, e, x); err != nil {
		t.Fatalf("AppendPattern: %v", err)
	}
	outer, _ := g.InsertPattern(p, w)

	m, err := NewEngine(g).FindAncestor(context.Background(), graph.Pattern{a, b, q})
	if err != nil {
		t.Fatalf("FindAncestor: %v", err)
	}
	if m.Matched != 2 {
		t.Errorf("matched = %d, want 2", m.Matched)
	}

	// Both occurrences recorded their escalation edge out of x.
	xVC, ok := m.Trace.Vertex(x.ID)
	if !ok {
		t.Fatal("trace cache has no vertex for x")
	}
	if edges := xVC.Edges(trace.Up, 2); len(edges) != 2 {
		t.Errorf("bottom-up edges of x at 2 = %v, want two edges into %v", edges, p)
	}

	// The converged node expanded exactly once: p carries its own
	// escalation edge toward the outer entity.
	pVC, ok := m.Trace.Vertex(p.ID)
	if !ok {
		t.Fatal("trace cache has no vertex for p")
	}
	if edges := pVC.Edges(trace.Up, 2); len(edges) != 1 || edges[0].Target != outer {
		t.Errorf("bottom-up edges of p at 2 = %v, want one edge to %v", edges, outer)
	}
}

func TestFindAncestor_PostfixPartial(t *testing.T) {
	g := graph.New()
	x := g.CreateAtom('x')
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	xab, _ := g.InsertPattern(x, a, b)

	// [a, b] consumes xab to its end without consuming the query's
	// trailing novel symbol.
	q := g.CreateAtom('q')
	m, err := NewEngine(g).FindAncestor(context.Background(), graph.Pattern{a, b, q})
	if err != nil {
		t.Fatalf("FindAncestor: %v", err)
	}
	if m.Root != xab || m.Coverage != CoveragePostfix {
		t.Errorf("match = %v, want postfix of %v", m, xab)
	}
	if m.QueryExhausted || m.Matched != 2 {
		t.Errorf("exhausted = %v matched = %d, want false/2", m.QueryExhausted, m.Matched)
	}
}

func TestFindAncestor_QueryExhaustedMidStructure(t *testing.T) {
	g := graph.New()
	h := g.CreateAtom('h')
	e := g.CreateAtom('e')
	l := g.CreateAtom('l')
	d := g.CreateAtom('d')
	ld, _ := g.InsertPattern(l, d)
	heldld, _ := g.InsertPattern(h, e, ld, ld)

	m, err := NewEngine(g).FindAncestor(context.Background(), graph.Pattern{h, e, l})
	if err != nil {
		t.Fatalf("FindAncestor: %v", err)
	}
	if m.Root != heldld || m.Coverage != CoveragePrefix {
		t.Errorf("match = %v, want prefix of %v", m, heldld)
	}
	if !m.QueryExhausted {
		t.Error("query fully consumed but not reported exhausted")
	}
	if m.End != 3 {
		t.Errorf("end = %d, want 3", m.End)
	}
}

func TestFindAncestor_StepBudget(t *testing.T) {
	g := graph.New()
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	c := g.CreateAtom('c')
	ab, _ := g.InsertPattern(a, b)
	if _, err := g.InsertPattern(ab, c); err != nil {
		t.Fatalf("InsertPattern: %v", err)
	}

	e := NewEngine(g, WithStepBudget(0))
	_, err := e.FindSequence(context.Background(), "abc")
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("error = %v, want ErrBudgetExceeded", err)
	}
}

func TestFindAncestor_ContextCancelled(t *testing.T) {
	g := graph.New()
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	if _, err := g.InsertPattern(a, b); err != nil {
		t.Fatalf("InsertPattern: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(g).FindAncestor(ctx, graph.Pattern{a, b})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestFindAncestor_DeterministicTieBreak(t *testing.T) {
	g := graph.New()
	a := g.CreateAtom('a')
	b := g.CreateAtom('b')
	c := g.CreateAtom('c')
	d := g.CreateAtom('d')
	// Two parents both contain [a, b] entirely.
	first, _ := g.InsertPattern(a, b, c)
	if _, err := g.InsertPattern(a, b, d); err != nil {
		t.Fatalf("InsertPattern: %v", err)
	}

	m, err := NewEngine(g).FindAncestor(context.Background(), graph.Pattern{a, b})
	if err != nil {
		t.Fatalf("FindAncestor: %v", err)
	}
	if m.Root != first {
		t.Errorf("tie broke to %v, want insertion-order winner %v", m.Root, first)
	}
	if m.Coverage != CoveragePrefix || !m.QueryExhausted {
		t.Errorf("coverage = %v exhausted = %v, want prefix/true", m.Coverage, m.QueryExhausted)
	}
}
