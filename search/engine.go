// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search locates a query sequence inside the hierarchy.
//
// # Description
//
// The engine drives rounds of the compare state machine across a
// breadth-first frontier of candidate containing entities. A round
// walks one pattern of one candidate, symbol by symbol, decomposing
// composite children down to query granularity. When a round consumes
// its whole candidate with query symbols left, the search escalates to
// the candidate's parents at the same atom position. The trace cache
// deduplicates (entity, direction, position) visits, which bounds the
// traversal on graphs with shared sub-structure.
//
// Mismatches are values, not errors: a failed branch contributes its
// best partial match, and the search as a whole only fails when no
// entity contains even the first query symbol.
//
// # Thread Safety
//
// An Engine is stateless between calls and safe for concurrent use;
// each search owns its frontier and trace cache.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/contextgraph/cursor"
	"github.com/AleutianAI/contextgraph/graph"
	"github.com/AleutianAI/contextgraph/trace"
)

// DefaultStepBudget bounds frontier expansions per search.
const DefaultStepBudget = 1 << 16

// Engine runs ancestor searches against one graph.
type Engine struct {
	g      *graph.Hypergraph
	budget int
}

// Option configures an Engine.
type Option func(*Engine)

// WithStepBudget overrides the frontier step budget.
func WithStepBudget(n int) Option {
	return func(e *Engine) { e.budget = n }
}

// NewEngine creates a search engine over g.
func NewEngine(g *graph.Hypergraph, opts ...Option) *Engine {
	e := &Engine{g: g, budget: DefaultStepBudget}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// frontierNode is one escalation candidate: an entity whose trailing
// atoms are exactly the query atoms confirmed so far.
type frontierNode struct {
	span graph.Token
	q    cursor.QueryCursor
}

// FindSequence resolves a symbol string against the graph's atoms and
// searches for it. Symbols with no atom yet cannot match; they are
// mapped to a token no stored entity owns.
func (e *Engine) FindSequence(ctx context.Context, symbols string) (Match, error) {
	query := make(graph.Pattern, 0, len(symbols))
	for _, r := range symbols {
		tok, ok := e.g.AtomToken(r)
		if !ok {
			tok = graph.Token{ID: -1, Width: 1}
		}
		query = append(query, tok)
	}
	return e.FindAncestor(ctx, query)
}

// FindAncestor searches for the query sequence inside the hierarchy
// and returns the classified best match.
//
// The accepted result is the maximal one: the first full-query match
// found, or the longest partial match when no branch consumed the
// query. Ties fall back to insertion order, which is the order parent
// locations enumerate in.
//
// Stored structure is decomposed down to each query symbol's width;
// query symbols themselves are matched as units, so a composite query
// symbol wider than the stored leaf under comparison mismatches
// rather than being decomposed.
func (e *Engine) FindAncestor(ctx context.Context, query graph.Pattern) (Match, error) {
	start := time.Now()
	ctx, span := startSearchSpan(ctx, "FindAncestor")
	defer span.End()

	if len(query) == 0 {
		return Match{}, ErrEmptyQuery
	}
	first := query[0]
	if _, err := e.g.Vertex(first.ID); err != nil {
		return Match{}, fmt.Errorf("%w: first symbol %v", ErrNoMatch, first)
	}

	cache := trace.New(first)
	if len(query) == 1 {
		m := Match{
			Root:           first,
			Start:          0,
			End:            graph.AtomPos(first.Width),
			Matched:        graph.AtomPos(first.Width),
			QueryExhausted: true,
			Coverage:       CoverageEntire,
			Trace:          cache,
		}
		recordSearch(ctx, time.Since(start), 0, true)
		return m, nil
	}

	q0 := cursor.NewQueryCursor(query).MarkMatch()
	frontier := []frontierNode{{span: first, q: q0}}
	// A node's bottom-up key is marked in the cache when it joins the
	// frontier, so converging branches expand once.
	cache.MarkVisited(trace.DirectedKey{Entity: first.ID, Dir: trace.Up, Pos: q0.Pos})

	var best *Match
	steps := 0
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		if steps >= e.budget {
			return Match{}, fmt.Errorf("%w: %d steps", ErrBudgetExceeded, steps)
		}
		steps++

		n := frontier[0]
		frontier = frontier[1:]

		locs, err := e.g.ParentLocations(n.span)
		if err != nil {
			continue
		}
		for _, loc := range locs {
			cache.AddEdge(
				trace.DirectedKey{Entity: n.span.ID, Dir: trace.Up, Pos: n.q.Pos},
				trace.Edge{Target: loc.Parent, Sub: loc.Sub()},
			)

			out, err := e.runRound(ctx, cache, n, loc)
			if err != nil {
				return Match{}, err
			}
			if out.success != nil {
				out.success.Trace = cache
				recordSearch(ctx, time.Since(start), steps, true)
				slog.Debug("ancestor search matched",
					slog.String("coverage", out.success.Coverage.String()),
					slog.Int("steps", steps))
				return *out.success, nil
			}
			if out.escalate != nil {
				key := trace.DirectedKey{
					Entity: out.escalate.span.ID,
					Dir:    trace.Up,
					Pos:    out.escalate.q.Pos,
				}
				if cache.MarkVisited(key) {
					frontier = append(frontier, *out.escalate)
				} else {
					recordDedupe(ctx)
				}
			}
			if out.partial != nil {
				best = betterMatch(best, out.partial)
			}
		}
	}

	recordSearch(ctx, time.Since(start), steps, best != nil)
	if best != nil {
		best.Trace = cache
		return *best, nil
	}
	return Match{}, ErrNoMatch
}

// betterMatch keeps the longer match; equal lengths keep the earlier
// one.
func betterMatch(cur, cand *Match) *Match {
	if cur == nil || cand.Matched > cur.Matched {
		return cand
	}
	return cur
}

type roundOutcome struct {
	success  *Match
	partial  *Match
	escalate *frontierNode
}

// runRound walks one candidate pattern from the occurrence of the
// already-matched span. The state machine holds one checkpointed
// cursor per axis; confirmed positions only ever move in the
// mark-match step, by exactly the width of the matched symbol.
func (e *Engine) runRound(ctx context.Context, cache *trace.Cache, n frontierNode, loc graph.ChildLocation) (roundOutcome, error) {
	g := e.g
	root := graph.PatternLocation{Parent: loc.Parent, Pattern: loc.Pattern}
	p, err := e.pattern(root.Parent.ID, root.Pattern)
	if err != nil {
		return roundOutcome{}, err
	}

	matched := n.q.Pos
	regionStart := p.OffsetOf(loc.Index) + graph.AtomPos(n.span.Width) - matched

	cc := cursor.NewChildCursor(root, loc.Index, n.span, 0)
	cc.Exit = matched

	qck := cursor.NewCheckpointed(n.q)
	cck := cursor.NewCheckpointed(cc)

	for {
		if err := ctx.Err(); err != nil {
			return roundOutcome{}, err
		}

		// advance_query: no next symbol means the query is consumed.
		if !qck.Advance(func(q cursor.QueryCursor) (cursor.QueryCursor, bool) { return q.Advance() }) {
			m := e.terminalMatch(root, regionStart, qck.Checkpoint(), cck.Checkpoint(), true)
			return roundOutcome{success: &m}, nil
		}

		// advance_child: structural exhaustion escalates to parents of
		// the now fully-consumed candidate.
		if !cck.Advance(func(c cursor.ChildCursor) (cursor.ChildCursor, bool) { return c.Advance(g) }) {
			qck.Mismatch()
			m := e.terminalMatch(root, regionStart, qck.Checkpoint(), cck.Checkpoint(), false)
			node := frontierNode{span: root.Parent, q: qck.Checkpoint()}
			return roundOutcome{escalate: &node, partial: &m}, nil
		}

		// Decompose the candidate child down to the query symbol's
		// granularity, recording each descent.
		cand := cck.Get()
		sym := qck.Get().Symbol()
		decomposed := true
		for cand.Leaf.Width > sym.Width {
			v, err := g.Vertex(cand.Leaf.ID)
			if err != nil {
				decomposed = false
				break
			}
			pcs := v.PrefixChildren()
			if len(pcs) == 0 {
				decomposed = false
				break
			}
			pc := pcs[0]
			child, err := e.pattern(cand.Leaf.ID, pc.Pattern)
			if err != nil || len(child) == 0 {
				decomposed = false
				break
			}
			cache.AddEdge(
				trace.DirectedKey{Entity: cand.Leaf.ID, Dir: trace.Down, Pos: cand.Exit},
				trace.Edge{Target: child[0], Sub: graph.SubLocation{Pattern: pc.Pattern, Index: 0}},
			)
			cand = cand.Descend(pc.Pattern, child[0])
		}

		if decomposed && cand.Leaf == sym {
			qck.Propose(qck.Get().MarkMatch())
			cck.Propose(cand.MarkMatch())
			qck.Confirm()
			cck.Confirm()
			continue
		}

		// Mismatch: fall back to the checkpoints and report the
		// partial result. No error; the caller tries other branches.
		qck.Mismatch()
		cck.Mismatch()
		m := e.terminalMatch(root, regionStart, qck.Checkpoint(), cck.Checkpoint(), false)
		return roundOutcome{partial: &m}, nil
	}
}

func (e *Engine) pattern(id graph.EntityID, pid graph.PatternID) (graph.Pattern, error) {
	v, err := e.g.Vertex(id)
	if err != nil {
		return nil, err
	}
	p, ok := v.Pattern(pid)
	if !ok {
		return nil, graph.ErrPatternNotFound
	}
	return p, nil
}

// terminalMatch classifies a finished round against its root's full
// extent.
func (e *Engine) terminalMatch(root graph.PatternLocation, regionStart graph.AtomPos, q cursor.QueryCursor, cc cursor.ChildCursor, exhausted bool) Match {
	end := regionStart + q.Pos
	return Match{
		Root:           root.Parent,
		Pattern:        root.Pattern,
		Start:          regionStart,
		End:            end,
		Matched:        q.Pos,
		QueryExhausted: exhausted,
		Coverage:       classify(regionStart, end, root.Parent.Width),
		Cursor:         cc,
	}
}
