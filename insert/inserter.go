// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package insert extends the hierarchy with new sequences while
// preserving the no-duplication invariant.
//
// # Description
//
// An insertion first runs ancestor search to find the best existing
// overlap. A sequence that is already indexed resolves to its entity
// without any mutation. Otherwise the partition engine aligns the
// required boundaries with existing pattern structure, creating only
// the target, wrapper, inner and overlap entities the alignment
// demands, and rewrites the affected parent pattern by reference
// substitution.
//
// # Thread Safety
//
// An Inserter is safe for concurrent use. Each insertion holds the
// graph's writer transaction from before its search until commit, so
// its write set becomes visible atomically.
package insert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/contextgraph/graph"
	"github.com/AleutianAI/contextgraph/search"
)

// DefaultBatchConcurrency bounds the goroutines InsertAll spawns.
const DefaultBatchConcurrency = 8

// Inserter indexes new sequences into one graph.
type Inserter struct {
	g      *graph.Hypergraph
	search *search.Engine
	batch  int
}

// Option configures an Inserter.
type Option func(*Inserter)

// WithBatchConcurrency overrides the InsertAll goroutine bound.
func WithBatchConcurrency(n int) Option {
	return func(i *Inserter) {
		if n > 0 {
			i.batch = n
		}
	}
}

// WithSearchEngine substitutes the engine used to find overlaps.
func WithSearchEngine(e *search.Engine) Option {
	return func(i *Inserter) { i.search = e }
}

// New creates an Inserter over g.
func New(g *graph.Hypergraph, opts ...Option) *Inserter {
	ins := &Inserter{
		g:      g,
		search: search.NewEngine(g),
		batch:  DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(ins)
	}
	return ins
}

// Insert indexes a symbol string and returns the entity for the exact
// sequence, which may already have existed.
func (i *Inserter) Insert(ctx context.Context, symbols string) (graph.Token, error) {
	if len(symbols) == 0 {
		return graph.Token{}, ErrEmptySequence
	}
	return i.InsertTokens(ctx, graph.Pattern(i.g.CreateAtoms(symbols)))
}

// InsertTokens indexes a sequence of entity references. Composite
// references are matched as stored units during overlap search; the
// result flattens to the concatenation of the inputs.
func (i *Inserter) InsertTokens(ctx context.Context, seq graph.Pattern) (graph.Token, error) {
	start := time.Now()
	ctx, span := startInsertSpan(ctx, "Insert")
	defer span.End()

	if len(seq) == 0 {
		return graph.Token{}, ErrEmptySequence
	}
	if len(seq) == 1 {
		recordInsert(ctx, time.Since(start), true)
		return seq[0], nil
	}

	// The writer transaction opens before the search so the overlap it
	// finds cannot be restructured underneath the partition engine.
	txn := i.g.Begin()
	defer txn.Abort()

	m, err := i.search.FindAncestor(ctx, seq)
	if errors.Is(err, search.ErrNoMatch) {
		tok := txn.GetOrCreate(seq)
		if err := txn.Commit(); err != nil {
			return graph.Token{}, err
		}
		recordInsert(ctx, time.Since(start), false)
		return tok, nil
	}
	if err != nil {
		return graph.Token{}, err
	}

	if m.QueryExhausted && m.Coverage == search.CoverageEntire {
		// Idempotence: the sequence is already indexed.
		recordInsert(ctx, time.Since(start), true)
		return m.Root, nil
	}

	spanTok, err := i.partition(txn, m.Root, m.Pattern, m.Start, m.End)
	if err != nil {
		return graph.Token{}, err
	}

	result := spanTok
	if !m.QueryExhausted {
		// The overlap covers only a leading part of the sequence; the
		// remainder hangs off a fresh root. Matched counts atoms and
		// always lands on a token boundary of the query.
		cut, consumed := 0, graph.AtomPos(0)
		for consumed < m.Matched {
			consumed += graph.AtomPos(seq[cut].Width)
			cut++
		}
		rest := seq[cut:]
		p := make(graph.Pattern, 0, len(rest)+1)
		p = append(p, spanTok)
		p = append(p, rest...)
		result = txn.GetOrCreate(p)
	}

	if err := txn.Commit(); err != nil {
		return graph.Token{}, err
	}
	recordInsert(ctx, time.Since(start), false)
	slog.Debug("indexed sequence",
		slog.Int("symbols", seq.Width()),
		slog.String("coverage", m.Coverage.String()),
		slog.Bool("overlap_exhausted", m.QueryExhausted))
	return result, nil
}

// InsertAll indexes a batch of sequences and returns their entities in
// input order. The first failure cancels the batch.
func (i *Inserter) InsertAll(ctx context.Context, sequences []string) ([]graph.Token, error) {
	out := make([]graph.Token, len(sequences))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(i.batch)
	for idx, s := range sequences {
		eg.Go(func() error {
			tok, err := i.Insert(ctx, s)
			if err != nil {
				return fmt.Errorf("sequence %d: %w", idx, err)
			}
			out[idx] = tok
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
