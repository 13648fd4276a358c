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

import "github.com/AleutianAI/contextgraph/graph"

// QueryCursor walks the flat query sequence. Pos counts the atoms
// confirmed so far and only moves in MarkMatch.
type QueryCursor struct {
	Query graph.Pattern
	Index int
	Pos   graph.AtomPos
}

// NewQueryCursor positions a cursor on the first query symbol.
func NewQueryCursor(query graph.Pattern) QueryCursor {
	return QueryCursor{Query: query}
}

// Symbol returns the query symbol under the cursor.
func (q QueryCursor) Symbol() graph.Token {
	return q.Query[q.Index]
}

// Advance moves to the next query symbol, reporting Exhausted (false)
// when none remains. Exhaustion returns the receiver unchanged.
func (q QueryCursor) Advance() (QueryCursor, bool) {
	if q.Index+1 >= len(q.Query) {
		return q, false
	}
	q.Index++
	return q, true
}

// MarkMatch consumes the current symbol, advancing the confirmed atom
// position by its width.
func (q QueryCursor) MarkMatch() QueryCursor {
	q.Pos += graph.AtomPos(q.Symbol().Width)
	return q
}

// Finished reports whether every query symbol has been confirmed.
func (q QueryCursor) Finished() bool {
	return q.Pos == graph.AtomPos(q.Query.Width())
}
