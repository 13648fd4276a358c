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
	"fmt"

	"github.com/AleutianAI/contextgraph/cursor"
	"github.com/AleutianAI/contextgraph/graph"
	"github.com/AleutianAI/contextgraph/trace"
)

// Coverage classifies how a matched region relates to the full extent
// of its containing entity.
type Coverage int

const (
	// CoverageEntire means the region is the whole entity.
	CoverageEntire Coverage = iota
	// CoveragePrefix means the region is a leading sub-range.
	CoveragePrefix
	// CoveragePostfix means the region is a trailing sub-range.
	CoveragePostfix
	// CoverageRange means the region is interior, bounded on both
	// sides.
	CoverageRange
)

func (c Coverage) String() string {
	switch c {
	case CoverageEntire:
		return "entire"
	case CoveragePrefix:
		return "prefix"
	case CoveragePostfix:
		return "postfix"
	default:
		return "range"
	}
}

// classify compares a matched span against the total width of its
// container. It is computed once, at search termination.
func classify(start, end graph.AtomPos, total int) Coverage {
	switch {
	case start == 0 && end == graph.AtomPos(total):
		return CoverageEntire
	case start == 0:
		return CoveragePrefix
	case end == graph.AtomPos(total):
		return CoveragePostfix
	default:
		return CoverageRange
	}
}

// Match is the terminal output of an ancestor search.
type Match struct {
	// Root is the final containing entity and Pattern the
	// decomposition the match ran along.
	Root    graph.Token
	Pattern graph.PatternID

	// Start and End bound the matched region inside Root, in atom
	// offsets from Root's beginning.
	Start graph.AtomPos
	End   graph.AtomPos

	// Matched counts the query atoms confirmed; QueryExhausted
	// reports whether that is every atom the query had.
	Matched        graph.AtomPos
	QueryExhausted bool

	Coverage Coverage

	// Cursor is the terminal child cursor, positions query-relative.
	Cursor cursor.ChildCursor
	// Trace is the visited-set cache accumulated by the traversal.
	Trace *trace.Cache
}

func (m Match) String() string {
	return fmt.Sprintf("%s match of %d atoms in %v[%d..%d]", m.Coverage, m.Matched, m.Root, m.Start, m.End)
}
