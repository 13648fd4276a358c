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

import "errors"

// Sentinel errors for store operations.
var (
	// ErrEntityNotFound is returned when an EntityID has no record in
	// the arena.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrPatternNotFound is returned when a PatternID does not exist on
	// the referenced entity.
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrEmptyPattern is returned when attempting to create or append a
	// pattern with no children.
	ErrEmptyPattern = errors.New("pattern must not be empty")

	// ErrSingletonPattern is returned when attempting to append a
	// pattern consisting of a single child to a composite. A composite
	// decomposing into exactly itself carries no structure.
	ErrSingletonPattern = errors.New("pattern must have at least two children")

	// ErrWidthMismatch is returned when an appended pattern's total
	// width differs from the entity's width. All patterns of one entity
	// must decompose the same content.
	ErrWidthMismatch = errors.New("pattern width does not match entity width")

	// ErrAtomPattern is returned when attempting to attach child
	// patterns to an atom.
	ErrAtomPattern = errors.New("atoms cannot have child patterns")

	// ErrInvalidRange is returned when a pattern range replacement is
	// out of bounds or empty.
	ErrInvalidRange = errors.New("invalid pattern range")

	// ErrTxnCommitted is returned when a transaction is used after
	// Commit.
	ErrTxnCommitted = errors.New("transaction already committed")
)
