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

import "errors"

var (
	// ErrEmptyQuery is returned when a query has no symbols.
	ErrEmptyQuery = errors.New("empty query")

	// ErrNoMatch is returned when no entity contains the first query
	// symbol. Mismatches past the first symbol are not errors; they
	// produce a partial Match instead.
	ErrNoMatch = errors.New("no matching ancestor")

	// ErrBudgetExceeded is returned when the frontier consumed its
	// step budget before terminating.
	ErrBudgetExceeded = errors.New("search step budget exceeded")
)
