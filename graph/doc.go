// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph implements the entity store of the sequence hypergraph.
//
// The store owns every entity in a single arena keyed by EntityID. An
// entity is either an atom (an indivisible symbol, width 1) or a
// composite that owns one or more patterns: alternative, width-equal
// decompositions into ordered child references. Every repeated
// sub-sequence of symbols is represented by exactly one shared entity.
//
// # Ownership Model
//
// Entities never hold pointers to each other. Both directions of the
// parent/child relationship are identity lookups into the arena:
//   - Forward: pattern -> ordered child Tokens (EntityID + width)
//   - Backward: entity -> parent EntityID -> set of SubLocations
//
// Forward and backward references are kept mutually consistent by the
// mutation methods; this is a standing invariant, not an eventually
// consistent property.
//
// # Thread Safety
//
// The arena map is guarded by its own RWMutex for membership only; each
// vertex record carries an independent RWMutex so that structural reads
// (for example flattening an entity back to its atom sequence) never
// block on writes to unrelated entities. Multi-entity writes stage their
// changes in a Txn and commit under write locks acquired in ascending
// EntityID order. Writers are serialized against each other; readers are
// only ever blocked on the specific entities being committed.
//
// # Lifecycle
//
// Entities are created by atom interning or by insertion (split/merge).
// Once created they are never mutated except to gain additional patterns
// or parent back-references; existing patterns are never removed, which
// preserves referential stability for concurrent readers.
package graph
