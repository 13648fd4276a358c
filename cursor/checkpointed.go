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

// Tag is the confirmation state of one cursor axis.
type Tag int

const (
	// TagMatched means the cursor sits exactly at its checkpoint.
	TagMatched Tag = iota
	// TagCandidate means a tentative advance awaits confirmation.
	TagCandidate
	// TagMismatched means the last candidate was rejected; the
	// checkpoint is still the last confirmed position.
	TagMismatched
)

func (t Tag) String() string {
	switch t {
	case TagMatched:
		return "matched"
	case TagCandidate:
		return "candidate"
	default:
		return "mismatched"
	}
}

// Checkpointed wraps a cursor value with a confirmed checkpoint and an
// optional tentative candidate.
//
// Advancing proposes a candidate; Confirm folds it into the
// checkpoint; Mismatch discards it. A failed advance leaves the
// checkpoint untouched, which is what makes backtracking free: the
// caller simply keeps using the checkpointed value.
type Checkpointed[C any] struct {
	checkpoint C
	candidate  *C
	tag        Tag
}

// NewCheckpointed wraps a confirmed starting position.
func NewCheckpointed[C any](c C) Checkpointed[C] {
	return Checkpointed[C]{checkpoint: c, tag: TagMatched}
}

// Tag returns the axis state.
func (s *Checkpointed[C]) Tag() Tag { return s.tag }

// Checkpoint returns the last confirmed position.
func (s *Checkpointed[C]) Checkpoint() C { return s.checkpoint }

// Get returns the candidate if one is pending, else the checkpoint.
func (s *Checkpointed[C]) Get() C {
	if s.candidate != nil {
		return *s.candidate
	}
	return s.checkpoint
}

// Propose installs a tentative position.
func (s *Checkpointed[C]) Propose(c C) {
	s.candidate = &c
	s.tag = TagCandidate
}

// Advance probes one step from the current position. On success the
// result becomes the candidate; on exhaustion nothing changes and the
// probe has no side effects.
func (s *Checkpointed[C]) Advance(step func(C) (C, bool)) bool {
	next, ok := step(s.Get())
	if !ok {
		return false
	}
	s.Propose(next)
	return true
}

// Confirm folds the pending candidate into the checkpoint. Confirming
// with no candidate is a no-op beyond the tag.
func (s *Checkpointed[C]) Confirm() {
	if s.candidate != nil {
		s.checkpoint = *s.candidate
		s.candidate = nil
	}
	s.tag = TagMatched
}

// Mismatch rejects the pending candidate, keeping the checkpoint.
func (s *Checkpointed[C]) Mismatch() {
	s.candidate = nil
	s.tag = TagMismatched
}
