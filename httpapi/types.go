// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package httpapi

import "github.com/AleutianAI/contextgraph/graph"

// InsertRequest is the body for POST /v1/graph/sequences.
type InsertRequest struct {
	// Sequence is the symbol sequence to index.
	Sequence string `json:"sequence" binding:"required"`
}

// InsertResponse is the result of a single insertion.
type InsertResponse struct {
	EntityID graph.EntityID `json:"entity_id"`
	Width    int            `json:"width"`
}

// BatchInsertRequest is the body for POST /v1/graph/sequences/batch.
type BatchInsertRequest struct {
	Sequences []string `json:"sequences" binding:"required"`
}

// BatchInsertResponse returns one entry per input sequence, in order.
type BatchInsertResponse struct {
	Results []InsertResponse `json:"results"`
}

// SearchRequest is the body for POST /v1/graph/search.
type SearchRequest struct {
	// Query is the symbol sequence to locate.
	Query string `json:"query" binding:"required"`
}

// SearchResponse describes the best known ancestor of the query.
type SearchResponse struct {
	EntityID       graph.EntityID `json:"entity_id"`
	Width          int            `json:"width"`
	Coverage       string         `json:"coverage"`
	Start          graph.AtomPos  `json:"start"`
	End            graph.AtomPos  `json:"end"`
	Matched        graph.AtomPos  `json:"matched"`
	QueryExhausted bool           `json:"query_exhausted"`
}

// EntityResponse is the result of GET /v1/graph/entities/:id.
type EntityResponse struct {
	EntityID graph.EntityID     `json:"entity_id"`
	Width    int                `json:"width"`
	Sequence string             `json:"sequence"`
	Patterns [][]graph.EntityID `json:"patterns"`
}

// StatsResponse is the result of GET /v1/graph/stats.
type StatsResponse struct {
	graph.Stats
	Version string `json:"version"`
}

// HealthResponse is returned by the health and readiness endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
