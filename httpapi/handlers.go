// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package httpapi exposes the context graph over HTTP.
//
// # Description
//
// Handlers translate between JSON request/response bodies and the graph,
// search, and insert packages. Errors map onto HTTP status codes through
// the packages' sentinel errors; response bodies for failures are always
// ErrorResponse.
//
// # Thread Safety
//
// Handlers hold no per-request state and are safe for concurrent use.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/contextgraph/graph"
	"github.com/AleutianAI/contextgraph/insert"
	"github.com/AleutianAI/contextgraph/search"
)

// ServiceVersion is reported by health and stats endpoints.
const ServiceVersion = "1.0.0"

// Handlers contains the HTTP handlers for the context graph service.
type Handlers struct {
	graph    *graph.Hypergraph
	inserter *insert.Inserter
	engine   *search.Engine
}

// NewHandlers creates handlers over the given graph, inserter, and search
// engine.
func NewHandlers(g *graph.Hypergraph, ins *insert.Inserter, eng *search.Engine) *Handlers {
	return &Handlers{graph: g, inserter: ins, engine: eng}
}

// HandleInsert handles POST /v1/graph/sequences.
//
// Response:
//
//	200 OK: InsertResponse
//	400 Bad Request: empty sequence or malformed body
func (h *Handlers) HandleInsert(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleInsert")

	var req InsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	tok, err := h.inserter.Insert(c.Request.Context(), req.Sequence)
	if err != nil {
		status := http.StatusInternalServerError
		code := "INSERT_FAILED"
		if errors.Is(err, insert.ErrEmptySequence) {
			status = http.StatusBadRequest
			code = "EMPTY_SEQUENCE"
		}
		logger.Error("Insert failed", "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	c.JSON(http.StatusOK, InsertResponse{EntityID: tok.ID, Width: tok.Width})
}

// HandleBatchInsert handles POST /v1/graph/sequences/batch.
//
// Response:
//
//	200 OK: BatchInsertResponse (results in input order)
//	400 Bad Request: malformed body or an empty sequence in the batch
func (h *Handlers) HandleBatchInsert(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBatchInsert")

	var req BatchInsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	toks, err := h.inserter.InsertAll(c.Request.Context(), req.Sequences)
	if err != nil {
		status := http.StatusInternalServerError
		code := "INSERT_FAILED"
		if errors.Is(err, insert.ErrEmptySequence) {
			status = http.StatusBadRequest
			code = "EMPTY_SEQUENCE"
		}
		logger.Error("Batch insert failed", "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	resp := BatchInsertResponse{Results: make([]InsertResponse, len(toks))}
	for i, tok := range toks {
		resp.Results[i] = InsertResponse{EntityID: tok.ID, Width: tok.Width}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleSearch handles POST /v1/graph/search.
//
// Response:
//
//	200 OK: SearchResponse
//	400 Bad Request: empty query
//	404 Not Found: no indexed structure matches any part of the query
//	422 Unprocessable Entity: step budget exceeded
func (h *Handlers) HandleSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSearch")

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	m, err := h.engine.FindSequence(c.Request.Context(), req.Query)
	if err != nil {
		status := http.StatusInternalServerError
		code := "SEARCH_FAILED"
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			status = http.StatusBadRequest
			code = "EMPTY_QUERY"
		case errors.Is(err, search.ErrNoMatch):
			status = http.StatusNotFound
			code = "NO_MATCH"
		case errors.Is(err, search.ErrBudgetExceeded):
			status = http.StatusUnprocessableEntity
			code = "BUDGET_EXCEEDED"
		}
		logger.Info("Search failed", "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	c.JSON(http.StatusOK, SearchResponse{
		EntityID:       m.Root.ID,
		Width:          m.Root.Width,
		Coverage:       m.Coverage.String(),
		Start:          m.Start,
		End:            m.End,
		Matched:        m.Matched,
		QueryExhausted: m.QueryExhausted,
	})
}

// HandleGetEntity handles GET /v1/graph/entities/:id.
//
// Response:
//
//	200 OK: EntityResponse with the reconstructed sequence and the
//	entity's alternative decompositions
//	400 Bad Request: non-numeric id
//	404 Not Found: unknown entity
func (h *Handlers) HandleGetEntity(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetEntity")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Entity id must be an integer",
			Code:  "INVALID_ID",
		})
		return
	}

	seq, err := h.graph.Reconstruct(c.Request.Context(), graph.EntityID(id))
	if err != nil {
		status := http.StatusInternalServerError
		code := "RECONSTRUCT_FAILED"
		if errors.Is(err, graph.ErrEntityNotFound) {
			status = http.StatusNotFound
			code = "ENTITY_NOT_FOUND"
		}
		logger.Info("Reconstruct failed", "entity_id", id, "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	tok, _ := h.graph.TokenOf(graph.EntityID(id))
	resp := EntityResponse{
		EntityID: graph.EntityID(id),
		Width:    tok.Width,
		Sequence: seq,
	}
	if _, patterns, err := h.graph.ChildPatterns(tok); err == nil {
		resp.Patterns = make([][]graph.EntityID, len(patterns))
		for i, p := range patterns {
			ids := make([]graph.EntityID, len(p))
			for j, child := range p {
				ids[j] = child.ID
			}
			resp.Patterns[i] = ids
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleStats handles GET /v1/graph/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Stats:   h.graph.Stats(),
		Version: ServiceVersion,
	})
}

// HandleHealth handles GET /v1/graph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: ServiceVersion})
}

// HandleReady handles GET /v1/graph/ready. The graph is in-memory, so
// readiness follows liveness.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ready", Version: ServiceVersion})
}

// getOrCreateRequestID returns the X-Request-ID header, minting one when
// the client did not send it, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
