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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/contextgraph/graph"
	"github.com/AleutianAI/contextgraph/insert"
	"github.com/AleutianAI/contextgraph/search"
)

func newTestRouter(t *testing.T) (*gin.Engine, *graph.Hypergraph) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := graph.New()
	handlers := NewHandlers(g, insert.New(g), search.NewEngine(g))

	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router, g
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleInsert(t *testing.T) {
	router, g := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/graph/sequences", InsertRequest{Sequence: "abc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp InsertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Width)

	seq, err := g.Reconstruct(t.Context(), resp.EntityID)
	require.NoError(t, err)
	assert.Equal(t, "abc", seq)
}

func TestHandleInsert_BadBody(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/graph/sequences", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
}

func TestHandleBatchInsert(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/graph/sequences/batch",
		BatchInsertRequest{Sequences: []string{"ab", "abc"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchInsertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Results[0].Width)
	assert.Equal(t, 3, resp.Results[1].Width)
}

func TestHandleSearch(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/graph/sequences", InsertRequest{Sequence: "abcd"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/v1/graph/search", SearchRequest{Query: "abcd"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "entire", resp.Coverage)
	assert.True(t, resp.QueryExhausted)
	assert.Equal(t, graph.AtomPos(4), resp.Matched)
}

func TestHandleSearch_NoMatch(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/graph/search", SearchRequest{Query: "zz"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NO_MATCH", resp.Code)
}

func TestHandleGetEntity(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/graph/sequences", InsertRequest{Sequence: "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	var ins InsertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ins))

	w = doJSON(router, http.MethodGet, fmt.Sprintf("/v1/graph/entities/%d", ins.EntityID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp EntityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.Sequence)
	assert.Equal(t, 3, resp.Width)
	assert.NotEmpty(t, resp.Patterns)
}

func TestHandleGetEntity_Errors(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/v1/graph/entities/xyz", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/graph/entities/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleStatsAndHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/graph/sequences", InsertRequest{Sequence: "ab"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/graph/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Atoms)
	assert.Equal(t, 3, stats.Entities)

	w = doJSON(router, http.MethodGet, "/v1/graph/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, http.MethodGet, "/v1/graph/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDEcho(t *testing.T) {
	router, _ := newTestRouter(t)

	body := bytes.NewBufferString(`{"sequence": "ab"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/graph/sequences", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}
