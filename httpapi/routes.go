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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all context graph routes with the router group.
//
// Description:
//
//	Registers the /v1/graph/* endpoints. The router group should already
//	have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/graph/sequences - Insert a sequence
//	POST /v1/graph/sequences/batch - Insert several sequences
//	POST /v1/graph/search - Find the best ancestor of a query
//	GET  /v1/graph/entities/:id - Reconstruct an entity
//	GET  /v1/graph/stats - Arena counts
//	GET  /v1/graph/health - Health check
//	GET  /v1/graph/ready - Readiness check
//
// Example:
//
//	handlers := httpapi.NewHandlers(g, inserter, engine)
//	v1 := router.Group("/v1")
//	httpapi.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	g := rg.Group("/graph")
	{
		g.POST("/sequences", handlers.HandleInsert)
		g.POST("/sequences/batch", handlers.HandleBatchInsert)
		g.POST("/search", handlers.HandleSearch)
		g.GET("/entities/:id", handlers.HandleGetEntity)
		g.GET("/stats", handlers.HandleStats)
		g.GET("/health", handlers.HandleHealth)
		g.GET("/ready", handlers.HandleReady)
	}
}
