// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package txlink

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/txlink/services/txlink/telemetry"
)

// RegisterRoutes registers the /txlink endpoints on rg.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/txlink/candidates - Compute candidates
//	GET  /v1/txlink/partitions/count?n= - Bell number of n
//	GET  /v1/txlink/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	tx := rg.Group("/txlink")
	{
		tx.POST("/candidates", handlers.HandleCandidates)
		tx.GET("/partitions/count", handlers.HandlePartitionCount)
		tx.GET("/health", handlers.HandleHealth)
	}
}

// NewRouter builds the gin engine: recovery, tracing, request metrics when
// metrics is non-nil, /metrics when metricsHandler is non-nil, and the /v1
// routes.
func NewRouter(handlers *Handlers, metrics *telemetry.Metrics, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("txlink"))
	if metrics != nil {
		router.Use(telemetry.GinMiddleware(metrics))
	}

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	RegisterRoutes(router.Group("/v1"), handlers)
	return router
}
