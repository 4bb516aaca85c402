// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the /v1 endpoints on rg.
//
//	GET /v1/health
//	GET /v1/algorithms
//	GET /v1/runs
//	GET /v1/runs/:id
//	GET /v1/runs/:id/csv
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/health", h.HandleHealth)
	rg.GET("/algorithms", h.HandleAlgorithms)
	rg.GET("/runs", h.HandleListRuns)
	rg.GET("/runs/:id", h.HandleGetRun)
	rg.GET("/runs/:id/csv", h.HandleGetRunCSV)
}

// NewRouter builds the complete server: recovery and tracing middleware, the
// /v1 routes, and /metrics when metricsHandler is non-nil.
func NewRouter(h *Handlers, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("sortbench"))

	RegisterRoutes(router.Group("/v1"), h)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
	return router
}
