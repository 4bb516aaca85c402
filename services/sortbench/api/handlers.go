// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api serves stored benchmark runs over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/AleutianAI/sortbench/pkg/logging"
	"github.com/AleutianAI/sortbench/services/sortbench/algorithms"
	"github.com/AleutianAI/sortbench/services/sortbench/history"
	"github.com/AleutianAI/sortbench/services/sortbench/report"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-ID"

// RunStore is the read side of the history store.
type RunStore interface {
	GetRun(ctx context.Context, id string) (*history.Run, error)
	ListRuns(ctx context.Context, limit int) ([]history.RunSummary, error)
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is returned by GET /v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// RunsResponse is returned by GET /v1/runs.
type RunsResponse struct {
	Runs []history.RunSummary `json:"runs"`
}

// AlgorithmsResponse is returned by GET /v1/algorithms.
type AlgorithmsResponse struct {
	Algorithms []string `json:"algorithms"`
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	store    RunStore
	registry *algorithms.Registry
	logger   *logging.Logger
}

// NewHandlers returns handlers reading from store.
func NewHandlers(store RunStore, registry *algorithms.Registry, logger *logging.Logger) *Handlers {
	if registry == nil {
		registry = algorithms.Default()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handlers{store: store, registry: registry, logger: logger}
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *logging.Logger {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(RequestIDHeader, id)
	return h.logger.With("request_id", id, "handler", handler)
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleAlgorithms handles GET /v1/algorithms.
func (h *Handlers) HandleAlgorithms(c *gin.Context) {
	c.JSON(http.StatusOK, AlgorithmsResponse{Algorithms: h.registry.List()})
}

// HandleListRuns handles GET /v1/runs.
//
// Query:
//
//	limit - maximum number of runs, newest first. Default 50. 0 means all.
//
// Response:
//
//	200 OK: RunsResponse
//	400 Bad Request: invalid limit
//	500 Internal Server Error: store failure
func (h *Handlers) HandleListRuns(c *gin.Context) {
	logger := h.requestLogger(c, "HandleListRuns")

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Code: "INVALID_LIMIT"})
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		logger.Error("list runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STORE_FAILED"})
		return
	}
	if runs == nil {
		runs = []history.RunSummary{}
	}
	c.JSON(http.StatusOK, RunsResponse{Runs: runs})
}

// HandleGetRun handles GET /v1/runs/:id.
//
// Response:
//
//	200 OK: history.Run
//	404 Not Found: no such run
//	500 Internal Server Error: store failure
func (h *Handlers) HandleGetRun(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetRun")

	run, ok := h.lookup(c, logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

// HandleGetRunCSV handles GET /v1/runs/:id/csv and returns the run in the
// same CSV format as the report file.
func (h *Handlers) HandleGetRunCSV(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetRunCSV")

	run, ok := h.lookup(c, logger)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+run.ID+`.csv"`)
	c.Status(http.StatusOK)
	if err := report.WriteCSV(c.Writer, run.Rows); err != nil {
		logger.Error("write csv failed", "run_id", run.ID, "error", err)
	}
}

func (h *Handlers) lookup(c *gin.Context, logger *logging.Logger) (*history.Run, bool) {
	id := c.Param("id")
	run, err := h.store.GetRun(c.Request.Context(), id)
	switch {
	case errors.Is(err, history.ErrRunNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "RUN_NOT_FOUND"})
		return nil, false
	case err != nil:
		logger.Error("get run failed", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STORE_FAILED"})
		return nil, false
	}
	return run, true
}
