// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package service exposes the docgen pipeline over HTTP.
package service

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/docgen/services/docgen/orchestrator"
)

// Handlers holds the HTTP handlers for the docgen API.
type Handlers struct {
	pipeline *orchestrator.Pipeline
	logger   *slog.Logger
}

// NewHandlers creates handlers over an assembled pipeline.
func NewHandlers(pipeline *orchestrator.Pipeline, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handlers{pipeline: pipeline, logger: logger}
}

// UpdateRequest is the body for POST /v1/docgen/update.
type UpdateRequest struct {
	// ChangedPaths are repo-relative paths whose changes drive planning.
	// Empty plans only the anchor section.
	ChangedPaths []string `json:"changed_paths"`

	// Full regenerates every configured section, ignoring ChangedPaths.
	Full bool `json:"full"`
}

// IndexRequest is the body for POST /v1/docgen/index.
type IndexRequest struct {
	// Force rebuilds the evidence store from scratch.
	Force bool `json:"force"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleUpdate runs one pipeline pass.
//
// Description:
//
//	Plans from the request's changed paths, regenerates the invalidated
//	sections, and returns the run report. Validation rejections are
//	reported per section, not as HTTP errors.
func (h *Handlers) HandleUpdate(c *gin.Context) {
	var req UpdateRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	var report *orchestrator.RunReport
	var err error
	if req.Full {
		report, err = h.pipeline.UpdateAll(c.Request.Context())
	} else {
		changed := make(map[string]struct{}, len(req.ChangedPaths))
		for _, path := range req.ChangedPaths {
			changed[path] = struct{}{}
		}
		report, err = h.pipeline.Update(c.Request.Context(), changed)
	}
	if err != nil {
		h.logger.Error("update failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleIndex refreshes the evidence store without touching the document.
func (h *Handlers) HandleIndex(c *gin.Context) {
	var req IndexRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	summary, err := h.pipeline.Index(c.Request.Context(), req.Force)
	if err != nil {
		h.logger.Error("index failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// HandleReport returns the last persisted run report.
func (h *Handlers) HandleReport(c *gin.Context) {
	report, err := orchestrator.LoadReport(h.pipeline.StateDir())
	if os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no run recorded yet"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleHealth is the liveness probe.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
