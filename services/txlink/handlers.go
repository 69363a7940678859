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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/txlink/services/txlink/candidate"
	"github.com/AleutianAI/txlink/services/txlink/telemetry"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidBoundary = "INVALID_BOUNDARY"
	CodeTooManyValues   = "TOO_MANY_VALUES"
	CodeRateLimited     = "RATE_LIMITED"
	CodeTimeout         = "TIMEOUT"
	CodeCanceled        = "CANCELED"
	CodeInternal        = "INTERNAL_ERROR"
)

// Handlers contains the HTTP handlers for the txlink service.
type Handlers struct {
	svc     *Service
	metrics *telemetry.Metrics
}

// NewHandlers creates handlers for the given service. metrics may be nil.
func NewHandlers(svc *Service, metrics *telemetry.Metrics) *Handlers {
	return &Handlers{svc: svc, metrics: metrics}
}

// HandleCandidates handles POST /v1/txlink/candidates.
//
// Request Body:
//
//	CandidatesRequest
//
// Response:
//
//	200 OK: CandidatesResponse
//	400 Bad Request: INVALID_REQUEST, INVALID_BOUNDARY, TOO_MANY_VALUES
//	429 Too Many Requests: RATE_LIMITED
//	504 Gateway Timeout: TIMEOUT
func (h *Handlers) HandleCandidates(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), slog.Default()).
		With("request_id", requestID, "handler", "HandleCandidates")

	var req CandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		h.writeError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body", err.Error())
		return
	}

	in := ComputeInput{
		Values:   req.Values,
		InputLen: *req.InputLen,
		Strategy: candidate.Strategy(req.Strategy),
	}
	if req.InclusiveBoundary != nil {
		b := candidate.BoundaryExclusive
		if *req.InclusiveBoundary {
			b = candidate.BoundaryInclusive
		}
		in.Boundary = &b
	}

	logger.Info("Computing candidates",
		"values", len(in.Values),
		"input_len", in.InputLen,
		"strategy", req.Strategy)

	res, err := h.svc.Compute(c.Request.Context(), in)
	if err != nil {
		status, code := statusForError(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Computation failed", "error", err, "code", code)
		} else {
			logger.Warn("Computation rejected", "error", err, "code", code)
		}
		h.writeError(c, status, code, err.Error(), "")
		return
	}

	logger.Info("Candidates computed",
		"count", res.Candidates.Len(),
		"visited", res.Visited,
		"cached", res.Cached,
		"duration_ms", res.Duration.Milliseconds())

	c.JSON(http.StatusOK, CandidatesResponse{
		RequestID:         requestID,
		Candidates:        res.Candidates,
		Count:             res.Candidates.Len(),
		PartitionsVisited: res.Visited,
		Strategy:          string(res.Strategy),
		Boundary:          res.Boundary.String(),
		Cached:            res.Cached,
		DurationMs:        res.Duration.Milliseconds(),
	})
}

// HandlePartitionCount handles GET /v1/txlink/partitions/count?n=N.
//
// Response:
//
//	200 OK: PartitionCountResponse
//	400 Bad Request: INVALID_REQUEST
func (h *Handlers) HandlePartitionCount(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	n, err := strconv.Atoi(c.Query("n"))
	if err != nil {
		h.writeError(c, http.StatusBadRequest, CodeInvalidRequest, "query parameter n must be an integer", "")
		return
	}

	count, err := h.svc.PartitionCount(n)
	if err != nil {
		slog.Warn("Invalid partition count request", "request_id", requestID, "error", err)
		h.writeError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error(), "")
		return
	}

	c.JSON(http.StatusOK, PartitionCountResponse{N: n, Count: count.String()})
}

// HandleHealth handles GET /v1/txlink/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Cache:     h.svc.CacheEnabled(),
		MaxValues: h.svc.Config().MaxValues,
	})
}

func (h *Handlers) writeError(c *gin.Context, status int, code, msg, details string) {
	h.metrics.RecordErrorCode(c, code)
	c.JSON(status, ErrorResponse{Error: msg, Code: code, Details: details})
}

// statusForError maps service errors to an HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, candidate.ErrInvalidBoundary):
		return http.StatusBadRequest, CodeInvalidBoundary
	case errors.Is(err, ErrTooManyValues):
		return http.StatusBadRequest, CodeTooManyValues
	case errors.Is(err, candidate.ErrInvalidStrategy),
		errors.Is(err, candidate.ErrInvalidBoundaryMode):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, ErrComputeTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, context.Canceled):
		return 499, CodeCanceled
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// getOrCreateRequestID returns the X-Request-ID header, generating one if
// absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
