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

import "github.com/AleutianAI/txlink/services/txlink/candidate"

// CandidatesRequest is the body of POST /v1/txlink/candidates.
type CandidatesRequest struct {
	// Values is the full value sequence, inputs first.
	Values []uint64 `json:"values" binding:"required"`

	// InputLen is the number of leading values in the input segment.
	InputLen *int `json:"input_len" binding:"required"`

	// Strategy overrides the configured strategy: "partitions" or "subsets".
	Strategy string `json:"strategy,omitempty" binding:"omitempty,oneof=partitions subsets"`

	// InclusiveBoundary overrides the configured boundary rule.
	InclusiveBoundary *bool `json:"inclusive_boundary,omitempty"`
}

// CandidatesResponse is the result of POST /v1/txlink/candidates.
type CandidatesResponse struct {
	RequestID string `json:"request_id"`

	// Candidates is the canonical, deduplicated candidate list.
	Candidates *candidate.ResultSet `json:"candidates"`

	Count             int    `json:"count"`
	PartitionsVisited uint64 `json:"partitions_visited"`
	Strategy          string `json:"strategy"`
	Boundary          string `json:"boundary"`
	Cached            bool   `json:"cached"`
	DurationMs        int64  `json:"duration_ms"`
}

// PartitionCountResponse is the result of GET /v1/txlink/partitions/count.
type PartitionCountResponse struct {
	N int `json:"n"`

	// Count is Bell(N) in decimal. It is a string because it overflows
	// 64 bits from N = 26.
	Count string `json:"count"`
}

// HealthResponse is the result of GET /v1/txlink/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Cache     bool   `json:"cache"`
	MaxValues int    `json:"max_values"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the machine-readable error code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context.
	Details string `json:"details,omitempty"`
}
