// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package txlink serves candidate computations over HTTP.
//
// Service applies the request limits (value count, rate, timeout) and the
// optional BadgerDB result cache around candidate.Computer. Handlers and
// RegisterRoutes expose it through gin.
package txlink

import "errors"

// Sentinel errors for the txlink service.
var (
	// ErrTooManyValues indicates a request exceeds the configured value cap.
	ErrTooManyValues = errors.New("too many values")

	// ErrRateLimited indicates the computation rate limit was hit.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrComputeTimeout indicates a computation exceeded the request timeout.
	ErrComputeTimeout = errors.New("computation timed out")

	// ErrPartitionSizeOutOfRange indicates a partition count request for an
	// unsupported set size.
	ErrPartitionSizeOutOfRange = errors.New("partition set size out of range")
)
