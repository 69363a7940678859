// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package partition

import "errors"

// Sentinel errors for partition enumeration.
var (
	// ErrInvalidSize indicates a negative element count.
	ErrInvalidSize = errors.New("element count must not be negative")

	// ErrInvalidPrefix indicates a prefix that is not a restricted growth sequence
	// or is longer than the element count.
	ErrInvalidPrefix = errors.New("invalid restricted growth prefix")
)
