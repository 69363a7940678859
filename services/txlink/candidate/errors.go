// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package candidate

import (
	"errors"
	"fmt"
)

// Sentinel errors for candidate computation.
var (
	// ErrInvalidBoundary indicates inputLen lies outside [0, len(values)].
	ErrInvalidBoundary = errors.New("invalid input boundary")

	// ErrInvalidStrategy indicates an unknown enumeration strategy.
	ErrInvalidStrategy = errors.New("invalid strategy")

	// ErrInvalidBoundaryMode indicates an unknown boundary mode.
	ErrInvalidBoundaryMode = errors.New("invalid boundary mode")

	// ErrInvalidWorkers indicates a worker count below one.
	ErrInvalidWorkers = errors.New("workers must be at least 1")

	// ErrNilContext indicates a nil context was passed.
	ErrNilContext = errors.New("context must not be nil")
)

// BoundaryError reports an input boundary that does not fit the value
// sequence. It matches ErrInvalidBoundary under errors.Is.
type BoundaryError struct {
	// InputLen is the offending boundary.
	InputLen int

	// Length is the number of values supplied.
	Length int
}

// Error implements error.
func (e *BoundaryError) Error() string {
	return fmt.Sprintf("%s: input_len %d not in [0, %d]", ErrInvalidBoundary, e.InputLen, e.Length)
}

// Is reports whether target is ErrInvalidBoundary.
func (e *BoundaryError) Is(target error) bool {
	return target == ErrInvalidBoundary
}

// checkBoundary fails fast when inputLen does not fit values.
func checkBoundary(values []uint64, inputLen int) error {
	if inputLen < 0 || inputLen > len(values) {
		return &BoundaryError{InputLen: inputLen, Length: len(values)}
	}
	return nil
}
