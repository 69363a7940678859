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
	"fmt"
	"math/bits"
	"strings"
)

// Boundary selects which indices count as inputs.
type Boundary int

const (
	// BoundaryExclusive treats index i as an input when i < inputLen.
	BoundaryExclusive Boundary = iota

	// BoundaryInclusive treats index i as an input when i <= inputLen.
	// Kept for compatibility with tooling that counts index inputLen as
	// an input.
	BoundaryInclusive
)

// String returns the boundary name.
func (b Boundary) String() string {
	switch b {
	case BoundaryExclusive:
		return "exclusive"
	case BoundaryInclusive:
		return "inclusive"
	default:
		return "unknown"
	}
}

// ParseBoundary parses "exclusive" or "inclusive". The empty string means exclusive.
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exclusive":
		return BoundaryExclusive, nil
	case "inclusive":
		return BoundaryInclusive, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidBoundaryMode, s)
	}
}

func (b Boundary) valid() bool {
	return b == BoundaryExclusive || b == BoundaryInclusive
}

// Qualifier decides whether a single block is a candidate.
//
// Blocks are ascending index sequences into the value sequence the
// Qualifier was built for. Implementations must be safe for concurrent
// use because parallel computations share one Qualifier.
type Qualifier interface {
	Qualifies(block []uint32) bool
}

// ExactSum qualifies blocks that mix inputs and outputs with exactly equal
// sums on each side.
//
// Thread Safety: Safe for concurrent use; it never mutates its state.
type ExactSum struct {
	values   []uint64
	inputLen int
	boundary Boundary
}

// NewExactSum builds the exact-sum qualifier.
//
// Inputs:
//
//	values - The value sequence. Not copied; must not change while in use.
//	inputLen - Number of leading values in the input segment, 0..len(values).
//	boundary - Input membership rule.
//
// Outputs:
//
//	*ExactSum - The qualifier.
//	error - *BoundaryError or ErrInvalidBoundaryMode.
func NewExactSum(values []uint64, inputLen int, boundary Boundary) (*ExactSum, error) {
	if err := checkBoundary(values, inputLen); err != nil {
		return nil, err
	}
	if !boundary.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBoundaryMode, boundary)
	}
	return &ExactSum{values: values, inputLen: inputLen, boundary: boundary}, nil
}

// IsInput reports whether index i belongs to the input segment.
func (q *ExactSum) IsInput(i uint32) bool {
	if q.boundary == BoundaryInclusive {
		return int(i) <= q.inputLen
	}
	return int(i) < q.inputLen
}

// Qualifies reports whether block has at least one input, at least one
// output, and equal input and output sums.
func (q *ExactSum) Qualifies(block []uint32) bool {
	var in, out sum128
	var hasIn, hasOut bool
	for _, i := range block {
		if q.IsInput(i) {
			in.add(q.values[i])
			hasIn = true
		} else {
			out.add(q.values[i])
			hasOut = true
		}
	}
	return hasIn && hasOut && in == out
}

// sum128 is an unsigned 128-bit accumulator. Up to 2^64 uint64 addends
// fit without wrapping, far beyond any index range addressable by uint32.
type sum128 struct {
	hi, lo uint64
}

func (s *sum128) add(v uint64) {
	var carry uint64
	s.lo, carry = bits.Add64(s.lo, v, 0)
	s.hi += carry
}
