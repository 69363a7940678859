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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExactSum_RequiresBothSides verifies single-sided blocks never qualify.
func TestExactSum_RequiresBothSides(t *testing.T) {
	values := []uint64{100, 100, 50, 50}
	q, err := NewExactSum(values, 2, BoundaryExclusive)
	require.NoError(t, err)

	assert.False(t, q.Qualifies([]uint32{0, 1}), "inputs only, equal values")
	assert.False(t, q.Qualifies([]uint32{2, 3}), "outputs only, equal values")
	assert.False(t, q.Qualifies([]uint32{0}), "singleton input")
	assert.False(t, q.Qualifies(nil), "empty block")
	assert.True(t, q.Qualifies([]uint32{0, 2, 3}))
}

// TestExactSum_SumExactness verifies a one-unit change flips qualification.
func TestExactSum_SumExactness(t *testing.T) {
	values := []uint64{1, 2, 3, 3}
	block := []uint32{0, 1, 2}

	q, err := NewExactSum(values, 2, BoundaryExclusive)
	require.NoError(t, err)
	require.True(t, q.Qualifies(block))

	for i := range block {
		for _, delta := range []int{-1, 1} {
			changed := append([]uint64(nil), values...)
			changed[block[i]] = uint64(int(changed[block[i]]) + delta)

			q, err := NewExactSum(changed, 2, BoundaryExclusive)
			require.NoError(t, err)
			assert.False(t, q.Qualifies(block), "index %d delta %d", block[i], delta)
		}
	}
}

// TestExactSum_NoOverflow verifies sums wider than 64 bits compare correctly.
func TestExactSum_NoOverflow(t *testing.T) {
	// 2^64 - 1 + 1 wraps to 0 in uint64 arithmetic.
	q, err := NewExactSum([]uint64{math.MaxUint64, 1, 0}, 2, BoundaryExclusive)
	require.NoError(t, err)
	assert.False(t, q.Qualifies([]uint32{0, 1, 2}))

	q, err = NewExactSum([]uint64{math.MaxUint64, math.MaxUint64, math.MaxUint64, math.MaxUint64}, 2, BoundaryExclusive)
	require.NoError(t, err)
	assert.True(t, q.Qualifies([]uint32{0, 1, 2, 3}))
	assert.False(t, q.Qualifies([]uint32{0, 1, 2}))
}

// TestExactSum_BoundaryModes checks which indices count as inputs.
func TestExactSum_BoundaryModes(t *testing.T) {
	values := []uint64{100, 200, 300}

	exclusive, err := NewExactSum(values, 1, BoundaryExclusive)
	require.NoError(t, err)
	assert.True(t, exclusive.IsInput(0))
	assert.False(t, exclusive.IsInput(1))
	assert.False(t, exclusive.Qualifies([]uint32{0, 1, 2}))

	inclusive, err := NewExactSum(values, 1, BoundaryInclusive)
	require.NoError(t, err)
	assert.True(t, inclusive.IsInput(1))
	assert.False(t, inclusive.IsInput(2))
	assert.True(t, inclusive.Qualifies([]uint32{0, 1, 2}))
}

// TestNewExactSum_Errors covers constructor validation.
func TestNewExactSum_Errors(t *testing.T) {
	_, err := NewExactSum([]uint64{1, 2}, 3, BoundaryExclusive)
	assert.ErrorIs(t, err, ErrInvalidBoundary)

	_, err = NewExactSum([]uint64{1, 2}, 1, Boundary(7))
	assert.ErrorIs(t, err, ErrInvalidBoundaryMode)
}

// TestParseBoundary covers the accepted spellings.
func TestParseBoundary(t *testing.T) {
	tests := []struct {
		in      string
		want    Boundary
		wantErr bool
	}{
		{"", BoundaryExclusive, false},
		{"exclusive", BoundaryExclusive, false},
		{" Inclusive ", BoundaryInclusive, false},
		{"sideways", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBoundary(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidBoundaryMode, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.NotEqual(t, "unknown", got.String())
	}
}
