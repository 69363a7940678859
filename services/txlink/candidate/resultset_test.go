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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResultSet_InsertIsIdempotent verifies duplicates are dropped.
func TestResultSet_InsertIsIdempotent(t *testing.T) {
	r := NewResultSet()

	assert.True(t, r.Insert([]uint32{0, 3}))
	assert.False(t, r.Insert([]uint32{0, 3}))
	assert.False(t, r.Insert([]uint32{3, 0}), "order of members does not change identity")
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Contains([]uint32{3, 0}))
	assert.False(t, r.Contains([]uint32{0}))
}

// TestResultSet_CanonicalOrder verifies lexicographic ordering of blocks.
func TestResultSet_CanonicalOrder(t *testing.T) {
	r := NewResultSet()
	for _, b := range [][]uint32{{1, 2}, {0, 3}, {0, 1, 2, 3}, {2, 5}, {0, 1, 3}} {
		r.Insert(b)
	}

	want := [][]uint32{{0, 1, 2, 3}, {0, 1, 3}, {0, 3}, {1, 2}, {2, 5}}
	assert.Equal(t, want, r.Candidates())
}

// TestResultSet_CopiesInput verifies callers may reuse their slices.
func TestResultSet_CopiesInput(t *testing.T) {
	r := NewResultSet()
	buf := []uint32{0, 1}
	r.Insert(buf)
	buf[1] = 9

	assert.Equal(t, [][]uint32{{0, 1}}, r.Candidates())

	out := r.Candidates()
	out[0][0] = 7
	assert.Equal(t, [][]uint32{{0, 1}}, r.Candidates(), "Candidates returns a copy")
}

// TestResultSet_MergeAndEqual covers set algebra used by parallel runs.
func TestResultSet_MergeAndEqual(t *testing.T) {
	a := NewResultSet()
	a.Insert([]uint32{0, 1})
	a.Insert([]uint32{2, 3})

	b := NewResultSet()
	b.Insert([]uint32{2, 3})
	b.Insert([]uint32{1, 4})

	a.Merge(b)
	a.Merge(nil)
	assert.Equal(t, 3, a.Len())

	c := NewResultSet()
	c.Insert([]uint32{1, 4})
	c.Insert([]uint32{0, 1})
	c.Insert([]uint32{2, 3})
	assert.True(t, a.Equal(c))
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
}

// TestResultSet_JSON verifies the wire form is a canonical array of arrays.
func TestResultSet_JSON(t *testing.T) {
	r := NewResultSet()
	r.Insert([]uint32{1, 2})
	r.Insert([]uint32{0, 3})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,3],[1,2]]`, string(data))

	empty, err := json.Marshal(NewResultSet())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))

	var decoded ResultSet
	require.NoError(t, json.Unmarshal([]byte(`[[1,2],[0,3],[2,1]]`), &decoded))
	assert.True(t, decoded.Equal(r))
}

// TestResultSet_ZeroValue verifies a zero ResultSet is usable without NewResultSet.
func TestResultSet_ZeroValue(t *testing.T) {
	var r ResultSet
	assert.False(t, r.Contains([]uint32{0, 1}))
	assert.Equal(t, 0, r.Len())

	require.NotPanics(t, func() {
		assert.True(t, r.Insert([]uint32{1, 2}))
		assert.True(t, r.Insert([]uint32{0, 1}))
		assert.False(t, r.Insert([]uint32{2, 1}))
	})
	assert.Equal(t, [][]uint32{{0, 1}, {1, 2}}, r.Candidates())

	var merged ResultSet
	merged.Merge(&r)
	assert.True(t, merged.Equal(&r))
}
