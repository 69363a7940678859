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
	"encoding/binary"
	"encoding/json"
	"slices"
)

// ResultSet is a duplicate-free collection of candidate blocks kept in
// canonical order: each block ascending, blocks compared lexicographically.
//
// The zero value is an empty set ready to use.
//
// Thread Safety: Not safe for concurrent use. Parallel computations give
// each worker its own set and Merge them afterwards.
type ResultSet struct {
	index  map[string]struct{}
	items  [][]uint32
	sorted bool
}

// NewResultSet returns an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{
		index:  make(map[string]struct{}),
		sorted: true,
	}
}

// blockKey encodes a canonical block. Fixed-width big-endian encoding
// keeps byte order consistent with lexicographic block order.
func blockKey(block []uint32) string {
	buf := make([]byte, 4*len(block))
	for i, idx := range block {
		binary.BigEndian.PutUint32(buf[4*i:], idx)
	}
	return string(buf)
}

// canonicalize returns block in ascending order, copying only when needed.
func canonicalize(block []uint32) []uint32 {
	if slices.IsSorted(block) {
		return block
	}
	sorted := slices.Clone(block)
	slices.Sort(sorted)
	return sorted
}

// Insert adds block and reports whether it was new. The block is copied,
// so callers may reuse their slice. Inserting an existing block is a no-op.
func (r *ResultSet) Insert(block []uint32) bool {
	block = canonicalize(block)
	key := blockKey(block)
	if _, ok := r.index[key]; ok {
		return false
	}
	if r.index == nil {
		r.index = make(map[string]struct{})
		r.sorted = len(r.items) == 0
	}
	r.index[key] = struct{}{}
	r.items = append(r.items, slices.Clone(block))
	if n := len(r.items); n > 1 && r.sorted {
		r.sorted = slices.Compare(r.items[n-2], r.items[n-1]) < 0
	}
	return true
}

// Contains reports whether block is in the set.
func (r *ResultSet) Contains(block []uint32) bool {
	_, ok := r.index[blockKey(canonicalize(block))]
	return ok
}

// Len returns the number of candidates.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// Merge inserts every candidate of other into r.
func (r *ResultSet) Merge(other *ResultSet) {
	if other == nil {
		return
	}
	for _, block := range other.items {
		r.Insert(block)
	}
}

// Candidates returns a copy of the candidates in canonical order.
func (r *ResultSet) Candidates() [][]uint32 {
	r.sort()
	out := make([][]uint32, len(r.items))
	for i, block := range r.items {
		out[i] = slices.Clone(block)
	}
	return out
}

// Equal reports whether both sets hold the same candidates.
func (r *ResultSet) Equal(other *ResultSet) bool {
	if other == nil || r.Len() != other.Len() {
		return false
	}
	for key := range r.index {
		if _, ok := other.index[key]; !ok {
			return false
		}
	}
	return true
}

func (r *ResultSet) sort() {
	if r.sorted {
		return
	}
	slices.SortFunc(r.items, func(a, b []uint32) int {
		return slices.Compare(a, b)
	})
	r.sorted = true
}

// MarshalJSON encodes the set as an array of index arrays in canonical order.
func (r *ResultSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Candidates())
}

// UnmarshalJSON decodes an array of index arrays, deduplicating as it goes.
func (r *ResultSet) UnmarshalJSON(data []byte) error {
	var blocks [][]uint32
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*r = *NewResultSet()
	for _, block := range blocks {
		r.Insert(block)
	}
	return nil
}
