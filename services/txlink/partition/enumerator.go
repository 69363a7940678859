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

import (
	"fmt"
	"iter"
	"slices"
)

// Enumerator walks the set partitions of {0, ..., n-1} in lexicographic
// order of their restricted growth sequences.
//
// Description:
//
//	The first call to Next positions the cursor on the single-block
//	partition (all labels zero, or the fixed prefix followed by zeros).
//	Each later call advances to the lexicographic successor. Next returns
//	false once the last sequence has been visited; Reset rewinds the
//	cursor so the same sequence can be replayed.
//
// Example:
//
//	e, _ := partition.New(3)
//	for e.Next() {
//	    fmt.Println(e.Blocks())
//	}
//
// Thread Safety: Not safe for concurrent use.
type Enumerator struct {
	n      int
	prefix []int

	// labels is the current restricted growth sequence.
	labels []int

	// maxima[i] is max(labels[0..i]).
	maxima []int

	// scratch backs the slices handed to ForEachBlock.
	scratch [][]uint32

	started bool
	done    bool
	count   uint64
}

// New creates an Enumerator over all set partitions of n elements.
//
// Inputs:
//
//	n - Number of elements. Must not be negative. n = 0 yields a single
//	    empty partition.
//
// Outputs:
//
//	*Enumerator - Cursor positioned before the first partition.
//	error - ErrInvalidSize if n is negative.
func New(n int) (*Enumerator, error) {
	return NewWithPrefix(n, nil)
}

// NewWithPrefix creates an Enumerator restricted to the partitions whose
// restricted growth sequence starts with prefix.
//
// Inputs:
//
//	n - Number of elements. Must not be negative.
//	prefix - A valid restricted growth sequence of length <= n. An empty
//	    prefix enumerates every partition.
//
// Outputs:
//
//	*Enumerator - Cursor positioned before the first matching partition.
//	error - ErrInvalidSize or ErrInvalidPrefix.
func NewWithPrefix(n int, prefix []int) (*Enumerator, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	if len(prefix) > n {
		return nil, fmt.Errorf("%w: length %d exceeds %d elements", ErrInvalidPrefix, len(prefix), n)
	}
	if !IsRestrictedGrowth(prefix) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrefix, prefix)
	}

	e := &Enumerator{
		n:      n,
		prefix: slices.Clone(prefix),
		labels: make([]int, n),
		maxima: make([]int, n),
	}
	e.Reset()
	return e, nil
}

// Reset rewinds the cursor. The next call to Next yields the first
// partition again.
func (e *Enumerator) Reset() {
	copy(e.labels, e.prefix)
	clear(e.labels[len(e.prefix):])

	running := 0
	for i, l := range e.labels {
		running = max(running, l)
		e.maxima[i] = running
	}

	e.started = false
	e.done = false
	e.count = 0
}

// Next advances to the next partition and reports whether one exists.
func (e *Enumerator) Next() bool {
	if e.done {
		return false
	}
	if !e.started {
		e.started = true
		e.count++
		return true
	}
	if !e.advance() {
		e.done = true
		return false
	}
	e.count++
	return true
}

// advance moves labels to its lexicographic successor, leaving the fixed
// prefix untouched. Returns false when labels is already the last sequence.
func (e *Enumerator) advance() bool {
	// labels[0] is always 0.
	floor := max(1, len(e.prefix))
	for i := e.n - 1; i >= floor; i-- {
		prevMax := e.maxima[i-1]
		if e.labels[i] > prevMax {
			continue
		}
		e.labels[i]++
		e.maxima[i] = max(prevMax, e.labels[i])
		for j := i + 1; j < e.n; j++ {
			e.labels[j] = 0
			e.maxima[j] = e.maxima[i]
		}
		return true
	}
	return false
}

// Len returns the number of elements being partitioned.
func (e *Enumerator) Len() int {
	return e.n
}

// Count returns how many partitions have been yielded since the last Reset.
func (e *Enumerator) Count() uint64 {
	return e.count
}

// Labels returns a copy of the current restricted growth sequence.
func (e *Enumerator) Labels() []int {
	return slices.Clone(e.labels)
}

// NumBlocks returns the number of blocks in the current partition.
func (e *Enumerator) NumBlocks() int {
	if e.n == 0 {
		return 0
	}
	return e.maxima[e.n-1] + 1
}

// Blocks returns the blocks of the current partition, ordered by label.
// Indices inside each block are ascending. The result is freshly
// allocated and owned by the caller.
func (e *Enumerator) Blocks() [][]uint32 {
	blocks := make([][]uint32, e.NumBlocks())
	for i, l := range e.labels {
		blocks[l] = append(blocks[l], uint32(i))
	}
	return blocks
}

// ForEachBlock calls fn for every block of the current partition, in
// label order. The slice passed to fn is reused between calls and must
// not be retained; copy it if needed.
func (e *Enumerator) ForEachBlock(fn func(block []uint32)) {
	k := e.NumBlocks()
	if cap(e.scratch) < k {
		e.scratch = make([][]uint32, k)
	}
	e.scratch = e.scratch[:k]
	for i := range e.scratch {
		e.scratch[i] = e.scratch[i][:0]
	}
	for i, l := range e.labels {
		e.scratch[l] = append(e.scratch[l], uint32(i))
	}
	for _, block := range e.scratch {
		fn(block)
	}
}

// All returns an iterator over every partition of n elements. Each yielded
// partition is freshly allocated. A negative n yields nothing.
func All(n int) iter.Seq[[][]uint32] {
	return func(yield func([][]uint32) bool) {
		e, err := New(n)
		if err != nil {
			return
		}
		for e.Next() {
			if !yield(e.Blocks()) {
				return
			}
		}
	}
}

// IsRestrictedGrowth reports whether seq is a valid restricted growth
// sequence. The empty sequence is valid.
func IsRestrictedGrowth(seq []int) bool {
	running := -1
	for _, l := range seq {
		if l < 0 || l > running+1 {
			return false
		}
		running = max(running, l)
	}
	return true
}
