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

import "math/big"

// Bell returns the Bell number B(n), the number of set partitions of an
// n-element set. Negative n returns 0.
//
// Computed with the Bell triangle: each row starts with the last entry of
// the previous row and every following entry adds its left neighbour to
// the entry above that neighbour. B(n) is the first entry of row n.
func Bell(n int) *big.Int {
	if n < 0 {
		return new(big.Int)
	}
	row := []*big.Int{big.NewInt(1)}
	for i := 0; i < n; i++ {
		next := make([]*big.Int, len(row)+1)
		next[0] = new(big.Int).Set(row[len(row)-1])
		for j := 1; j < len(next); j++ {
			next[j] = new(big.Int).Add(next[j-1], row[j-1])
		}
		row = next
	}
	return row[0]
}

// Prefixes returns every restricted growth sequence of length
// min(depth, n), in lexicographic order.
//
// Enumerators built with NewWithPrefix from these prefixes partition the
// full enumeration space: each partition of n elements is produced by
// exactly one of them. A depth of zero or less yields the single empty
// prefix.
func Prefixes(n, depth int) [][]int {
	depth = max(0, min(depth, n))
	var out [][]int
	cur := make([]int, 0, depth)

	var walk func(running int)
	walk = func(running int) {
		if len(cur) == depth {
			out = append(out, append([]int(nil), cur...))
			return
		}
		// The first label is always 0.
		top := running + 1
		if len(cur) == 0 {
			top = 0
		}
		for l := 0; l <= top; l++ {
			cur = append(cur, l)
			walk(max(running, l))
			cur = cur[:len(cur)-1]
		}
	}
	walk(-1)
	return out
}
