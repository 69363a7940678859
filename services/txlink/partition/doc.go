// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package partition enumerates the set partitions of an index range.
//
// A set partition of {0, ..., n-1} groups every index into exactly one
// non-empty block. The number of partitions of an n-element set is the
// Bell number B(n), which grows super-exponentially:
//
//	n    | B(n)
//	-----|--------------
//	0    | 1
//	4    | 15
//	8    | 4,140
//	12   | 4,213,597
//	16   | 10,480,142,147
//
// # Representation
//
// Partitions are encoded as restricted growth sequences (RGS). An RGS of
// length n is an array a where a[0] = 0 and each a[i] lies in
// [0, max(a[0..i)) + 1]. Index i belongs to the block labelled a[i].
// Every partition has exactly one RGS, so walking all valid sequences in
// lexicographic order visits every partition exactly once:
//
//	0 0 0   {0,1,2}
//	0 0 1   {0,1} {2}
//	0 1 0   {0,2} {1}
//	0 1 1   {0} {1,2}
//	0 1 2   {0} {1} {2}
//
// # Sharding
//
// NewWithPrefix restricts an Enumerator to the sequences that begin with a
// fixed prefix. Prefixes lists every valid prefix of a given depth; the
// enumerations for those prefixes are disjoint and together cover the full
// space, which lets callers split the work across goroutines.
//
// # Thread Safety
//
// An Enumerator is a cursor and is not safe for concurrent use. Create one
// per goroutine.
package partition
