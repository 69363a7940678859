// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package candidate finds balanced input/output groupings in a value sequence.
//
// Given values split into an input segment (the first inputLen entries) and
// an output segment (the rest), a candidate is a group of indices that
// contains at least one input and at least one output and whose input-side
// sum equals its output-side sum exactly. In transaction-graph analysis a
// candidate is a plausible self-contained sub-transfer linking some inputs
// of a transaction to some of its outputs.
//
// # Pipeline
//
//	partition.Enumerator ──► Qualifier ──► ResultSet
//	 (every set partition)   (per block)   (dedup + canonical order)
//
// ComputeCandidates is the pure entry point. Computer adds a context,
// parallel sharding, an alternative strategy, tracing and metrics.
//
// # Strategies
//
//   - StrategyPartitions walks every set partition of the index range and
//     tests every block. A qualifying block is rediscovered once for every
//     partition of its complement.
//   - StrategySubsets tests every non-empty subset once. It returns the
//     same ResultSet with far less repeated work.
//
// # Fees
//
// Qualification is exact integer equality. Transaction fees are not
// modelled; a fee-aware rule would be a new Qualifier implementation.
package candidate
