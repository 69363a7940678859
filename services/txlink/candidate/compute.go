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
	"context"
	"fmt"
	"log/slog"
	"math/bits"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/txlink/services/txlink/partition"
)

// Strategy selects how blocks are generated.
type Strategy string

const (
	// StrategyPartitions tests every block of every set partition.
	StrategyPartitions Strategy = "partitions"

	// StrategySubsets tests every non-empty subset exactly once.
	StrategySubsets Strategy = "subsets"
)

// ParseStrategy parses a strategy name. The empty string means StrategyPartitions.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyPartitions:
		return StrategyPartitions, nil
	case StrategySubsets:
		return StrategySubsets, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
}

// Computation tuning constants.
const (
	// defaultCheckInterval is how many partitions or subsets are visited
	// between context checks.
	defaultCheckInterval = 4096

	// shardsPerWorker oversubscribes shards so uneven shards balance out.
	shardsPerWorker = 4

	// maxSubsetShardBits caps the number of leading indices fixed per
	// subset shard (2^bits shards).
	maxSubsetShardBits = 16
)

// ComputerConfig configures a Computer.
type ComputerConfig struct {
	// Strategy selects block generation. Default: StrategyPartitions.
	Strategy Strategy

	// Workers is the number of goroutines. 1 runs sequentially.
	Workers int

	// Boundary selects the input membership rule. Default: BoundaryExclusive.
	Boundary Boundary

	// CheckInterval is how many partitions or subsets are visited between
	// context checks. Zero uses the default.
	CheckInterval int
}

// DefaultComputerConfig returns a sequential, exact, partition-walking configuration.
func DefaultComputerConfig() *ComputerConfig {
	return &ComputerConfig{
		Strategy:      StrategyPartitions,
		Workers:       1,
		Boundary:      BoundaryExclusive,
		CheckInterval: defaultCheckInterval,
	}
}

// Validate checks the configuration.
func (c *ComputerConfig) Validate() error {
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	if !c.Boundary.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidBoundaryMode, c.Boundary)
	}
	return nil
}

// Output is the result of a computation.
type Output struct {
	// Candidates is the deduplicated, canonically ordered result.
	Candidates *ResultSet

	// Visited is the number of partitions (StrategyPartitions) or subsets
	// (StrategySubsets) enumerated.
	Visited uint64

	// BlocksTested is the number of blocks handed to the Qualifier.
	BlocksTested uint64

	// Strategy and Workers echo the configuration used.
	Strategy Strategy
	Workers  int

	// Duration is the wall-clock time of the computation.
	Duration time.Duration
}

// ComputeCandidates returns every block of every set partition of the
// index range that mixes inputs and outputs with equal sums.
//
// Description:
//
//	Index i is an input when i < inputLen and an output otherwise. The
//	result is deduplicated and ordered lexicographically by the ascending
//	index sequence of each block. inputLen equal to 0 or len(values) is
//	valid and always yields an empty set.
//
// Inputs:
//
//	values - The value sequence. Not modified.
//	inputLen - Number of leading values in the input segment.
//
// Outputs:
//
//	*ResultSet - The candidates. Never nil on success.
//	error - *BoundaryError (matches ErrInvalidBoundary) when inputLen is
//	    negative or exceeds len(values). No partial result is returned.
//
// Performance: visits Bell(len(values)) partitions.
func ComputeCandidates(values []uint64, inputLen int) (*ResultSet, error) {
	out, err := compute(context.Background(), values, inputLen, DefaultComputerConfig())
	if err != nil {
		return nil, err
	}
	return out.Candidates, nil
}

// Computer runs candidate computations with a fixed configuration.
//
// Thread Safety: Safe for concurrent use.
type Computer struct {
	config *ComputerConfig
}

// NewComputer creates a Computer. A nil config uses DefaultComputerConfig.
func NewComputer(config *ComputerConfig) (*Computer, error) {
	if config == nil {
		config = DefaultComputerConfig()
	}
	cfg := *config
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyPartitions
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Computer{config: &cfg}, nil
}

// Config returns a copy of the configuration.
func (c *Computer) Config() ComputerConfig {
	return *c.config
}

// Compute finds the candidates of values split at inputLen.
//
// Description:
//
//	Same result as ComputeCandidates for the configured boundary, with
//	cancellation, optional parallelism, tracing and metrics. With Workers
//	greater than one the search space is sharded and each shard collects
//	into its own ResultSet; the sets are merged once all shards finish.
//
// Inputs:
//
//	ctx - Cancellation and deadline. Must not be nil.
//	values - The value sequence. Not modified.
//	inputLen - Number of leading values in the input segment.
//
// Outputs:
//
//	*Output - Candidates and statistics.
//	error - ErrNilContext, *BoundaryError, or the context error wrapped.
//
// Thread Safety: Safe for concurrent use.
func (c *Computer) Compute(ctx context.Context, values []uint64, inputLen int) (*Output, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	ctx, span := startComputeSpan(ctx, len(values), inputLen, c.config)
	defer span.End()

	start := time.Now()
	out, err := compute(ctx, values, inputLen, c.config)
	duration := time.Since(start)

	if err != nil {
		recordComputeMetrics(ctx, c.config.Strategy, duration, nil, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	recordComputeMetrics(ctx, c.config.Strategy, duration, out, true)
	span.SetAttributes(
		attribute.Int64("txlink.visited", int64(out.Visited)),
		attribute.Int64("txlink.blocks_tested", int64(out.BlocksTested)),
		attribute.Int("txlink.candidates", out.Candidates.Len()),
	)
	span.SetStatus(codes.Ok, "")

	slog.Debug("candidate computation completed",
		slog.Int("values", len(values)),
		slog.Int("input_len", inputLen),
		slog.String("strategy", string(out.Strategy)),
		slog.Int("workers", out.Workers),
		slog.Uint64("visited", out.Visited),
		slog.Int("candidates", out.Candidates.Len()),
		slog.Duration("duration", out.Duration),
	)
	return out, nil
}

// shardResult is what one shard contributes.
type shardResult struct {
	set     *ResultSet
	visited uint64
	tested  uint64
}

// compute is the shared core behind ComputeCandidates and Computer.Compute.
func compute(ctx context.Context, values []uint64, inputLen int, cfg *ComputerConfig) (*Output, error) {
	start := time.Now()

	if err := checkBoundary(values, inputLen); err != nil {
		return nil, err
	}
	q, err := NewExactSum(values, inputLen, cfg.Boundary)
	if err != nil {
		return nil, err
	}

	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	w := &walker{n: len(values), q: q, interval: uint64(interval)}

	var shards []func(context.Context) (shardResult, error)
	switch cfg.Strategy {
	case StrategySubsets:
		shards = w.subsetShards(cfg.Workers)
	default:
		shards = w.partitionShards(cfg.Workers)
	}

	results := make([]shardResult, len(shards))
	if cfg.Workers <= 1 || len(shards) == 1 {
		for i, shard := range shards {
			res, err := shard(ctx)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
	} else {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for i, shard := range shards {
			g.Go(func() error {
				res, err := shard(gCtx)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := &Output{
		Candidates: NewResultSet(),
		Strategy:   cfg.Strategy,
		Workers:    max(1, cfg.Workers),
	}
	for _, res := range results {
		out.Candidates.Merge(res.set)
		out.Visited += res.visited
		out.BlocksTested += res.tested
	}
	out.Candidates.sort()
	out.Duration = time.Since(start)
	return out, nil
}

// walker holds the per-computation state shared by all shards.
type walker struct {
	n        int
	q        Qualifier
	interval uint64
}

// checkpoint polls ctx on the first visit and every interval visits after.
func (w *walker) checkpoint(ctx context.Context, visited uint64) error {
	if (visited-1)%w.interval != 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("candidate computation interrupted after %d visits: %w", visited, err)
	}
	return nil
}

// partitionShards splits the partition space by restricted growth prefix.
// The prefix depth is the smallest one giving enough shards for the workers.
func (w *walker) partitionShards(workers int) []func(context.Context) (shardResult, error) {
	depth := 0
	if workers > 1 {
		want := int64(workers * shardsPerWorker)
		for depth < w.n && partition.Bell(depth).Int64() < want {
			depth++
		}
	}

	prefixes := partition.Prefixes(w.n, depth)
	shards := make([]func(context.Context) (shardResult, error), len(prefixes))
	for i, prefix := range prefixes {
		shards[i] = func(ctx context.Context) (shardResult, error) {
			return w.walkPartitions(ctx, prefix)
		}
	}
	return shards
}

func (w *walker) walkPartitions(ctx context.Context, prefix []int) (shardResult, error) {
	e, err := partition.NewWithPrefix(w.n, prefix)
	if err != nil {
		return shardResult{}, err
	}

	res := shardResult{set: NewResultSet()}
	for e.Next() {
		res.visited++
		if err := w.checkpoint(ctx, res.visited); err != nil {
			return shardResult{}, err
		}
		e.ForEachBlock(func(block []uint32) {
			res.tested++
			if w.q.Qualifies(block) {
				res.set.Insert(block)
			}
		})
	}
	return res, nil
}

// subsetShards splits the subset space by the membership of the first
// few indices: shard m fixes index i in or out according to bit i of m.
func (w *walker) subsetShards(workers int) []func(context.Context) (shardResult, error) {
	fixed := 0
	if workers > 1 {
		fixed = min(w.n, maxSubsetShardBits, bits.Len(uint(workers*shardsPerWorker-1)))
	}

	shards := make([]func(context.Context) (shardResult, error), 1<<fixed)
	for mask := range shards {
		shards[mask] = func(ctx context.Context) (shardResult, error) {
			return w.walkSubsets(ctx, uint64(mask), fixed)
		}
	}
	return shards
}

func (w *walker) walkSubsets(ctx context.Context, mask uint64, fixed int) (shardResult, error) {
	res := shardResult{set: NewResultSet()}
	block := make([]uint32, 0, w.n)
	for i := 0; i < fixed; i++ {
		if mask>>i&1 == 1 {
			block = append(block, uint32(i))
		}
	}

	var walk func(i int) error
	walk = func(i int) error {
		if i == w.n {
			res.visited++
			if err := w.checkpoint(ctx, res.visited); err != nil {
				return err
			}
			if len(block) == 0 {
				return nil
			}
			res.tested++
			if w.q.Qualifies(block) {
				res.set.Insert(block)
			}
			return nil
		}
		block = append(block, uint32(i))
		if err := walk(i + 1); err != nil {
			return err
		}
		block = block[:len(block)-1]
		return walk(i + 1)
	}

	if err := walk(fixed); err != nil {
		return shardResult{}, err
	}
	return res, nil
}

// startComputeSpan opens the span for one computation.
func startComputeSpan(ctx context.Context, n, inputLen int, cfg *ComputerConfig) (context.Context, trace.Span) {
	return tracer.Start(ctx, "candidate.Computer.Compute",
		trace.WithAttributes(
			attribute.Int("txlink.values", n),
			attribute.Int("txlink.input_len", inputLen),
			attribute.String("txlink.strategy", string(cfg.Strategy)),
			attribute.String("txlink.boundary", cfg.Boundary.String()),
			attribute.Int("txlink.workers", cfg.Workers),
		),
	)
}
