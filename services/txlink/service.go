// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package txlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/txlink/services/txlink/candidate"
	"github.com/AleutianAI/txlink/services/txlink/partition"
	"github.com/AleutianAI/txlink/services/txlink/storage/badger"
	"github.com/AleutianAI/txlink/services/txlink/telemetry"
)

// Version is reported by the health endpoint and the CLI.
const Version = "0.1.0"

// maxPartitionCountN caps GET /v1/txlink/partitions/count. Bell(1000) has
// about 1900 digits.
const maxPartitionCountN = 1000

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// MaxValues caps len(values) per computation.
	MaxValues int

	// RequestTimeout bounds one computation. Zero disables the timeout.
	RequestTimeout time.Duration

	// RateLimit is computations per second. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter bucket size.
	RateBurst int

	// Computer is the default computation configuration.
	Computer *candidate.ComputerConfig
}

// DefaultServiceConfig returns limits suitable for a shared service.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxValues:      16,
		RequestTimeout: 30 * time.Second,
		RateLimit:      10,
		RateBurst:      20,
		Computer:       candidate.DefaultComputerConfig(),
	}
}

// ComputeInput is one computation request.
type ComputeInput struct {
	Values   []uint64
	InputLen int

	// Strategy overrides the configured strategy when non-empty.
	Strategy candidate.Strategy

	// Boundary overrides the configured boundary rule when non-nil.
	Boundary *candidate.Boundary
}

// ComputeResult is the outcome of Service.Compute.
type ComputeResult struct {
	Candidates *candidate.ResultSet

	// Visited counts the partitions or subsets walked for this request.
	// It is zero when the result came from the cache.
	Visited uint64

	// Strategy is the strategy the request asked for, cached or not.
	Strategy candidate.Strategy
	Boundary   candidate.Boundary
	Cached     bool
	Duration   time.Duration
}

// Service runs candidate computations under request limits.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	cfg     ServiceConfig
	limiter *rate.Limiter
	store   *badger.ResultStore
}

// NewService creates a Service. store may be nil to disable caching.
func NewService(cfg ServiceConfig, store *badger.ResultStore) (*Service, error) {
	if cfg.MaxValues < 1 {
		return nil, fmt.Errorf("max values must be at least 1, got %d", cfg.MaxValues)
	}
	if cfg.Computer == nil {
		cfg.Computer = candidate.DefaultComputerConfig()
	}
	if _, err := candidate.NewComputer(cfg.Computer); err != nil {
		return nil, fmt.Errorf("computer config: %w", err)
	}

	s := &Service{cfg: cfg, store: store}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, cfg.RateBurst))
	}
	return s, nil
}

// Config returns the service configuration.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// CacheEnabled reports whether a result store is attached.
func (s *Service) CacheEnabled() bool {
	return s.store != nil
}

// Compute returns the candidates for in.
//
// Description:
//
//	Checks the value cap and the rate limiter, answers from the result
//	cache when possible, and otherwise runs candidate.Computer under the
//	request timeout. Successful computations are written back to the
//	cache; cache failures are logged and never fail the request.
//
// Outputs:
//
//	*ComputeResult - Candidates and statistics.
//	error - ErrTooManyValues, ErrRateLimited, ErrComputeTimeout,
//	    candidate.ErrInvalidBoundary, candidate.ErrInvalidStrategy, or the
//	    caller's context error.
func (s *Service) Compute(ctx context.Context, in ComputeInput) (*ComputeResult, error) {
	if ctx == nil {
		return nil, candidate.ErrNilContext
	}
	if len(in.Values) > s.cfg.MaxValues {
		return nil, fmt.Errorf("%w: %d values, limit %d", ErrTooManyValues, len(in.Values), s.cfg.MaxValues)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, ErrRateLimited
	}

	cfg := *s.cfg.Computer
	if in.Strategy != "" {
		cfg.Strategy = in.Strategy
	}
	if in.Boundary != nil {
		cfg.Boundary = *in.Boundary
	}
	computer, err := candidate.NewComputer(&cfg)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "Service.Compute",
		telemetry.AttrValues.Int(len(in.Values)),
		telemetry.AttrInputLen.Int(in.InputLen),
		telemetry.AttrStrategy.String(string(cfg.Strategy)),
	)
	res, err := s.compute(ctx, computer, in, cfg.Boundary)
	if res != nil {
		span.SetAttributes(
			telemetry.AttrCached.Bool(res.Cached),
			telemetry.AttrCandidates.Int(res.Candidates.Len()),
		)
	}
	telemetry.FinishSpan(span, err)
	return res, err
}

// compute answers from the cache or runs computer and stores the result.
func (s *Service) compute(ctx context.Context, computer *candidate.Computer, in ComputeInput, boundary candidate.Boundary) (*ComputeResult, error) {
	logger := telemetry.LoggerWithTrace(ctx, slog.Default())
	start := time.Now()

	var key []byte
	if s.store != nil {
		key = badger.Key(in.Values, in.InputLen, boundary)
		entry, ok, err := s.store.Get(ctx, key)
		if err != nil {
			logger.Warn("result cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return &ComputeResult{
				Candidates: entry.Candidates,
				Strategy:   computer.Config().Strategy,
				Boundary:   boundary,
				Cached:     true,
				Duration:   time.Since(start),
			}, nil
		}
	}

	computeCtx := ctx
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		computeCtx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	out, err := computer.Compute(computeCtx, in.Values, in.InputLen)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %v: %w", ErrComputeTimeout, s.cfg.RequestTimeout, err)
		}
		return nil, err
	}

	if s.store != nil {
		entry := &badger.Entry{
			Candidates: out.Candidates,
			Visited:    out.Visited,
			Strategy:   out.Strategy,
		}
		if err := s.store.Put(ctx, key, entry); err != nil {
			logger.Warn("result cache write failed", slog.String("error", err.Error()))
		}
	}

	return &ComputeResult{
		Candidates: out.Candidates,
		Visited:    out.Visited,
		Strategy:   out.Strategy,
		Boundary:   boundary,
		Duration:   time.Since(start),
	}, nil
}

// PartitionCount returns Bell(n), the number of set partitions of n items.
func (s *Service) PartitionCount(n int) (*big.Int, error) {
	if n < 0 || n > maxPartitionCountN {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrPartitionSizeOutOfRange, n, maxPartitionCountN)
	}
	return partition.Bell(n), nil
}
