// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger stores computed candidate sets in BadgerDB.
//
// The store is a read-through cache for the txlink service: identical
// (values, input_len, boundary) requests are answered from disk instead of
// re-walking Bell(n) partitions. Entries carry an optional TTL.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrPathRequired is returned by Open for an on-disk cache without a path.
	ErrPathRequired = errors.New("cache path is required unless in-memory")

	// ErrInvalidDiscardRatio is returned by Open when GC is enabled with a
	// ratio outside (0, 1).
	ErrInvalidDiscardRatio = errors.New("gc discard ratio must be in (0, 1)")
)

var gcRewrites = promauto.NewCounter(prometheus.CounterOpts{
	Name: "txlink_result_cache_gc_rewrites_total",
	Help: "Value log files rewritten by result cache GC",
})

// Config describes where and how the result cache is stored.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path     string
	InMemory bool

	// SyncWrites fsyncs every commit. Off by default; a lost entry is
	// recomputed on the next miss.
	SyncWrites bool

	// Logger receives BadgerDB's own log lines. Nil silences them.
	Logger *slog.Logger

	// GCInterval between value log GC passes. Zero disables GC. GC never
	// runs in memory.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig returns the on-disk defaults. Path must still be set.
func DefaultConfig() Config {
	return Config{
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for an ephemeral cache.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

func (c Config) validate() error {
	if !c.InMemory && c.Path == "" {
		return ErrPathRequired
	}
	if c.gcEnabled() && (c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidDiscardRatio, c.GCDiscardRatio)
	}
	return nil
}

func (c Config) gcEnabled() bool {
	return c.GCInterval > 0 && !c.InMemory
}

func (c Config) options() badger.Options {
	dir := c.Path
	if c.InMemory {
		dir = ""
	}
	opts := badger.DefaultOptions(dir).
		WithInMemory(c.InMemory).
		WithSyncWrites(c.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if c.Logger != nil {
		opts = opts.WithLogger(slogAdapter{c.Logger.With(slog.String("component", "badger"))})
	}
	return opts
}

// slogAdapter satisfies badger.Logger.
type slogAdapter struct{ l *slog.Logger }

func (a slogAdapter) Errorf(f string, args ...any)   { a.l.Error(fmt.Sprintf(f, args...)) }
func (a slogAdapter) Warningf(f string, args ...any) { a.l.Warn(fmt.Sprintf(f, args...)) }
func (a slogAdapter) Infof(f string, args ...any)    { a.l.Debug(fmt.Sprintf(f, args...)) }
func (a slogAdapter) Debugf(f string, args ...any)   { a.l.Debug(fmt.Sprintf(f, args...)) }

// DB is an open BadgerDB plus its background GC.
//
// Thread Safety: Safe for concurrent use.
type DB struct {
	*badger.DB
	cfg Config

	stopGC    context.CancelFunc
	gcDone    sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Open opens the database described by cfg and starts value log GC.
//
// Outputs:
//
//	*DB - Call Close when done.
//	error - ErrPathRequired, ErrInvalidDiscardRatio, or an open failure.
func Open(cfg Config) (*DB, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !cfg.InMemory {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
	}

	bdb, err := badger.Open(cfg.options())
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	db := &DB{DB: bdb, cfg: cfg, stopGC: cancel}
	if cfg.gcEnabled() {
		db.gcDone.Add(1)
		go db.gcLoop(ctx)
	}
	return db, nil
}

// OpenInMemory opens an ephemeral database.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

// Close stops GC and closes the database. Later calls return the first
// result.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		d.stopGC()
		d.gcDone.Wait()
		d.closeErr = d.DB.Close()
	})
	return d.closeErr
}

// Path is the data directory, "" in memory.
func (d *DB) Path() string {
	if d.cfg.InMemory {
		return ""
	}
	return d.cfg.Path
}

func (d *DB) InMemory() bool { return d.cfg.InMemory }

func (d *DB) gcLoop(ctx context.Context) {
	defer d.gcDone.Done()

	ticker := time.NewTicker(d.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.collect(ctx)
		}
	}
}

// collect rewrites value log files until BadgerDB reports nothing left.
func (d *DB) collect(ctx context.Context) {
	for ctx.Err() == nil {
		err := d.RunValueLogGC(d.cfg.GCDiscardRatio)
		switch {
		case err == nil:
			gcRewrites.Inc()
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
			return
		default:
			if d.cfg.Logger != nil {
				d.cfg.Logger.Warn("result cache GC failed", slog.String("error", err.Error()))
			}
			return
		}
	}
}
