// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/txlink/services/txlink/candidate"
)

// resultKeyPrefix namespaces result entries. Bump the version when the
// entry encoding changes.
const resultKeyPrefix = "txlink/result/v1/"

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txlink_result_cache_lookups_total",
		Help: "Result cache lookups by outcome",
	}, []string{"outcome"})

	cacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txlink_result_cache_writes_total",
		Help: "Result cache writes by outcome",
	}, []string{"outcome"})
)

// Entry is one cached computation.
type Entry struct {
	// Candidates is the computed candidate set.
	Candidates *candidate.ResultSet `json:"candidates"`

	// Visited is the number of partitions or subsets walked to produce it.
	Visited uint64 `json:"visited"`

	// Strategy is the strategy that produced the entry.
	Strategy candidate.Strategy `json:"strategy"`

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time `json:"created_at"`
}

// ResultStore caches candidate sets keyed by their inputs.
//
// Thread Safety: Safe for concurrent use.
type ResultStore struct {
	db  *DB
	ttl time.Duration
}

// NewResultStore creates a store on db. A zero ttl keeps entries forever.
func NewResultStore(db *DB, ttl time.Duration) (*ResultStore, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("ttl must not be negative: %v", ttl)
	}
	return &ResultStore{db: db, ttl: ttl}, nil
}

// Key derives the cache key of a computation. The strategy is not part of
// the key since every strategy yields the same candidate set.
func Key(values []uint64, inputLen int, boundary candidate.Boundary) []byte {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(boundary))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(inputLen))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(len(values)))
	h.Write(buf[:])
	for _, v := range values {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	return []byte(resultKeyPrefix + hex.EncodeToString(h.Sum(nil)))
}

// Get returns the entry stored under key.
//
// Outputs:
//
//	*Entry - The entry, or nil on a miss.
//	bool - True on a hit.
//	error - Non-nil on context cancellation, read or decode failure.
func (s *ResultStore) Get(ctx context.Context, key []byte) (*Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("result store get: %w", err)
	}

	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	case err != nil:
		cacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("result store get: %w", err)
	}

	if entry.Candidates == nil {
		entry.Candidates = candidate.NewResultSet()
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return &entry, true, nil
}

// Put stores entry under key, replacing any previous entry.
func (s *ResultStore) Put(ctx context.Context, key []byte, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("result store put: %w", err)
	}
	if entry == nil || entry.Candidates == nil {
		return errors.New("result store put: entry has no candidates")
	}

	stored := *entry
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(&stored)
	if err != nil {
		cacheWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("result store encode: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		cacheWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("result store put: %w", err)
	}
	cacheWrites.WithLabelValues("ok").Inc()
	return nil
}

// Delete removes the entry under key. Missing keys are not an error.
func (s *ResultStore) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("result store delete: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Len counts the stored result entries.
func (s *ResultStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("result store len: %w", err)
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(resultKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
