// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package cache

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/varko/chainwatch/internal/logging"
	"github.com/varko/chainwatch/internal/metrics"
)

// shardCount is the number of independently locked map shards. Get/Put on
// different shards never serialize.
const shardCount = 32

// ComputeFunc produces the value for a missing key. The context carries the
// compute timeout; implementations should respect cancellation.
type ComputeFunc func(ctx context.Context) (interface{}, error)

// entry is a cached item. Immutable once written; replaced wholesale on
// refresh.
type entry struct {
	value     interface{}
	createdAt time.Time
	expiresAt time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Store is a sharded in-memory TTL cache with singleflight compute-on-miss.
//
// An entry is never returned once its TTL has elapsed: expiry is lazy on
// read (the expired entry is deleted and counted as an eviction) with an
// optional eager janitor sweep (RunJanitor).
type Store struct {
	shards  [shardCount]*shard
	flight  singleflight.Group
	tracker *AccessTracker

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size      int     `json:"size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRatio  float64 `json:"hit_ratio"`
}

// NewStore creates an empty store. The tracker may be nil; when set, every
// Get and GetOrCompute records an access against it.
func NewStore(tracker *AccessTracker) *Store {
	s := &Store{tracker: tracker}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]entry)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// Get retrieves the value for key. An expired entry is removed, counted as
// an eviction, and reported as a miss.
func (s *Store) Get(key string) (interface{}, bool) {
	if s.tracker != nil {
		s.tracker.Increment(key)
	}
	return s.lookup(key)
}

// Peek is Get without access tracking, for background checks that must not
// influence the popularity counts (the warmer would otherwise keep its own
// candidates popular forever).
func (s *Store) Peek(key string) (interface{}, bool) {
	return s.lookup(key)
}

// lookup is Get without access tracking, used internally to avoid double
// counting on the compute path.
func (s *Store) lookup(key string) (interface{}, bool) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	e, exists := sh.entries[key]
	sh.mu.RUnlock()

	if !exists {
		s.misses.Add(1)
		metrics.CacheMisses.Inc()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		sh.mu.Lock()
		// Re-check under the write lock; a Put may have raced the expiry.
		if cur, ok := sh.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(sh.entries, key)
			s.evictions.Add(1)
			metrics.CacheEvictions.Inc()
		}
		sh.mu.Unlock()
		s.misses.Add(1)
		metrics.CacheMisses.Inc()
		return nil, false
	}

	s.hits.Add(1)
	metrics.CacheHits.Inc()
	return e.value, true
}

// Put stores value under key with the given TTL, replacing any previous
// entry.
func (s *Store) Put(key string, value interface{}, ttl time.Duration) {
	now := time.Now()
	sh := s.shardFor(key)

	sh.mu.Lock()
	sh.entries[key] = entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	sh.mu.Unlock()
}

// Delete removes key. Explicit deletion does not count as an eviction.
func (s *Store) Delete(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

// DeleteSuffix removes every key ending in suffix across all shards and
// returns the number removed. Used for per-entity invalidation; full scan,
// acceptable at this cache's cardinality.
func (s *Store) DeleteSuffix(suffix string) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key := range sh.entries {
			if strings.HasSuffix(key, suffix) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Clear removes all entries and resets the access tracker.
func (s *Store) Clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[string]entry)
		sh.mu.Unlock()
	}
	if s.tracker != nil {
		s.tracker.Clear()
	}
}

// GetOrCompute returns the cached value for key, or runs fn to produce it.
//
// At most one compute runs per key at a time: concurrent callers missing on
// the same key join the in-flight computation and all receive its result or
// error. Failed and timed-out computations are never cached; the flight is
// released so a later call can retry.
//
// The compute runs detached from the caller's cancellation (a joiner's
// context must not abort a flight other callers are waiting on) and is
// bounded by timeout.
func (s *Store) GetOrCompute(ctx context.Context, key string, ttl, timeout time.Duration, fn ComputeFunc) (interface{}, error) {
	if s.tracker != nil {
		s.tracker.Increment(key)
	}
	return s.getOrCompute(ctx, key, ttl, timeout, fn)
}

// Warm is GetOrCompute without access tracking: the warmer refreshes a key
// because it was popular, which must not count as more popularity.
func (s *Store) Warm(ctx context.Context, key string, ttl, timeout time.Duration, fn ComputeFunc) (interface{}, error) {
	return s.getOrCompute(ctx, key, ttl, timeout, fn)
}

func (s *Store) getOrCompute(ctx context.Context, key string, ttl, timeout time.Duration, fn ComputeFunc) (interface{}, error) {
	if v, ok := s.lookup(key); ok {
		return v, nil
	}

	v, err, shared := s.flight.Do(key, func() (interface{}, error) {
		// A previous flight may have populated the entry between our miss
		// and acquiring the flight slot.
		if v, ok := s.lookup(key); ok {
			return v, nil
		}
		return s.compute(ctx, key, ttl, timeout, fn)
	})
	if shared {
		metrics.CacheFlightJoins.Inc()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// compute runs fn under the timeout and caches a successful result.
func (s *Store) compute(ctx context.Context, key string, ttl, timeout time.Duration, fn ComputeFunc) (interface{}, error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()

	type result struct {
		value interface{}
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(cctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		metrics.CacheComputeDuration.Observe(time.Since(start).Seconds())
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCompute, r.err)
		}
		s.Put(key, r.value, ttl)
		return r.value, nil

	case <-cctx.Done():
		metrics.CacheComputeDuration.Observe(time.Since(start).Seconds())
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrComputeTimeout, key, timeout)
		}
		return nil, cctx.Err()
	}
}

// BatchResult carries one key's outcome from GetOrComputeBatch.
type BatchResult struct {
	Value interface{}
	Err   error
}

// GetOrComputeBatch resolves every key through GetOrCompute with at most
// maxConcurrent computations in flight. Per-key failures are reported in the
// result map; one failure does not abort the batch.
func (s *Store) GetOrComputeBatch(ctx context.Context, keys []string, ttl, timeout time.Duration, maxConcurrent int, fn func(ctx context.Context, key string) (interface{}, error)) map[string]BatchResult {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	var (
		mu      sync.Mutex
		results = make(map[string]BatchResult, len(keys))
		wg      sync.WaitGroup
	)

	for _, key := range keys {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			results[key] = BatchResult{Err: err}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			defer sem.Release(1)

			v, err := s.GetOrCompute(ctx, key, ttl, timeout, func(ctx context.Context) (interface{}, error) {
				return fn(ctx, key)
			})

			mu.Lock()
			results[key] = BatchResult{Value: v, Err: err}
			mu.Unlock()
		}(key)
	}

	wg.Wait()
	return results
}

// Size returns the current number of entries, expired or not.
func (s *Store) Size() int {
	size := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		size += len(sh.entries)
		sh.mu.RUnlock()
	}
	return size
}

// Stats returns a snapshot of the cache counters. HitRatio is a percentage.
func (s *Store) Stats() Stats {
	hits := s.hits.Load()
	misses := s.misses.Load()

	ratio := 0.0
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total) * 100.0
	}

	size := s.Size()
	metrics.CacheSize.Set(float64(size))

	return Stats{
		Size:      size,
		Hits:      hits,
		Misses:    misses,
		Evictions: s.evictions.Load(),
		HitRatio:  ratio,
	}
}

// RunJanitor sweeps expired entries every interval until ctx is canceled.
// It uses the same per-shard locks as foreground calls with short critical
// sections, so it cannot starve request-path operations. Implements
// suture.Service via the supervisor wrapper.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "cache-janitor").Msg("janitor stopped")
			return ctx.Err()
		case <-ticker.C:
			removed := s.sweepExpired()
			if removed > 0 {
				logging.Debug().Int("removed", removed).Msg("cache janitor swept expired entries")
			}
		}
	}
}

// sweepExpired removes expired entries from every shard and counts them as
// evictions.
func (s *Store) sweepExpired() int {
	now := time.Now()
	removed := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, e := range sh.entries {
			if now.After(e.expiresAt) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}

	if removed > 0 {
		s.evictions.Add(int64(removed))
		metrics.CacheEvictions.Add(float64(removed))
	}
	return removed
}
