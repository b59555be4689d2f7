// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package warmer proactively recomputes popular cache entries before they
// are requested again, based on the access frequencies recorded by the
// cache's AccessTracker.
package warmer

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/varko/chainwatch/internal/cache"
	"github.com/varko/chainwatch/internal/logging"
	"github.com/varko/chainwatch/internal/metrics"
)

// ComputeFunc recomputes the analysis for one entity in a cache domain.
type ComputeFunc func(ctx context.Context, entityID int64) (interface{}, error)

// Config holds warming parameters.
type Config struct {
	// Interval between warming passes.
	Interval time.Duration

	// PopularityThreshold is the minimum access count for a key to be
	// warmed.
	PopularityThreshold int64

	// MaxConcurrent caps simultaneous warming computations so a pass can
	// never saturate the upstream analysis engines.
	MaxConcurrent int

	// RatePerSecond paces compute starts. Zero disables pacing.
	RatePerSecond float64
}

// Warmer periodically refreshes popular cache entries. It shares the
// store's singleflight compute path with foreground callers - no
// special-cased locking - so it cannot starve request-path operations, and
// an in-flight foreground computation for the same key is joined, not
// duplicated. Warmer reads and computes are untracked: warming a key must
// not count as more popularity.
type Warmer struct {
	cfg      Config
	store    *cache.Store
	tracker  *cache.AccessTracker
	ttls     cache.DomainTTLs
	timeout  time.Duration
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	mu       sync.RWMutex
	computes map[string]ComputeFunc
}

// New creates a warmer over the given store and tracker. Compute functions
// are registered per domain with Register before Run.
func New(cfg Config, store *cache.Store, tracker *cache.AccessTracker, ttls cache.DomainTTLs, computeTimeout time.Duration) *Warmer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.PopularityThreshold <= 0 {
		cfg.PopularityThreshold = 5
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &Warmer{
		cfg:      cfg,
		store:    store,
		tracker:  tracker,
		ttls:     ttls,
		timeout:  computeTimeout,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter:  limiter,
		computes: make(map[string]ComputeFunc),
	}
}

// Register installs the compute function for a cache domain. Keys from
// domains without a registered function are skipped during warming.
func (w *Warmer) Register(domain string, fn ComputeFunc) {
	w.mu.Lock()
	w.computes[domain] = fn
	w.mu.Unlock()
}

// Run executes a warming pass every Interval until ctx is canceled.
func (w *Warmer) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "cache-warmer").Msg("warmer stopped")
			return ctx.Err()
		case <-ticker.C:
			w.WarmPass(ctx)
		}
	}
}

// WarmPass recomputes every popular key that is no longer cached. Per-key
// failures are logged and skipped; one failure never aborts the pass. The
// pass blocks until all its computations finish.
func (w *Warmer) WarmPass(ctx context.Context) {
	keys := w.tracker.Popular(w.cfg.PopularityThreshold)
	metrics.WarmingPasses.Inc()

	if len(keys) == 0 {
		return
	}
	logging.Debug().Int("candidates", len(keys)).Msg("warming pass started")

	var wg sync.WaitGroup
	for _, key := range keys {
		domain, entityID, ok := splitKey(key)
		if !ok {
			metrics.WarmingKeys.WithLabelValues("skipped").Inc()
			continue
		}

		w.mu.RLock()
		fn, registered := w.computes[domain]
		w.mu.RUnlock()
		if !registered {
			metrics.WarmingKeys.WithLabelValues("skipped").Inc()
			continue
		}

		ttl, err := w.ttls.TTL(domain)
		if err != nil {
			metrics.WarmingKeys.WithLabelValues("skipped").Inc()
			continue
		}

		// Still warm - nothing to do. Peek so the check itself does not
		// feed the popularity counts.
		if _, cached := w.store.Peek(key); cached {
			metrics.WarmingKeys.WithLabelValues("cached").Inc()
			continue
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return
		}

		wg.Add(1)
		go func(key string, entityID int64) {
			defer wg.Done()
			defer w.sem.Release(1)

			_, err := w.store.Warm(ctx, key, ttl, w.timeout, func(ctx context.Context) (interface{}, error) {
				return fn(ctx, entityID)
			})
			if err != nil {
				metrics.WarmingKeys.WithLabelValues("failed").Inc()
				logging.Warn().Err(err).Str("key", key).Msg("cache warming failed for key")
				return
			}
			metrics.WarmingKeys.WithLabelValues("warmed").Inc()
		}(key, entityID)
	}

	wg.Wait()
}

// splitKey parses "domain:entityID" cache keys.
func splitKey(key string) (domain string, entityID int64, ok bool) {
	domain, rest, found := strings.Cut(key, ":")
	if !found {
		return "", 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return domain, id, true
}
