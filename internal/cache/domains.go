// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache domains. Each domain carries its own TTL and shares one compute
// registry slot in the warmer.
const (
	DomainCharacterAnalysis = "character-analysis"
	DomainVetting           = "vetting"
	DomainCorrelation       = "correlation"
)

// Key builds the canonical cache key for a domain/entity pair.
func Key(domain string, entityID int64) string {
	return fmt.Sprintf("%s:%d", domain, entityID)
}

// DomainTTLs maps each cache domain to its entry lifetime.
type DomainTTLs struct {
	CharacterAnalysis time.Duration
	Vetting           time.Duration
	Correlation       time.Duration
}

// TTL returns the TTL for domain, or ErrUnknownDomain.
func (d DomainTTLs) TTL(domain string) (time.Duration, error) {
	switch domain {
	case DomainCharacterAnalysis:
		return d.CharacterAnalysis, nil
	case DomainVetting:
		return d.Vetting, nil
	case DomainCorrelation:
		return d.Correlation, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
}

// IntelCache is the domain-aware facade over Store used by analysis-result
// consumers. It resolves per-domain TTLs and the shared compute timeout so
// callers only name a domain and an entity.
type IntelCache struct {
	store          *Store
	ttls           DomainTTLs
	computeTimeout time.Duration
}

// NewIntelCache wraps store with the given domain TTLs.
func NewIntelCache(store *Store, ttls DomainTTLs, computeTimeout time.Duration) *IntelCache {
	return &IntelCache{
		store:          store,
		ttls:           ttls,
		computeTimeout: computeTimeout,
	}
}

// Store exposes the underlying store for wiring (janitor, warmer).
func (c *IntelCache) Store() *Store { return c.store }

// Get returns the cached analysis for the domain/entity pair, or
// ErrNotFound. Use GetOrCompute when a compute path exists.
func (c *IntelCache) Get(domain string, entityID int64) (interface{}, error) {
	if _, err := c.ttls.TTL(domain); err != nil {
		return nil, err
	}
	v, ok := c.store.Get(Key(domain, entityID))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, Key(domain, entityID))
	}
	return v, nil
}

// GetOrCompute returns the cached analysis for the domain/entity pair,
// computing and caching it on miss. Concurrent callers for the same pair
// share one computation.
func (c *IntelCache) GetOrCompute(ctx context.Context, domain string, entityID int64, fn func(entityID int64) (interface{}, error)) (interface{}, error) {
	ttl, err := c.ttls.TTL(domain)
	if err != nil {
		return nil, err
	}
	return c.store.GetOrCompute(ctx, Key(domain, entityID), ttl, c.computeTimeout, func(context.Context) (interface{}, error) {
		return fn(entityID)
	})
}

// GetOrComputeBatch resolves analyses for several entities in one domain
// with at most maxConcurrent computations in flight. Duplicate ids
// collapse; cached entries are returned without computing. fn receives the
// compute context, which is detached from the caller's cancellation.
func (c *IntelCache) GetOrComputeBatch(ctx context.Context, domain string, entityIDs []int64, maxConcurrent int, fn func(ctx context.Context, entityID int64) (interface{}, error)) (map[int64]BatchResult, error) {
	ttl, err := c.ttls.TTL(domain)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]int64, len(entityIDs))
	keys := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		key := Key(domain, id)
		if _, seen := ids[key]; seen {
			continue
		}
		ids[key] = id
		keys = append(keys, key)
	}

	raw := c.store.GetOrComputeBatch(ctx, keys, ttl, c.computeTimeout, maxConcurrent, func(ctx context.Context, key string) (interface{}, error) {
		return fn(ctx, ids[key])
	})

	results := make(map[int64]BatchResult, len(raw))
	for key, res := range raw {
		results[ids[key]] = res
	}
	return results, nil
}

// Put stores a precomputed analysis under its domain TTL.
func (c *IntelCache) Put(domain string, entityID int64, value interface{}) error {
	ttl, err := c.ttls.TTL(domain)
	if err != nil {
		return err
	}
	c.store.Put(Key(domain, entityID), value, ttl)
	return nil
}

// InvalidateEntity clears all domain entries for the entity.
func (c *IntelCache) InvalidateEntity(entityID int64) {
	c.store.DeleteSuffix(fmt.Sprintf(":%d", entityID))
}

// Stats returns the underlying store counters.
func (c *IntelCache) Stats() Stats {
	return c.store.Stats()
}
