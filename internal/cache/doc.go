// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

/*
Package cache implements the intelligence analysis cache.

Derived analyses (character threat profiles, vetting reports, correlation
results) are expensive to compute, so results are cached in memory with
per-domain TTLs. The cache is cold on restart; durability is out of scope.

Key Components:

  - Store: sharded TTL key/value store with hit/miss/eviction counters.
    32 shards with independent RWMutexes, so Get/Put never serialize
    globally.
  - Singleflight compute-on-miss: GetOrCompute guarantees at most one
    concurrent computation per key; concurrent callers missing on the same
    key join the in-flight computation and share its result or error.
    Failures and timeouts are never cached.
  - AccessTracker: advisory per-key access counts used by the warmer to
    pick pre-warming candidates.
  - IntelCache: domain-aware facade resolving per-domain TTLs
    (character-analysis 12h, vetting 24h, correlation 4h by default).

Expiry is lazy on read: an expired entry is deleted when touched and counted
as an eviction. A supervised janitor (RunJanitor) additionally sweeps shards
eagerly so idle expired entries do not accumulate.

Thread Safety:

All operations are safe for concurrent use. The check-then-register for
compute-on-miss is atomic through singleflight.Group, so two goroutines
racing on the same missing key cannot both invoke the compute callback.
*/
package cache
