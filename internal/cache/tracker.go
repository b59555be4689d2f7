// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package cache

import "sync"

// AccessTracker records per-key access frequency. It is purely advisory:
// the warmer uses it to pick warming candidates, and it never affects the
// correctness of Get/Put. Counts grow monotonically until Clear.
type AccessTracker struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewAccessTracker creates an empty tracker.
func NewAccessTracker() *AccessTracker {
	return &AccessTracker{counts: make(map[string]int64)}
}

// Increment bumps the access count for key. O(1).
func (t *AccessTracker) Increment(key string) {
	t.mu.Lock()
	t.counts[key]++
	t.mu.Unlock()
}

// Count returns the current access count for key.
func (t *AccessTracker) Count(key string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[key]
}

// Popular returns the keys accessed at least minCount times. Full scan;
// acceptable at the low cardinality this tracker sees (thousands of keys).
func (t *AccessTracker) Popular(minCount int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var keys []string
	for key, count := range t.counts {
		if count >= minCount {
			keys = append(keys, key)
		}
	}
	return keys
}

// Clear resets all counts.
func (t *AccessTracker) Clear() {
	t.mu.Lock()
	t.counts = make(map[string]int64)
	t.mu.Unlock()
}
