// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package cache

import "errors"

// ErrCompute is returned when a supplied compute callback fails.
// The failed result is never cached; every joiner of the flight sees it.
var ErrCompute = errors.New("cache: compute failed")

// ErrComputeTimeout is returned when a compute callback exceeds its timeout.
// Nothing is cached and the flight slot is released for a future attempt.
var ErrComputeTimeout = errors.New("cache: compute timed out")

// ErrNotFound is returned on a cache miss with no compute path.
var ErrNotFound = errors.New("cache: entry not found")

// ErrUnknownDomain is returned when a cache domain has no registered TTL.
var ErrUnknownDomain = errors.New("cache: unknown domain")
