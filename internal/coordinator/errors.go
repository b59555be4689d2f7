// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package coordinator

import "errors"

// ErrNilEndpoint is returned when Subscribe is called without an endpoint.
var ErrNilEndpoint = errors.New("coordinator: subscriber endpoint cannot be nil")

// ErrSubscriptionNotFound is returned when unsubscribing an unknown or
// already closed subscription id.
var ErrSubscriptionNotFound = errors.New("coordinator: subscription not found")

// ErrDelivery marks a failed event delivery. It is logged, never surfaced
// to the producer whose update triggered the event.
var ErrDelivery = errors.New("coordinator: event delivery failed")
