// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package coordinator

import (
	"time"

	"github.com/google/uuid"

	"github.com/varko/chainwatch/internal/intel"
)

// SubscriptionID is an opaque subscription handle. IDs are never reused;
// a closed id stays dead.
type SubscriptionID string

// SubscriberEndpoint receives dispatched events. Implemented by the
// WebSocket client wrapper and by in-process consumers.
//
// Deliver is best-effort, at-most-once: an error closes the subscription.
// Alive is the liveness probe checked before each delivery attempt; a dead
// endpoint is unsubscribed automatically.
type SubscriberEndpoint interface {
	Deliver(event intel.Event) error
	Alive() bool
}

// subscription pairs a scope with its endpoint. The scope is immutable
// after creation; only existence changes (Active -> Closed, no way back).
type subscription struct {
	id        SubscriptionID
	scope     intel.Scope
	endpoint  SubscriberEndpoint
	createdAt time.Time
}

// registry indexes subscriptions by id and by scope key for O(1) fan-out
// lookup. It carries no lock of its own: the coordinator's mutex guards
// every access, so scope matching is always consistent with the state
// change that triggered a dispatch.
type registry struct {
	subs    map[SubscriptionID]*subscription
	byScope map[string]map[SubscriptionID]*subscription
}

func newRegistry() *registry {
	return &registry{
		subs:    make(map[SubscriptionID]*subscription),
		byScope: make(map[string]map[SubscriptionID]*subscription),
	}
}

// add registers a new subscription and returns its id.
func (r *registry) add(scope intel.Scope, endpoint SubscriberEndpoint) SubscriptionID {
	sub := &subscription{
		id:        SubscriptionID(uuid.NewString()),
		scope:     scope,
		endpoint:  endpoint,
		createdAt: time.Now(),
	}
	r.subs[sub.id] = sub

	key := scope.Key()
	if r.byScope[key] == nil {
		r.byScope[key] = make(map[SubscriptionID]*subscription)
	}
	r.byScope[key][sub.id] = sub

	return sub.id
}

// remove closes a subscription. Reports whether the id was present.
func (r *registry) remove(id SubscriptionID) bool {
	sub, ok := r.subs[id]
	if !ok {
		return false
	}
	delete(r.subs, id)

	key := sub.scope.Key()
	if set := r.byScope[key]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byScope, key)
		}
	}
	return true
}

// matching returns the subscriptions registered under any of the given
// scope keys. A subscription matches at most one key, so no deduplication
// is needed.
func (r *registry) matching(scopeKeys ...string) []*subscription {
	var matched []*subscription
	for _, key := range scopeKeys {
		for _, sub := range r.byScope[key] {
			matched = append(matched, sub)
		}
	}
	return matched
}

// size returns the number of active subscriptions.
func (r *registry) size() int {
	return len(r.subs)
}
