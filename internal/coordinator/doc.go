// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

/*
Package coordinator maintains authoritative in-memory intelligence state
and decides, on every producer update, whether the change is significant
enough to broadcast to live subscribers.

State Ownership:

The Coordinator is the single logical owner of the threat, activity, and
chain maps, the recent-battles ring, and the subscription table. All
mutations serialize through one mutex with short critical sections;
threshold evaluation (read previous, compare, write new) is atomic
relative to other updates on the same entity, and fan-out target selection
is consistent with the state change that triggered it.

Update Flow:

	producer -> UpdateThreat/UpdateActivity/UpdateChain/ProcessKillmail
	         -> threshold.Evaluator (significant?)
	         -> state stored unconditionally
	         -> if significant: Event dispatched to matching scopes

Every update is visible to subsequent reads whether or not an event was
emitted. Handler errors and panics are caught and logged as "no state
change, no event"; a single bad update can never crash the coordinator.

Subscription Lifecycle:

Active (Subscribe) -> Closed (Unsubscribe, delivery failure, or liveness
probe failure). There is no transition back; closed ids are never reused.
Delivery is best-effort, at-most-once.

Killmail Handling:

ProcessKillmail runs battle detection inline, then schedules an async
threat refresh for each distinct participant on a bounded worker pool
(refresher). The external scorer sits behind a circuit breaker; results
re-enter through UpdateThreat like any other producer update.
*/
package coordinator
