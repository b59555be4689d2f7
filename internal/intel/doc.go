// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

/*
Package intel defines the domain types shared across Chainwatch.

It holds the intelligence state records produced by the analysis engines
(threat assessments, system activity, chain snapshots, killmails, vetting
results), the event payloads dispatched to live subscribers, and the
subscription Scope used to route those events.

The types here are plain data carriers. All behavior - thresholding,
state ownership, event dispatch - lives in internal/threshold and
internal/coordinator.
*/
package intel
