// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package services wraps the application's background loops as
// suture.Service implementations. The wrappers depend on narrow local
// interfaces rather than the concrete packages, so the supervisor layer
// never creates import cycles with what it supervises.
package services
