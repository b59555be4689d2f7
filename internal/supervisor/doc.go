// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package supervisor builds the suture supervision tree that keeps every
// background loop running: cache janitor, warmer, coordinator sweeper,
// status ticker, threat refresh pool, WebSocket hub, and HTTP server.
// Services that return errors are restarted with exponential backoff;
// the layered tree isolates failures so a crashing cache loop never takes
// the event plane down with it.
package supervisor
