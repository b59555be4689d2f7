// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package services

import "context"

// Runner wraps a run-until-canceled function as a supervised service.
// Used for the cache janitor, warmer, coordinator sweeper, status ticker,
// and threat refresh pool, whose Run methods already follow the
// suture.Service contract.
type Runner struct {
	name string
	run  func(ctx context.Context) error
}

// NewRunner creates a named service around run.
func NewRunner(name string, run func(ctx context.Context) error) *Runner {
	return &Runner{name: name, run: run}
}

// Serve implements suture.Service.
func (r *Runner) Serve(ctx context.Context) error {
	return r.run(ctx)
}

// String implements fmt.Stringer; suture uses it in supervision logs.
func (r *Runner) String() string {
	return r.name
}
