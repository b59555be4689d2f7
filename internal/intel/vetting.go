// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package intel

import "time"

// VettingResult is the outcome of a recruitment vetting run for a character.
type VettingResult struct {
	CharacterID int64 `json:"character_id"`

	// RiskScore is the normalized recruitment risk in [0, 1].
	RiskScore float64 `json:"risk_score"`

	// Flags lists the concrete findings ("seed_alt", "awox_history",
	// "skill_injected", ...). A newly appearing flag is always reportable.
	Flags []string `json:"flags,omitempty"`

	CompletedAt time.Time `json:"completed_at"`
}

// VettingOpts controls how a vetting result is processed.
type VettingOpts struct {
	// Notify forces event dispatch even when the result does not differ
	// significantly from the previous one.
	Notify bool

	// SkipCache leaves the vetting cache untouched, for dry runs.
	SkipCache bool
}

// NewFlags returns the flags present in the result but absent from prev.
// A nil prev means every flag is new.
func (v VettingResult) NewFlags(prev *VettingResult) []string {
	if prev == nil {
		return v.Flags
	}
	old := make(map[string]struct{}, len(prev.Flags))
	for _, f := range prev.Flags {
		old[f] = struct{}{}
	}
	var added []string
	for _, f := range v.Flags {
		if _, ok := old[f]; !ok {
			added = append(added, f)
		}
	}
	return added
}
