// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package intel

import "time"

// ThreatAssessment is the derived threat picture for a single character.
// Produced by the external threat-scoring engine and stored by the
// coordinator; last write wins.
type ThreatAssessment struct {
	CharacterID int64 `json:"character_id"`

	// Level is the normalized threat level in [0, 1].
	Level float64 `json:"level"`

	// Confidence is how much signal backed the assessment, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Factors lists the human-readable contributors to the level
	// (e.g. "recent_kills", "cyno_history", "hostile_corp").
	Factors []string `json:"factors,omitempty"`

	// LastSeenSystem is the solar system the character was last observed in.
	// Zero when unknown.
	LastSeenSystem int64 `json:"last_seen_system,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}
