// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package intel

import "time"

// CharacterAnalysis is the full derived profile for a character: employment
// history summary, killboard statistics, and known associates. Expensive to
// compute, hence cached under the character-analysis domain.
type CharacterAnalysis struct {
	CharacterID int64 `json:"character_id"`

	CorporationID int64 `json:"corporation_id,omitempty"`
	AllianceID    int64 `json:"alliance_id,omitempty"`

	// CorpHistoryLength counts employment history entries; short histories
	// on old characters are a classic alt signal.
	CorpHistoryLength int `json:"corp_history_length"`

	KillCount int `json:"kill_count"`
	LossCount int `json:"loss_count"`

	// Associates lists character IDs that frequently appear on the same
	// killmails.
	Associates []int64 `json:"associates,omitempty"`

	Threat ThreatAssessment `json:"threat"`

	ComputedAt time.Time `json:"computed_at"`
}

// CorrelationResult links an entity (character or system) to related
// intelligence observations, cached under the correlation domain.
type CorrelationResult struct {
	EntityID int64 `json:"entity_id"`

	// RelatedCharacters maps character ID to a correlation strength in
	// [0, 1].
	RelatedCharacters map[int64]float64 `json:"related_characters,omitempty"`

	// SharedSystems lists systems where correlated activity was seen.
	SharedSystems []int64 `json:"shared_systems,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}
