// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package intel

import "time"

// Activity type classifiers reported by the activity analyzers.
const (
	ActivityTypePVP    = "pvp"
	ActivityTypePVE    = "pve"
	ActivityTypeMining = "mining"
	ActivityTypeTravel = "travel"
)

// ActivityData is a point-in-time activity reading for a solar system.
// BaselineLevel is the rolling baseline computed upstream; spike detection
// compares a new reading's CurrentLevel against the previously stored
// baseline.
type ActivityData struct {
	SystemID int64 `json:"system_id"`

	// CurrentLevel is the instantaneous activity measure (kills, jumps,
	// pod losses - unit is up to the producer, only ratios matter here).
	CurrentLevel float64 `json:"current_level"`

	// BaselineLevel is the producer's rolling baseline for the system.
	BaselineLevel float64 `json:"baseline_level"`

	// ActivityType classifies the dominant activity, see ActivityType*.
	ActivityType string `json:"activity_type,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}
