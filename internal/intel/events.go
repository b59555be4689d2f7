// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package intel

import "time"

// EventType identifies the kind of event pushed to subscribers.
type EventType string

const (
	EventTypeThreatChanged    EventType = "threat_changed"
	EventTypeActivitySpike    EventType = "activity_spike"
	EventTypeChainUpdated     EventType = "chain_updated"
	EventTypeBattleDetected   EventType = "battle_detected"
	EventTypeVettingCompleted EventType = "vetting_completed"
	EventTypeStatus           EventType = "status"
)

// Event is the envelope delivered to subscriber endpoints. Delivery is
// best-effort, at-most-once.
type Event struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// ThreatEvent is the payload for EventTypeThreatChanged.
// PrevLevel is nil on first observation of the character.
type ThreatEvent struct {
	CharacterID int64    `json:"character_id"`
	NewLevel    float64  `json:"new_level"`
	PrevLevel   *float64 `json:"prev_level,omitempty"`
	Confidence  float64  `json:"confidence"`
	Factors     []string `json:"factors,omitempty"`
}

// ActivitySpikeEvent is the payload for EventTypeActivitySpike.
// Ratio is CurrentLevel divided by the previously stored baseline.
type ActivitySpikeEvent struct {
	SystemID      int64   `json:"system_id"`
	CurrentLevel  float64 `json:"current_level"`
	BaselineLevel float64 `json:"baseline_level"`
	Ratio         float64 `json:"ratio"`
	ActivityType  string  `json:"activity_type,omitempty"`
}

// ChainUpdateEvent is the payload for EventTypeChainUpdated.
type ChainUpdateEvent struct {
	ChainID string      `json:"chain_id"`
	Update  ChainUpdate `json:"update"`
}

// BattleDetectedEvent is the payload for EventTypeBattleDetected.
type BattleDetectedEvent struct {
	BattleID         string    `json:"battle_id"`
	SystemID         int64     `json:"system_id"`
	ParticipantCount int       `json:"participant_count"`
	DetectedAt       time.Time `json:"detected_at"`
}

// VettingCompletedEvent is the payload for EventTypeVettingCompleted.
// PrevRiskScore is nil when no previous vetting run is known.
type VettingCompletedEvent struct {
	CharacterID   int64    `json:"character_id"`
	RiskScore     float64  `json:"risk_score"`
	PrevRiskScore *float64 `json:"prev_risk_score,omitempty"`
	NewFlags      []string `json:"new_flags,omitempty"`
}
