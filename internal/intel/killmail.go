// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package intel

import (
	"fmt"
	"time"
)

// Participant identifies a character involved in a killmail.
type Participant struct {
	CharacterID   int64 `json:"character_id"`
	CorporationID int64 `json:"corporation_id,omitempty"`
	AllianceID    int64 `json:"alliance_id,omitempty"`
	ShipTypeID    int64 `json:"ship_type_id,omitempty"`
}

// Killmail is a kill report as delivered by the killmail feed.
type Killmail struct {
	KillmailID int64         `json:"killmail_id"`
	SystemID   int64         `json:"system_id"`
	Victim     Participant   `json:"victim"`
	Attackers  []Participant `json:"attackers"`
	Time       time.Time     `json:"time"`
}

// ParticipantCount returns the total number of characters on the killmail,
// attackers plus the victim.
func (k Killmail) ParticipantCount() int {
	return len(k.Attackers) + 1
}

// ParticipantIDs returns the distinct non-zero character IDs on the killmail.
// Order follows first appearance: victim, then attackers.
func (k Killmail) ParticipantIDs() []int64 {
	seen := make(map[int64]struct{}, len(k.Attackers)+1)
	ids := make([]int64, 0, len(k.Attackers)+1)

	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	add(k.Victim.CharacterID)
	for _, a := range k.Attackers {
		add(a.CharacterID)
	}
	return ids
}

// BattleRecord is an engagement detected from a killmail. Records are
// append-only and pruned by the coordinator's retention sweep.
type BattleRecord struct {
	BattleID         string    `json:"battle_id"`
	SystemID         int64     `json:"system_id"`
	ParticipantCount int       `json:"participant_count"`
	DetectedAt       time.Time `json:"detected_at"`
}

// BattleID derives the deterministic battle identifier for a killmail:
// the system joined with the kill's unix timestamp. Kills from the same
// system in the same second belong to the same battle.
func BattleID(systemID int64, killTime time.Time) string {
	return fmt.Sprintf("%d-%d", systemID, killTime.Unix())
}
