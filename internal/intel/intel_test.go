// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package intel

import (
	"testing"
	"time"
)

func TestScopeKeys(t *testing.T) {
	cases := []struct {
		scope Scope
		want  string
	}{
		{GlobalScope(), "global"},
		{CharacterScope(92508734), "character:92508734"},
		{SystemScope(31000005), "system:31000005"},
		{ChainScope("home"), "chain:home"},
	}
	for _, tc := range cases {
		if got := tc.scope.Key(); got != tc.want {
			t.Errorf("Key() = %q, want %q", got, tc.want)
		}
	}
}

func TestParseScopeRoundTrip(t *testing.T) {
	for _, raw := range []string{"global", "character:92508734", "system:31000005", "chain:home"} {
		scope, err := ParseScope(raw)
		if err != nil {
			t.Fatalf("ParseScope(%q) failed: %v", raw, err)
		}
		if scope.Key() != raw {
			t.Errorf("Round trip of %q produced %q", raw, scope.Key())
		}
	}
}

func TestParseScopeRejectsInvalid(t *testing.T) {
	invalid := []string{
		"",
		"character",
		"character:",
		"character:abc",
		"character:-5",
		"character:0",
		"system:xyz",
		"corporation:123",
		"globals",
	}
	for _, raw := range invalid {
		if _, err := ParseScope(raw); err == nil {
			t.Errorf("ParseScope(%q) should fail", raw)
		}
	}
}

func TestBattleID(t *testing.T) {
	killTime := time.Unix(1756600000, 999000000) // sub-second precision is dropped
	if got := BattleID(31000001, killTime); got != "31000001-1756600000" {
		t.Errorf("BattleID = %q", got)
	}
}

func TestKillmailParticipantCount(t *testing.T) {
	km := Killmail{Attackers: make([]Participant, 4)}
	if got := km.ParticipantCount(); got != 5 {
		t.Errorf("Expected 5 (attackers plus victim), got %d", got)
	}
}

func TestKillmailParticipantIDs(t *testing.T) {
	km := Killmail{
		Victim: Participant{CharacterID: 100},
		Attackers: []Participant{
			{CharacterID: 200},
			{CharacterID: 100}, // duplicate of victim
			{CharacterID: 0},   // structure or NPC, no character
			{CharacterID: 300},
		},
	}

	ids := km.ParticipantIDs()
	want := []int64{100, 200, 300}
	if len(ids) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, ids)
			break
		}
	}
}

func TestVettingNewFlags(t *testing.T) {
	next := VettingResult{Flags: []string{"seed_alt", "awox_history"}}

	// Nil previous: everything is new.
	if got := next.NewFlags(nil); len(got) != 2 {
		t.Errorf("Expected all flags new, got %v", got)
	}

	prev := &VettingResult{Flags: []string{"seed_alt"}}
	got := next.NewFlags(prev)
	if len(got) != 1 || got[0] != "awox_history" {
		t.Errorf("Expected [awox_history], got %v", got)
	}

	// No new flags.
	same := VettingResult{Flags: []string{"seed_alt"}}
	if got := same.NewFlags(prev); len(got) != 0 {
		t.Errorf("Expected no new flags, got %v", got)
	}
}
