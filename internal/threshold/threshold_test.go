// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package threshold

import (
	"math"
	"testing"
	"time"

	"github.com/varko/chainwatch/internal/intel"
)

func TestThreatDeltaFirstObservation(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	delta, significant := e.ThreatDelta(nil, intel.ThreatAssessment{Level: 0.05})
	if delta != 1.0 {
		t.Errorf("Expected delta 1.0 for first observation, got %f", delta)
	}
	if !significant {
		t.Error("First observation must always signal")
	}
}

func TestThreatDeltaZeroPreviousLevel(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	prev := &intel.ThreatAssessment{Level: 0}
	delta, significant := e.ThreatDelta(prev, intel.ThreatAssessment{Level: 0.01})
	if delta != 1.0 || !significant {
		t.Errorf("Movement off a zero level must signal as a first observation, got delta %f significant %v", delta, significant)
	}
}

func TestThreatDeltaBoundaries(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	cases := []struct {
		name        string
		prev        float64
		next        float64
		wantDelta   float64
		significant bool
	}{
		// 0.85 -> 0.90 is a ~5.9% relative change: suppressed.
		{"small shift suppressed", 0.85, 0.90, 0.05 / 0.85, false},
		// 0.5 -> 0.9 is an 80% relative change: signals.
		{"large shift signals", 0.5, 0.9, 0.8, true},
		// Exactly at the 15% threshold: inclusive, signals.
		{"exact threshold signals", 0.4, 0.46, 0.15, true},
		// Drops count the same as rises.
		{"drop signals", 0.8, 0.4, 0.5, true},
		{"just below threshold suppressed", 1.0, 1.14, 0.14, false},
	}

	for _, tc := range cases {
		delta, significant := e.ThreatDelta(
			&intel.ThreatAssessment{Level: tc.prev},
			intel.ThreatAssessment{Level: tc.next},
		)
		if math.Abs(delta-tc.wantDelta) > 1e-9 {
			t.Errorf("%s: delta = %f, want %f", tc.name, delta, tc.wantDelta)
		}
		if significant != tc.significant {
			t.Errorf("%s: significant = %v, want %v", tc.name, significant, tc.significant)
		}
	}
}

func TestActivitySpikeNeedsBaseline(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	// No previous record: stored without evaluation.
	if _, spike := e.ActivitySpike(nil, intel.ActivityData{CurrentLevel: 100}); spike {
		t.Error("First reading must not spike")
	}

	// Neither baseline nor level on the previous record: no evaluation.
	prev := &intel.ActivityData{BaselineLevel: 0, CurrentLevel: 0}
	if _, spike := e.ActivitySpike(prev, intel.ActivityData{CurrentLevel: 100}); spike {
		t.Error("Previous record without any level must not spike")
	}
}

func TestActivitySpikeBaselineFallsBackToLevel(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	// The previous sample carried no baseline; its level stands in.
	prev := &intel.ActivityData{CurrentLevel: 10, BaselineLevel: 0}

	ratio, spike := e.ActivitySpike(prev, intel.ActivityData{CurrentLevel: 29})
	if spike {
		t.Errorf("2.9x the fallback baseline must not spike, ratio %f", ratio)
	}

	ratio, spike = e.ActivitySpike(prev, intel.ActivityData{CurrentLevel: 30})
	if !spike {
		t.Errorf("3.0x the fallback baseline must spike, ratio %f", ratio)
	}

	// An explicit baseline wins over the level.
	prev = &intel.ActivityData{CurrentLevel: 100, BaselineLevel: 10}
	if got := EffectiveBaseline(prev); got != 10 {
		t.Errorf("Expected explicit baseline 10, got %f", got)
	}
}

func TestActivitySpikeRatio(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	prev := &intel.ActivityData{BaselineLevel: 10}

	ratio, spike := e.ActivitySpike(prev, intel.ActivityData{CurrentLevel: 29})
	if spike {
		t.Errorf("2.9x must not spike, ratio %f", ratio)
	}

	ratio, spike = e.ActivitySpike(prev, intel.ActivityData{CurrentLevel: 30})
	if !spike {
		t.Errorf("3.0x must spike (inclusive threshold), ratio %f", ratio)
	}
	if ratio != 3.0 {
		t.Errorf("Expected ratio 3.0, got %f", ratio)
	}
}

func TestDetectBattle(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	killTime := time.Unix(1756600000, 0)

	// 3 attackers + victim = 4 participants: below the threshold of 5.
	km := intel.Killmail{
		KillmailID: 1,
		SystemID:   31000001,
		Attackers:  make([]intel.Participant, 3),
		Time:       killTime,
	}
	if _, battle := e.DetectBattle(km); battle {
		t.Error("4 participants must not count as a battle")
	}

	// 4 attackers + victim = 5: exactly at the threshold.
	km.Attackers = make([]intel.Participant, 4)
	record, battle := e.DetectBattle(km)
	if !battle {
		t.Fatal("5 participants must count as a battle")
	}
	if record.BattleID != "31000001-1756600000" {
		t.Errorf("Unexpected battle id %s", record.BattleID)
	}
	if record.ParticipantCount != 5 {
		t.Errorf("Expected 5 participants, got %d", record.ParticipantCount)
	}
	if !record.DetectedAt.Equal(killTime) {
		t.Errorf("Expected DetectedAt %v, got %v", killTime, record.DetectedAt)
	}
}

func TestVettingChange(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	// First vetting always signals.
	significant, flags := e.VettingChange(nil, intel.VettingResult{RiskScore: 0.1, Flags: []string{"seed_alt"}})
	if !significant {
		t.Error("First vetting must signal")
	}
	if len(flags) != 1 || flags[0] != "seed_alt" {
		t.Errorf("Expected all flags new on first vetting, got %v", flags)
	}

	prev := &intel.VettingResult{RiskScore: 0.5, Flags: []string{"seed_alt"}}

	// A new flag signals regardless of score movement.
	significant, flags = e.VettingChange(prev, intel.VettingResult{RiskScore: 0.5, Flags: []string{"seed_alt", "awox_history"}})
	if !significant {
		t.Error("A new flag must signal")
	}
	if len(flags) != 1 || flags[0] != "awox_history" {
		t.Errorf("Expected only the new flag, got %v", flags)
	}

	// Small score drift with no new flags is suppressed.
	significant, flags = e.VettingChange(prev, intel.VettingResult{RiskScore: 0.52, Flags: []string{"seed_alt"}})
	if significant {
		t.Error("4% risk drift must not signal")
	}
	if len(flags) != 0 {
		t.Errorf("Expected no new flags, got %v", flags)
	}

	// Large relative score change signals.
	significant, _ = e.VettingChange(prev, intel.VettingResult{RiskScore: 0.8, Flags: []string{"seed_alt"}})
	if !significant {
		t.Error("60% risk change must signal")
	}
}

func TestNewEvaluatorZeroConfigUsesDefaults(t *testing.T) {
	e := NewEvaluator(Config{})

	// The defaults kick in: 0.15 threat change.
	_, significant := e.ThreatDelta(&intel.ThreatAssessment{Level: 1.0}, intel.ThreatAssessment{Level: 1.1})
	if significant {
		t.Error("10% change must be suppressed under default thresholds")
	}
	_, significant = e.ThreatDelta(&intel.ThreatAssessment{Level: 1.0}, intel.ThreatAssessment{Level: 1.2})
	if !significant {
		t.Error("20% change must signal under default thresholds")
	}
}
