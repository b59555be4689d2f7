// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package threshold decides whether an intelligence update differs enough
// from the previous state to be worth broadcasting.
//
// All functions are pure: they read the previous and new values and return
// a verdict. State ownership and event dispatch live in
// internal/coordinator.
package threshold

import (
	"math"

	"github.com/varko/chainwatch/internal/intel"
)

// Config holds the significance thresholds. All comparisons are inclusive
// (>=) so a value exactly at the threshold signals.
type Config struct {
	// ThreatChange is the minimum relative threat-level delta.
	ThreatChange float64

	// ActivitySpikeRatio is the minimum current/baseline ratio.
	ActivitySpikeRatio float64

	// BattleParticipants is the minimum total participants on a killmail.
	BattleParticipants int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ThreatChange:       0.15,
		ActivitySpikeRatio: 3.0,
		BattleParticipants: 5,
	}
}

// Evaluator applies the configured thresholds. Stateless and safe for
// concurrent use.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an evaluator, filling zero config values with
// defaults.
func NewEvaluator(cfg Config) *Evaluator {
	def := DefaultConfig()
	if cfg.ThreatChange <= 0 {
		cfg.ThreatChange = def.ThreatChange
	}
	if cfg.ActivitySpikeRatio <= 0 {
		cfg.ActivitySpikeRatio = def.ActivitySpikeRatio
	}
	if cfg.BattleParticipants <= 0 {
		cfg.BattleParticipants = def.BattleParticipants
	}
	return &Evaluator{cfg: cfg}
}

// ThreatDelta computes the relative threat-level change and whether it is
// significant.
//
// With no previous assessment the delta is 1.0: a first observation always
// signals. A previous level of zero is treated the same way, since a
// relative delta against zero is undefined and any movement off zero is
// operationally a first observation.
func (e *Evaluator) ThreatDelta(prev *intel.ThreatAssessment, next intel.ThreatAssessment) (delta float64, significant bool) {
	if prev == nil || prev.Level == 0 {
		return 1.0, true
	}
	delta = math.Abs(next.Level-prev.Level) / prev.Level
	return delta, delta >= e.cfg.ThreatChange
}

// EffectiveBaseline is the baseline a reading is compared against: the
// previously stored baseline, or the previously stored level when that
// sample carried no baseline of its own. Zero when no comparison is
// possible.
func EffectiveBaseline(prev *intel.ActivityData) float64 {
	if prev == nil {
		return 0
	}
	if prev.BaselineLevel > 0 {
		return prev.BaselineLevel
	}
	return prev.CurrentLevel
}

// ActivitySpike reports whether the new reading spikes against the
// effective baseline of the previous record.
//
// A first reading is stored without evaluation, as is any reading whose
// predecessor carries neither a baseline nor a level.
func (e *Evaluator) ActivitySpike(prev *intel.ActivityData, next intel.ActivityData) (ratio float64, spike bool) {
	baseline := EffectiveBaseline(prev)
	if baseline <= 0 {
		return 0, false
	}
	ratio = next.CurrentLevel / baseline
	return ratio, ratio >= e.cfg.ActivitySpikeRatio
}

// DetectBattle reports whether the killmail constitutes a battle: total
// participants (attackers plus victim) at or above the threshold. The
// returned record carries the deterministic battle id.
func (e *Evaluator) DetectBattle(km intel.Killmail) (intel.BattleRecord, bool) {
	count := km.ParticipantCount()
	if count < e.cfg.BattleParticipants {
		return intel.BattleRecord{}, false
	}
	return intel.BattleRecord{
		BattleID:         intel.BattleID(km.SystemID, km.Time),
		SystemID:         km.SystemID,
		ParticipantCount: count,
		DetectedAt:       km.Time,
	}, true
}

// VettingChange reports whether a vetting result differs significantly from
// the previous run: the relative risk-score delta crosses the threat-change
// threshold, or any new flag appeared. A first vetting always signals.
func (e *Evaluator) VettingChange(prev *intel.VettingResult, next intel.VettingResult) (significant bool, newFlags []string) {
	newFlags = next.NewFlags(prev)
	if prev == nil || prev.RiskScore == 0 {
		return true, newFlags
	}
	if len(newFlags) > 0 {
		return true, newFlags
	}
	delta := math.Abs(next.RiskScore-prev.RiskScore) / prev.RiskScore
	return delta >= e.cfg.ThreatChange, newFlags
}
