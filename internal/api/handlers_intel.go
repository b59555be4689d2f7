// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/varko/chainwatch/internal/cache"
	"github.com/varko/chainwatch/internal/intel"
)

// validate is the shared request validator. Struct tags carry the rules;
// the instance is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

type threatRequest struct {
	CharacterID    int64    `json:"character_id" validate:"required,gt=0"`
	Level          float64  `json:"level" validate:"gte=0,lte=1"`
	Confidence     float64  `json:"confidence" validate:"gte=0,lte=1"`
	Factors        []string `json:"factors"`
	LastSeenSystem int64    `json:"last_seen_system"`
}

// IngestThreat accepts a threat assessment from an analysis producer and
// routes it through the coordinator. Whether subscribers hear about it is
// the coordinator's call; ingestion always succeeds if the body is valid.
func (h *Handler) IngestThreat(w http.ResponseWriter, r *http.Request) {
	var req threatRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.coord.UpdateThreat(req.CharacterID, intel.ThreatAssessment{
		CharacterID:    req.CharacterID,
		Level:          req.Level,
		Confidence:     req.Confidence,
		Factors:        req.Factors,
		LastSeenSystem: req.LastSeenSystem,
		UpdatedAt:      time.Now(),
	})
	respondJSON(w, http.StatusAccepted, map[string]int64{"character_id": req.CharacterID})
}

type activityRequest struct {
	SystemID      int64   `json:"system_id" validate:"required,gt=0"`
	CurrentLevel  float64 `json:"current_level" validate:"gte=0"`
	BaselineLevel float64 `json:"baseline_level" validate:"gte=0"`
	ActivityType  string  `json:"activity_type" validate:"omitempty,oneof=pvp pve mining travel"`
}

// IngestActivity accepts a system activity sample.
func (h *Handler) IngestActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.coord.UpdateActivity(req.SystemID, intel.ActivityData{
		SystemID:      req.SystemID,
		CurrentLevel:  req.CurrentLevel,
		BaselineLevel: req.BaselineLevel,
		ActivityType:  req.ActivityType,
		UpdatedAt:     time.Now(),
	})
	respondJSON(w, http.StatusAccepted, map[string]int64{"system_id": req.SystemID})
}

type chainRequest struct {
	ChainID string          `json:"chain_id" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// IngestChain accepts a chain topology update. Chain updates always fan
// out; topology changes have no significance threshold.
func (h *Handler) IngestChain(w http.ResponseWriter, r *http.Request) {
	var req chainRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.coord.UpdateChain(req.ChainID, intel.ChainUpdate{
		ChainID:   req.ChainID,
		Payload:   req.Payload,
		UpdatedAt: time.Now(),
	})
	respondJSON(w, http.StatusAccepted, map[string]string{"chain_id": req.ChainID})
}

type killmailRequest struct {
	KillmailID int64               `json:"killmail_id" validate:"required,gt=0"`
	SystemID   int64               `json:"system_id" validate:"required,gt=0"`
	Victim     intel.Participant   `json:"victim" validate:"required"`
	Attackers  []intel.Participant `json:"attackers"`
	Time       time.Time           `json:"time"`
}

// IngestKillmail accepts a killmail from the feed. Battle detection runs
// inline; participant threat refreshes are scheduled asynchronously.
func (h *Handler) IngestKillmail(w http.ResponseWriter, r *http.Request) {
	var req killmailRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if req.Time.IsZero() {
		req.Time = time.Now()
	}
	h.coord.ProcessKillmail(intel.Killmail{
		KillmailID: req.KillmailID,
		SystemID:   req.SystemID,
		Victim:     req.Victim,
		Attackers:  req.Attackers,
		Time:       req.Time,
	})
	respondJSON(w, http.StatusAccepted, map[string]int64{"killmail_id": req.KillmailID})
}

type vettingRequest struct {
	CharacterID int64    `json:"character_id" validate:"required,gt=0"`
	RiskScore   float64  `json:"risk_score" validate:"gte=0,lte=1"`
	Flags       []string `json:"flags"`
	Notify      bool     `json:"notify"`
	SkipCache   bool     `json:"skip_cache"`
}

// IngestVetting accepts a completed recruitment vetting result. The
// previous result, if still cached, feeds the significance comparison.
func (h *Handler) IngestVetting(w http.ResponseWriter, r *http.Request) {
	var req vettingRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	var previous *intel.VettingResult
	if cached, err := h.intelCache.Get(cache.DomainVetting, req.CharacterID); err == nil {
		if prev, ok := cached.(intel.VettingResult); ok {
			previous = &prev
		}
	}

	h.coord.UpdateVetting(req.CharacterID, intel.VettingResult{
		CharacterID: req.CharacterID,
		RiskScore:   req.RiskScore,
		Flags:       req.Flags,
		CompletedAt: time.Now(),
	}, previous, intel.VettingOpts{
		Notify:    req.Notify,
		SkipCache: req.SkipCache,
	})
	respondJSON(w, http.StatusAccepted, map[string]int64{"character_id": req.CharacterID})
}

// decodeAndValidate decodes the body into dst and validates it, writing
// the error response itself. Reports whether the handler should proceed.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r, dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			respondError(w, http.StatusUnprocessableEntity, "validation_failed", verrs[0].Error())
			return false
		}
		respondError(w, http.StatusUnprocessableEntity, "validation_failed", "request failed validation")
		return false
	}
	return true
}
