// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/varko/chainwatch/internal/cache"
	"github.com/varko/chainwatch/internal/intel"
)

// maxBatchIDs caps one bulk analysis request.
const maxBatchIDs = 100

// CharacterAnalyzer computes a character analysis through the external
// analysis engine.
type CharacterAnalyzer interface {
	AnalyzeCharacter(ctx context.Context, characterID int64) (intel.CharacterAnalysis, error)
}

// characterAnalysisResult carries one character's outcome in a bulk lookup.
type characterAnalysisResult struct {
	Analysis interface{} `json:"analysis,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// CharacterAnalysisBatch resolves analyses for several characters at once,
// typically a fleet scan. Repeated ?id= parameters name the characters.
// Lookups go through the cache with bounded compute concurrency; cached
// entries are served without touching the engine, and one character's
// failure does not fail the request.
func (h *Handler) CharacterAnalysisBatch(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil {
		respondError(w, http.StatusServiceUnavailable, "analysis_unavailable", "no analysis engine configured")
		return
	}

	raw := r.URL.Query()["id"]
	if len(raw) == 0 {
		respondError(w, http.StatusBadRequest, "missing_ids", "at least one id parameter is required")
		return
	}
	if len(raw) > maxBatchIDs {
		respondError(w, http.StatusBadRequest, "too_many_ids", fmt.Sprintf("at most %d ids per request", maxBatchIDs))
		return
	}

	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_id", fmt.Sprintf("%q is not a character id", s))
			return
		}
		ids = append(ids, id)
	}

	results, err := h.intelCache.GetOrComputeBatch(r.Context(), cache.DomainCharacterAnalysis, ids, h.batchConcurrency,
		func(ctx context.Context, entityID int64) (interface{}, error) {
			return h.analyzer.AnalyzeCharacter(ctx, entityID)
		})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}

	out := make(map[string]characterAnalysisResult, len(results))
	for id, res := range results {
		key := strconv.FormatInt(id, 10)
		if res.Err != nil {
			out[key] = characterAnalysisResult{Error: res.Err.Error()}
			continue
		}
		out[key] = characterAnalysisResult{Analysis: res.Value}
	}
	respondJSON(w, http.StatusOK, out)
}
