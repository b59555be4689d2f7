// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package api

import (
	"net/http"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/varko/chainwatch/internal/cache"
	"github.com/varko/chainwatch/internal/coordinator"
	"github.com/varko/chainwatch/internal/intel"
	"github.com/varko/chainwatch/internal/logging"
	"github.com/varko/chainwatch/internal/websocket"
)

// Handler serves the introspection, ingestion, and WebSocket endpoints.
type Handler struct {
	coord            *coordinator.Coordinator
	intelCache       *cache.IntelCache
	hub              *websocket.Hub
	analyzer         CharacterAnalyzer
	batchConcurrency int
}

// NewHandler creates a handler over the coordinator, cache, and hub.
// analyzer may be nil; the bulk analysis endpoint then reports the engine
// as unavailable.
func NewHandler(coord *coordinator.Coordinator, intelCache *cache.IntelCache, hub *websocket.Hub, analyzer CharacterAnalyzer, batchConcurrency int) *Handler {
	if batchConcurrency < 1 {
		batchConcurrency = 8
	}
	return &Handler{
		coord:            coord,
		intelCache:       intelCache,
		hub:              hub,
		analyzer:         analyzer,
		batchConcurrency: batchConcurrency,
	}
}

// Healthz reports process liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"state": "alive"})
}

// Status returns the coordinator's aggregate intelligence status: counts of
// tracked entities, recent battles, subscriptions, cache counters, uptime.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coord.Status())
}

// CacheStats returns the cache counter snapshot on its own, for dashboards
// that only care about hit ratios.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.intelCache.Stats())
}

// upgrader accepts cross-origin connections: the endpoint carries no
// credentials and emits only intelligence events the caller subscribed to.
var upgrader = gws.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// WebSocket upgrades the connection and registers it as a subscriber
// endpoint. Initial scopes come from repeated ?scope= query parameters
// ("global", "character:<id>", "system:<id>", "chain:<id>"); without any,
// the connection starts with the global scope. Further scopes can be added
// and removed with subscribe/unsubscribe frames.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	scopes, err := parseScopeParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_scope", err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, h.coord)
	client.Start()

	for _, scope := range scopes {
		if err := client.AddScope(scope); err != nil {
			logging.Warn().Err(err).Str("scope", scope.Key()).Msg("initial scope subscription failed")
		}
	}
}

func parseScopeParams(r *http.Request) ([]intel.Scope, error) {
	raw := r.URL.Query()["scope"]
	if len(raw) == 0 {
		return []intel.Scope{intel.GlobalScope()}, nil
	}

	scopes := make([]intel.Scope, 0, len(raw))
	for _, s := range raw {
		scope, err := intel.ParseScope(s)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}
