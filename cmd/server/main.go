// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package main is the entry point for the Chainwatch server.
//
// Chainwatch is the intelligence cache and real-time event coordination
// layer for wormhole corporations: it caches expensive character and
// system analyses, decides which intelligence updates are significant
// enough to broadcast, and fans them out to scope-filtered WebSocket
// subscribers.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading via Koanf v2 (defaults, YAML, env)
//  2. Cache: sharded TTL store with access tracking and compute-on-miss
//  3. Scoring client: HTTP client for the external analysis engine
//  4. Coordinator: intelligence state, thresholds, and event dispatch
//  5. Warmer: popularity-driven cache pre-warming
//  6. WebSocket hub: live subscriber connections
//  7. HTTP server: ingestion, introspection, /ws, /metrics
//
// Everything long-running sits under a suture supervision tree; a
// crashing loop restarts with backoff without touching its siblings.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (SCORING_URL, THREAT_CHANGE_THRESHOLD, ...)
//   - Config file (/etc/chainwatch/config.yaml or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// listener drains in-flight requests, WebSocket clients receive close
// frames, and background loops stop at their next cancellation point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/varko/chainwatch/internal/api"
	"github.com/varko/chainwatch/internal/cache"
	"github.com/varko/chainwatch/internal/config"
	"github.com/varko/chainwatch/internal/coordinator"
	"github.com/varko/chainwatch/internal/logging"
	"github.com/varko/chainwatch/internal/scoring"
	"github.com/varko/chainwatch/internal/supervisor"
	"github.com/varko/chainwatch/internal/supervisor/services"
	"github.com/varko/chainwatch/internal/threshold"
	"github.com/varko/chainwatch/internal/warmer"
	"github.com/varko/chainwatch/internal/websocket"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "chainwatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", Version).Msg("chainwatch starting")

	// Cache plane: tracker feeds both the store's access counts and the
	// warmer's popularity scan.
	tracker := cache.NewAccessTracker()
	store := cache.NewStore(tracker)
	ttls := cache.DomainTTLs{
		CharacterAnalysis: cfg.Cache.CharacterAnalysisTTL,
		Vetting:           cfg.Cache.VettingTTL,
		Correlation:       cfg.Cache.CorrelationTTL,
	}
	intelCache := cache.NewIntelCache(store, ttls, cfg.Cache.ComputeTimeout)

	// Scoring client is optional; without it killmails still produce
	// battles, but participant refresh and warming computes are off.
	var scorer coordinator.ThreatScorer
	var analysis *scoring.Client
	if cfg.Scoring.URL != "" {
		analysis = scoring.New(scoring.Config{
			BaseURL: cfg.Scoring.URL,
			APIKey:  cfg.Scoring.APIKey,
			Timeout: cfg.Scoring.Timeout,
		})
		scorer = analysis
		logging.Info().Str("url", cfg.Scoring.URL).Msg("analysis engine configured")
	} else {
		logging.Warn().Msg("no analysis engine configured, threat refresh and warming disabled")
	}

	coord := coordinator.New(coordinator.Config{
		Thresholds: threshold.Config{
			ThreatChange:       cfg.Coordinator.ThreatChangeThreshold,
			ActivitySpikeRatio: cfg.Coordinator.ActivitySpikeRatio,
			BattleParticipants: cfg.Coordinator.BattleParticipantThreshold,
		},
		RetentionWindow:    cfg.Coordinator.RetentionWindow,
		SweepInterval:      cfg.Coordinator.SweepInterval,
		StatusTickInterval: cfg.Coordinator.StatusTickInterval,
		RefreshWorkers:     cfg.Coordinator.RefreshWorkers,
		RefreshQueueSize:   cfg.Coordinator.RefreshQueueSize,
	}, intelCache, scorer)

	warm := warmer.New(warmer.Config{
		Interval:            cfg.Warmer.Interval,
		PopularityThreshold: cfg.Warmer.PopularityThreshold,
		MaxConcurrent:       cfg.Warmer.MaxConcurrent,
		RatePerSecond:       cfg.Warmer.RatePerSecond,
	}, store, tracker, ttls, cfg.Cache.ComputeTimeout)

	if analysis != nil {
		warm.Register(cache.DomainCharacterAnalysis, func(ctx context.Context, entityID int64) (interface{}, error) {
			return analysis.AnalyzeCharacter(ctx, entityID)
		})
		warm.Register(cache.DomainVetting, func(ctx context.Context, entityID int64) (interface{}, error) {
			return analysis.VetCharacter(ctx, entityID)
		})
		warm.Register(cache.DomainCorrelation, func(ctx context.Context, entityID int64) (interface{}, error) {
			return analysis.Correlate(ctx, entityID)
		})
	}

	hub := websocket.NewHub()

	// A typed nil must not become a non-nil interface.
	var analyzer api.CharacterAnalyzer
	if analysis != nil {
		analyzer = analysis
	}
	handler := api.NewHandler(coord, intelCache, hub, analyzer, cfg.Cache.BatchConcurrency)
	server := api.NewServer(cfg.Server, api.NewRouter(handler))

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("building supervisor tree: %w", err)
	}

	tree.AddCacheService(services.NewRunner("cache-janitor", func(ctx context.Context) error {
		return store.RunJanitor(ctx, cfg.Cache.JanitorInterval)
	}))
	tree.AddCacheService(services.NewRunner("cache-warmer", warm.Run))
	tree.AddCoordinationService(services.NewRunner("battle-sweeper", coord.RunSweeper))
	tree.AddCoordinationService(services.NewRunner("status-ticker", coord.RunStatusTicker))
	tree.AddCoordinationService(services.NewRunner("threat-refresh-pool", coord.RunRefreshPool))
	tree.AddCoordinationService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPService(server))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop within timeout")
		}
	}

	logging.Info().Msg("chainwatch stopped")
	return err
}
