// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package metrics provides Prometheus instrumentation for Chainwatch:
// cache efficiency, compute latency, event dispatch volumes, subscriber
// lifecycle, and background loop health. Collectors are registered with the
// default registry via promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainwatch_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainwatch_cache_misses_total",
			Help: "Total number of cache misses (absent or expired)",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainwatch_cache_evictions_total",
			Help: "Total number of expired entries evicted",
		},
	)

	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainwatch_cache_entries",
			Help: "Current number of cache entries",
		},
	)

	CacheFlightJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainwatch_cache_flight_joins_total",
			Help: "Total number of callers that joined an in-flight computation instead of computing",
		},
	)

	CacheComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainwatch_cache_compute_duration_seconds",
			Help:    "Duration of compute-on-miss callbacks in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}, // analysis computes can take tens of seconds
		},
	)

	// Warmer metrics
	WarmingPasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainwatch_warming_passes_total",
			Help: "Total number of cache warming passes",
		},
	)

	WarmingKeys = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainwatch_warming_keys_total",
			Help: "Total number of keys processed by the warmer",
		},
		[]string{"outcome"}, // "warmed", "cached", "failed", "skipped"
	)

	// Coordinator metrics
	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainwatch_events_dispatched_total",
			Help: "Total number of events dispatched to subscribers",
		},
		[]string{"type"},
	)

	EventsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainwatch_events_suppressed_total",
			Help: "Total number of updates below the significance threshold",
		},
		[]string{"type"},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainwatch_delivery_failures_total",
			Help: "Total number of failed event deliveries (triggers auto-unsubscribe)",
		},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainwatch_active_subscriptions",
			Help: "Current number of live subscriptions",
		},
	)

	RefreshQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainwatch_refresh_queue_depth",
			Help: "Pending participant threat-refresh tasks",
		},
	)

	RefreshDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainwatch_refresh_dropped_total",
			Help: "Participant refresh tasks dropped because the queue was full",
		},
	)

	SweepRemovals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainwatch_sweep_removals_total",
			Help: "Battle records removed by the retention sweep",
		},
	)

	// WebSocket metrics
	WSClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainwatch_ws_clients",
			Help: "Current number of connected WebSocket clients",
		},
	)
)
