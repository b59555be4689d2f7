// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package config loads and validates Chainwatch configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an optional
// YAML config file, then environment variables. Later layers override earlier
// ones.
package config

import "time"

// Config is the root configuration for the Chainwatch service.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Cache       CacheConfig       `koanf:"cache"`
	Warmer      WarmerConfig      `koanf:"warmer"`
	Coordinator CoordinatorConfig `koanf:"coordinator"`
	Scoring     ScoringConfig     `koanf:"scoring"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// CacheConfig configures the intelligence cache store.
type CacheConfig struct {
	// Per-domain TTLs for derived analyses.
	CharacterAnalysisTTL time.Duration `koanf:"character_analysis_ttl" validate:"gt=0"`
	VettingTTL           time.Duration `koanf:"vetting_ttl" validate:"gt=0"`
	CorrelationTTL       time.Duration `koanf:"correlation_ttl" validate:"gt=0"`

	// ComputeTimeout bounds a single compute-on-miss invocation.
	ComputeTimeout time.Duration `koanf:"compute_timeout" validate:"gt=0"`

	// BatchConcurrency bounds concurrent computations in batch lookups.
	BatchConcurrency int `koanf:"batch_concurrency" validate:"gte=1,lte=64"`

	// JanitorInterval is how often expired entries are swept out eagerly.
	JanitorInterval time.Duration `koanf:"janitor_interval" validate:"gt=0"`
}

// WarmerConfig configures popularity-driven cache pre-warming.
type WarmerConfig struct {
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// PopularityThreshold is the minimum access count for a key to be
	// considered a warming candidate.
	PopularityThreshold int64 `koanf:"popularity_threshold" validate:"gte=1"`

	// MaxConcurrent caps simultaneous warming computations.
	MaxConcurrent int `koanf:"max_concurrent" validate:"gte=1,lte=32"`

	// RatePerSecond paces warming computations against upstream engines.
	// Zero disables pacing.
	RatePerSecond float64 `koanf:"rate_per_second" validate:"gte=0"`
}

// CoordinatorConfig configures the event coordinator thresholds and loops.
type CoordinatorConfig struct {
	// ThreatChangeThreshold is the relative threat-level delta at or above
	// which a threat update is broadcast.
	ThreatChangeThreshold float64 `koanf:"threat_change_threshold" validate:"gt=0,lte=1"`

	// ActivitySpikeRatio is the current/baseline ratio at or above which a
	// system activity reading is a spike.
	ActivitySpikeRatio float64 `koanf:"activity_spike_ratio" validate:"gt=1"`

	// BattleParticipantThreshold is the minimum total participants on a
	// killmail for it to count as a battle.
	BattleParticipantThreshold int `koanf:"battle_participant_threshold" validate:"gte=2"`

	// RetentionWindow is how long battle records are kept before Sweep
	// drops them.
	RetentionWindow time.Duration `koanf:"retention_window" validate:"gt=0"`

	// SweepInterval is how often the retention sweep runs.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`

	// StatusTickInterval is how often a status event is broadcast to
	// global subscribers.
	StatusTickInterval time.Duration `koanf:"status_tick_interval" validate:"gt=0"`

	// RefreshWorkers is the size of the bounded pool that re-scores
	// killmail participants.
	RefreshWorkers int `koanf:"refresh_workers" validate:"gte=1,lte=64"`

	// RefreshQueueSize bounds pending participant refresh tasks; excess
	// tasks under killmail bursts are dropped with a log line.
	RefreshQueueSize int `koanf:"refresh_queue_size" validate:"gte=1"`
}

// ScoringConfig configures the external analysis engine client. An empty
// URL disables killmail-driven threat refresh and cache warming computes.
type ScoringConfig struct {
	URL     string        `koanf:"url" validate:"omitempty,url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8470,
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			CharacterAnalysisTTL: 12 * time.Hour,
			VettingTTL:           24 * time.Hour,
			CorrelationTTL:       4 * time.Hour,
			ComputeTimeout:       15 * time.Second,
			BatchConcurrency:     8,
			JanitorInterval:      5 * time.Minute,
		},
		Warmer: WarmerConfig{
			Interval:            30 * time.Minute,
			PopularityThreshold: 5,
			MaxConcurrent:       4,
			RatePerSecond:       2,
		},
		Coordinator: CoordinatorConfig{
			ThreatChangeThreshold:      0.15,
			ActivitySpikeRatio:         3.0,
			BattleParticipantThreshold: 5,
			RetentionWindow:            1 * time.Hour,
			SweepInterval:              5 * time.Minute,
			StatusTickInterval:         30 * time.Second,
			RefreshWorkers:             8,
			RefreshQueueSize:           1024,
		},
		Scoring: ScoringConfig{
			URL:     "",
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
