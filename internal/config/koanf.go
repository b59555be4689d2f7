// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/chainwatch/config.yaml",
	"/etc/chainwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file (if found)
//  3. Environment variables: override any setting
//
// The returned Config has passed Validate.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches the env override and the default paths; returns the
// first existing file, or empty string.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are skipped so random environment variables cannot
// pollute the configuration.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		"HTTP_HOST":    "server.host",
		"HTTP_PORT":    "server.port",
		"HTTP_TIMEOUT": "server.timeout",

		"CACHE_CHARACTER_ANALYSIS_TTL": "cache.character_analysis_ttl",
		"CACHE_VETTING_TTL":            "cache.vetting_ttl",
		"CACHE_CORRELATION_TTL":        "cache.correlation_ttl",
		"CACHE_COMPUTE_TIMEOUT":        "cache.compute_timeout",
		"CACHE_BATCH_CONCURRENCY":      "cache.batch_concurrency",
		"CACHE_JANITOR_INTERVAL":       "cache.janitor_interval",

		"WARM_INTERVAL":        "warmer.interval",
		"WARM_POPULARITY_MIN":  "warmer.popularity_threshold",
		"WARM_MAX_CONCURRENT":  "warmer.max_concurrent",
		"WARM_RATE_PER_SECOND": "warmer.rate_per_second",

		"THREAT_CHANGE_THRESHOLD":      "coordinator.threat_change_threshold",
		"ACTIVITY_SPIKE_RATIO":         "coordinator.activity_spike_ratio",
		"BATTLE_PARTICIPANT_THRESHOLD": "coordinator.battle_participant_threshold",
		"BATTLE_RETENTION_WINDOW":      "coordinator.retention_window",
		"SWEEP_INTERVAL":               "coordinator.sweep_interval",
		"STATUS_TICK_INTERVAL":         "coordinator.status_tick_interval",
		"REFRESH_WORKERS":              "coordinator.refresh_workers",
		"REFRESH_QUEUE_SIZE":           "coordinator.refresh_queue_size",

		"SCORING_URL":     "scoring.url",
		"SCORING_API_KEY": "scoring.api_key",
		"SCORING_TIMEOUT": "scoring.timeout",

		"LOG_LEVEL":  "logging.level",
		"LOG_FORMAT": "logging.format",
		"LOG_CALLER": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
