// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package scoring is the HTTP client for the external analysis engine,
// the service that crunches ESI employment history and killboard data
// into threat assessments, character analyses, vetting results, and
// correlations. Chainwatch treats it as opaque: it caches and routes the
// results but never computes them itself.
package scoring

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/varko/chainwatch/internal/intel"
)

// Config configures the analysis engine client.
type Config struct {
	// BaseURL is the engine's root URL, e.g. "http://analysis:9010".
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds a single request. Defaults to 10s.
	Timeout time.Duration
}

// Client calls the analysis engine. Safe for concurrent use; it
// implements coordinator.ThreatScorer and provides the compute functions
// behind each cache domain.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// New creates a client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// ScoreCharacter fetches a fresh threat assessment for a character.
func (c *Client) ScoreCharacter(ctx context.Context, characterID int64) (intel.ThreatAssessment, error) {
	var out intel.ThreatAssessment
	err := c.get(ctx, fmt.Sprintf("/api/v1/characters/%d/threat", characterID), &out)
	return out, err
}

// AnalyzeCharacter fetches the full derived profile for a character.
func (c *Client) AnalyzeCharacter(ctx context.Context, characterID int64) (intel.CharacterAnalysis, error) {
	var out intel.CharacterAnalysis
	err := c.get(ctx, fmt.Sprintf("/api/v1/characters/%d/analysis", characterID), &out)
	return out, err
}

// VetCharacter runs the recruitment vetting pipeline for a character.
func (c *Client) VetCharacter(ctx context.Context, characterID int64) (intel.VettingResult, error) {
	var out intel.VettingResult
	err := c.get(ctx, fmt.Sprintf("/api/v1/characters/%d/vetting", characterID), &out)
	return out, err
}

// Correlate fetches correlation data for an entity.
func (c *Client) Correlate(ctx context.Context, entityID int64) (intel.CorrelationResult, error) {
	var out intel.CorrelationResult
	err := c.get(ctx, fmt.Sprintf("/api/v1/entities/%d/correlation", entityID), &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building analysis request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("analysis engine request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analysis engine returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding analysis response: %w", err)
	}
	return nil
}
