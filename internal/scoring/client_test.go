// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package scoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/varko/chainwatch/internal/intel"
)

func TestScoreCharacter(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(intel.ThreatAssessment{
			CharacterID: 93000001,
			Level:       0.72,
			Confidence:  0.9,
			Factors:     []string{"recent_kills"},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret"})

	assessment, err := c.ScoreCharacter(context.Background(), 93000001)
	if err != nil {
		t.Fatalf("ScoreCharacter failed: %v", err)
	}
	if gotPath != "/api/v1/characters/93000001/threat" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Expected bearer auth, got %q", gotAuth)
	}
	if assessment.Level != 0.72 {
		t.Errorf("Expected level 0.72, got %f", assessment.Level)
	}
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.VetCharacter(context.Background(), 1); err == nil {
		t.Fatal("Expected error for non-200 status")
	}
}

func TestClientRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Correlate(ctx, 1); err == nil {
		t.Fatal("Expected context deadline error")
	}
}

func TestClientTrailingSlashBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(intel.CharacterAnalysis{CharacterID: 7})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/"})
	analysis, err := c.AnalyzeCharacter(context.Background(), 7)
	if err != nil {
		t.Fatalf("AnalyzeCharacter failed: %v", err)
	}
	if gotPath != "/api/v1/characters/7/analysis" {
		t.Errorf("Trailing slash must not double up, got %s", gotPath)
	}
	if analysis.CharacterID != 7 {
		t.Errorf("Expected character 7, got %d", analysis.CharacterID)
	}
}
