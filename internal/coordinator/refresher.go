// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/varko/chainwatch/internal/intel"
	"github.com/varko/chainwatch/internal/logging"
	"github.com/varko/chainwatch/internal/metrics"
)

// ThreatScorer is the external threat-scoring collaborator. Implementations
// call the analysis engines (ESI history, killboard statistics); they are
// opaque to the coordinator.
type ThreatScorer interface {
	ScoreCharacter(ctx context.Context, characterID int64) (intel.ThreatAssessment, error)
}

// refresher is the bounded worker pool that re-scores killmail
// participants. Tasks are enqueued non-blocking; under killmail bursts
// excess tasks are dropped rather than growing goroutines without bound.
// Results feed back into the coordinator as ordinary UpdateThreat calls.
//
// The scorer sits behind a circuit breaker: when the upstream engine is
// failing, refresh attempts short-circuit instead of piling up timeouts.
type refresher struct {
	scorer  ThreatScorer
	breaker *gobreaker.CircuitBreaker[intel.ThreatAssessment]
	queue   chan int64
	workers int
	apply   func(characterID int64, assessment intel.ThreatAssessment)
}

func newRefresher(scorer ThreatScorer, workers, queueSize int, apply func(int64, intel.ThreatAssessment)) *refresher {
	breaker := gobreaker.NewCircuitBreaker[intel.ThreatAssessment](gobreaker.Settings{
		Name:    "threat-scorer",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && counts.TotalFailures*2 > counts.Requests
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("threat scorer circuit breaker state change")
		},
	})

	return &refresher{
		scorer:  scorer,
		breaker: breaker,
		queue:   make(chan int64, queueSize),
		workers: workers,
		apply:   apply,
	}
}

// enqueue schedules a character for re-scoring. Non-blocking: reports
// false and counts a drop when the queue is full.
func (r *refresher) enqueue(characterID int64) bool {
	select {
	case r.queue <- characterID:
		metrics.RefreshQueueDepth.Set(float64(len(r.queue)))
		return true
	default:
		metrics.RefreshDropped.Inc()
		logging.Warn().Int64("character_id", characterID).Msg("refresh queue full, dropping task")
		return false
	}
}

// Run starts the worker pool and blocks until ctx is canceled. Each task's
// failure is caught and logged; it never affects sibling tasks or the
// coordinator's liveness.
func (r *refresher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx)
		}()
	}
	wg.Wait()

	logging.Info().Str("component", "threat-refresher").Msg("refresh pool stopped")
	return ctx.Err()
}

func (r *refresher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case characterID := <-r.queue:
			metrics.RefreshQueueDepth.Set(float64(len(r.queue)))
			r.refresh(ctx, characterID)
		}
	}
}

func (r *refresher) refresh(ctx context.Context, characterID int64) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error().
				Int64("character_id", characterID).
				Interface("panic", rec).
				Msg("threat refresh panicked")
		}
	}()

	assessment, err := r.breaker.Execute(func() (intel.ThreatAssessment, error) {
		return r.scorer.ScoreCharacter(ctx, characterID)
	})
	if err != nil {
		logging.Warn().Err(err).Int64("character_id", characterID).Msg("threat refresh failed")
		return
	}

	r.apply(characterID, assessment)
}
