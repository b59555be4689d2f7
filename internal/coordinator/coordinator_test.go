// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/varko/chainwatch/internal/cache"
	"github.com/varko/chainwatch/internal/intel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeEndpoint collects delivered events and can be flipped dead or made
// to fail deliveries.
type fakeEndpoint struct {
	mu         sync.Mutex
	events     []intel.Event
	alive      bool
	deliverErr error
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{alive: true}
}

func (f *fakeEndpoint) Deliver(event intel.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deliverErr != nil {
		return f.deliverErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEndpoint) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *fakeEndpoint) kill() {
	f.mu.Lock()
	f.alive = false
	f.mu.Unlock()
}

func (f *fakeEndpoint) received() []intel.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]intel.Event, len(f.events))
	copy(out, f.events)
	return out
}

func newTestCoordinator() *Coordinator {
	return New(DefaultConfig(), nil, nil)
}

func TestUpdateThreatFirstObservationSignals(t *testing.T) {
	c := newTestCoordinator()
	ep := newFakeEndpoint()
	if _, err := c.Subscribe(intel.CharacterScope(93000001), ep); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	c.UpdateThreat(93000001, intel.ThreatAssessment{Level: 0.05})

	events := ep.received()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	payload, ok := events[0].Payload.(intel.ThreatEvent)
	if !ok {
		t.Fatalf("Unexpected payload type %T", events[0].Payload)
	}
	if payload.PrevLevel != nil {
		t.Errorf("First observation must carry nil PrevLevel, got %v", *payload.PrevLevel)
	}
	if payload.NewLevel != 0.05 {
		t.Errorf("Expected NewLevel 0.05, got %f", payload.NewLevel)
	}
}

func TestUpdateThreatSubThresholdSuppressed(t *testing.T) {
	c := newTestCoordinator()
	ep := newFakeEndpoint()
	_, _ = c.Subscribe(intel.CharacterScope(93000001), ep)

	c.UpdateThreat(93000001, intel.ThreatAssessment{Level: 0.85})
	c.UpdateThreat(93000001, intel.ThreatAssessment{Level: 0.90})

	// First observation signals; the ~6% shift does not.
	if got := len(ep.received()); got != 1 {
		t.Errorf("Expected 1 event, got %d", got)
	}

	// The suppressed update is still visible to reads.
	stored, ok := c.ThreatFor(93000001)
	if !ok {
		t.Fatal("Expected stored assessment")
	}
	if stored.Level != 0.90 {
		t.Errorf("Expected stored level 0.90, got %f", stored.Level)
	}
}

func TestUpdateThreatSignificantChangeCarriesPrevLevel(t *testing.T) {
	c := newTestCoordinator()
	ep := newFakeEndpoint()
	_, _ = c.Subscribe(intel.GlobalScope(), ep)

	c.UpdateThreat(93000001, intel.ThreatAssessment{Level: 0.5})
	c.UpdateThreat(93000001, intel.ThreatAssessment{Level: 0.9})

	events := ep.received()
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	payload := events[1].Payload.(intel.ThreatEvent)
	if payload.PrevLevel == nil || *payload.PrevLevel != 0.5 {
		t.Errorf("Expected PrevLevel 0.5, got %v", payload.PrevLevel)
	}
}

func TestUpdateThreatScopeFiltering(t *testing.T) {
	c := newTestCoordinator()
	matching := newFakeEndpoint()
	other := newFakeEndpoint()
	global := newFakeEndpoint()

	_, _ = c.Subscribe(intel.CharacterScope(93000001), matching)
	_, _ = c.Subscribe(intel.CharacterScope(93000002), other)
	_, _ = c.Subscribe(intel.GlobalScope(), global)

	c.UpdateThreat(93000001, intel.ThreatAssessment{Level: 0.7})

	if got := len(matching.received()); got != 1 {
		t.Errorf("Expected character subscriber to receive 1 event, got %d", got)
	}
	if got := len(other.received()); got != 0 {
		t.Errorf("Expected unrelated subscriber to receive nothing, got %d", got)
	}
	if got := len(global.received()); got != 1 {
		t.Errorf("Expected global subscriber to receive 1 event, got %d", got)
	}
}

func TestUpdateActivitySpike(t *testing.T) {
	c := newTestCoordinator()
	ep := newFakeEndpoint()
	_, _ = c.Subscribe(intel.SystemScope(31000001), ep)

	// First reading establishes the baseline; never a spike.
	c.UpdateActivity(31000001, intel.ActivityData{CurrentLevel: 10, BaselineLevel: 10})
	if got := len(ep.received()); got != 0 {
		t.Fatalf("First reading must not spike, got %d events", got)
	}

	// 2.9x the stored baseline: below the ratio.
	c.UpdateActivity(31000001, intel.ActivityData{CurrentLevel: 29, BaselineLevel: 12})
	if got := len(ep.received()); got != 0 {
		t.Fatalf("2.9x must not spike, got %d events", got)
	}

	// 3.0x the previously stored baseline (12): spikes.
	c.UpdateActivity(31000001, intel.ActivityData{CurrentLevel: 36, BaselineLevel: 14, ActivityType: intel.ActivityTypePVP})
	events := ep.received()
	if len(events) != 1 {
		t.Fatalf("Expected spike event, got %d", len(events))
	}
	payload := events[0].Payload.(intel.ActivitySpikeEvent)
	if payload.Ratio != 3.0 {
		t.Errorf("Expected ratio 3.0, got %f", payload.Ratio)
	}
	if payload.BaselineLevel != 12 {
		t.Errorf("Spike must be evaluated against the previous baseline 12, got %f", payload.BaselineLevel)
	}
}

func TestUpdateActivityBaselineFallback(t *testing.T) {
	c := newTestCoordinator()
	ep := newFakeEndpoint()
	_, _ = c.Subscribe(intel.SystemScope(31000002), ep)

	// Producer never supplies a baseline; the stored level stands in.
	c.UpdateActivity(31000002, intel.ActivityData{CurrentLevel: 10})
	if got := len(ep.received()); got != 0 {
		t.Fatalf("First reading must not spike, got %d events", got)
	}

	c.UpdateActivity(31000002, intel.ActivityData{CurrentLevel: 30})
	events := ep.received()
	if len(events) != 1 {
		t.Fatalf("Expected spike against the stored level, got %d events", len(events))
	}
	payload := events[0].Payload.(intel.ActivitySpikeEvent)
	if payload.BaselineLevel != 10 {
		t.Errorf("Expected fallback baseline 10, got %f", payload.BaselineLevel)
	}
	if payload.Ratio != 3.0 {
		t.Errorf("Expected ratio 3.0, got %f", payload.Ratio)
	}
}

func TestUpdateChainAlwaysDispatches(t *testing.T) {
	c := newTestCoordinator()
	ep := newFakeEndpoint()
	_, _ = c.Subscribe(intel.ChainScope("home-chain"), ep)

	c.UpdateChain("home-chain", intel.ChainUpdate{})
	c.UpdateChain("home-chain", intel.ChainUpdate{})

	if got := len(ep.received()); got != 2 {
		t.Errorf("Chain updates have no threshold, expected 2 events, got %d", got)
	}

	if _, ok := c.ChainFor("home-chain"); !ok {
		t.Error("Expected chain snapshot to be stored")
	}
}

func TestProcessKillmailBattleDetection(t *testing.T) {
	c := newTestCoordinator()
	system := newFakeEndpoint()
	global := newFakeEndpoint()
	_, _ = c.Subscribe(intel.SystemScope(31000042), system)
	_, _ = c.Subscribe(intel.GlobalScope(), global)

	// 4 participants: no battle.
	c.ProcessKillmail(intel.Killmail{
		KillmailID: 1,
		SystemID:   31000042,
		Attackers:  make([]intel.Participant, 3),
		Time:       time.Now(),
	})
	if got := len(system.received()); got != 0 {
		t.Fatalf("4 participants must not produce a battle, got %d events", got)
	}

	// 5 participants: battle.
	c.ProcessKillmail(intel.Killmail{
		KillmailID: 2,
		SystemID:   31000042,
		Attackers:  make([]intel.Participant, 4),
		Time:       time.Now(),
	})
	if got := len(system.received()); got != 1 {
		t.Fatalf("Expected battle event for system subscriber, got %d", got)
	}
	if got := len(global.received()); got != 1 {
		t.Fatalf("Expected battle event for global subscriber, got %d", got)
	}

	if battles := c.RecentBattles(); len(battles) != 1 {
		t.Errorf("Expected 1 recorded battle, got %d", len(battles))
	}
}

func TestProcessKillmailDeduplicatesBattles(t *testing.T) {
	c := newTestCoordinator()
	ep := newFakeEndpoint()
	_, _ = c.Subscribe(intel.SystemScope(31000042), ep)

	when := time.Unix(1756600000, 0)

	// Two qualifying kills in the same system and second share a battle id.
	for kmID := int64(1); kmID <= 2; kmID++ {
		c.ProcessKillmail(intel.Killmail{
			KillmailID: kmID,
			SystemID:   31000042,
			Attackers:  make([]intel.Participant, 4),
			Time:       when,
		})
	}

	if battles := c.RecentBattles(); len(battles) != 1 {
		t.Errorf("Expected kills in the same second to record 1 battle, got %d", len(battles))
	}
	if got := len(ep.received()); got != 1 {
		t.Errorf("Expected a single battle event, got %d", got)
	}

	// A kill one second later is a distinct battle.
	c.ProcessKillmail(intel.Killmail{
		KillmailID: 3,
		SystemID:   31000042,
		Attackers:  make([]intel.Participant, 4),
		Time:       when.Add(time.Second),
	})
	if battles := c.RecentBattles(); len(battles) != 2 {
		t.Errorf("Expected 2 battles across distinct seconds, got %d", len(battles))
	}
}

func TestProcessKillmailSchedulesRefreshes(t *testing.T) {
	scorer := &stubScorer{
		assessments: map[int64]intel.ThreatAssessment{
			1001: {Level: 0.9},
			1002: {Level: 0.2},
		},
	}
	c := New(DefaultConfig(), nil, scorer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poolDone := make(chan struct{})
	go func() {
		_ = c.RunRefreshPool(ctx)
		close(poolDone)
	}()

	c.ProcessKillmail(intel.Killmail{
		KillmailID: 3,
		SystemID:   31000042,
		Victim:     intel.Participant{CharacterID: 1001},
		Attackers:  []intel.Participant{{CharacterID: 1002}, {CharacterID: 1002}}, // duplicate collapses
		Time:       time.Now(),
	})

	// Refresh results land as ordinary threat updates.
	deadline := time.After(2 * time.Second)
	for {
		a1, ok1 := c.ThreatFor(1001)
		a2, ok2 := c.ThreatFor(1002)
		if ok1 && ok2 {
			if a1.Level != 0.9 || a2.Level != 0.2 {
				t.Errorf("Unexpected refreshed levels %f %f", a1.Level, a2.Level)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for participant refreshes")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if got := scorer.calls(1002); got != 1 {
		t.Errorf("Duplicate participant must be scored once, got %d calls", got)
	}

	cancel()
	<-poolDone
}

type stubScorer struct {
	mu          sync.Mutex
	assessments map[int64]intel.ThreatAssessment
	callCounts  map[int64]int
}

func (s *stubScorer) ScoreCharacter(ctx context.Context, characterID int64) (intel.ThreatAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callCounts == nil {
		s.callCounts = make(map[int64]int)
	}
	s.callCounts[characterID]++
	a, ok := s.assessments[characterID]
	if !ok {
		return intel.ThreatAssessment{}, errors.New("unknown character")
	}
	return a, nil
}

func (s *stubScorer) calls(characterID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCounts[characterID]
}

func TestUpdateVetting(t *testing.T) {
	store := cache.NewStore(nil)
	ic := cache.NewIntelCache(store, cache.DomainTTLs{
		CharacterAnalysis: time.Hour,
		Vetting:           time.Hour,
		Correlation:       time.Hour,
	}, time.Second)
	c := New(DefaultConfig(), ic, nil)

	ep := newFakeEndpoint()
	_, _ = c.Subscribe(intel.CharacterScope(93000001), ep)

	// First vetting: cached and signaled.
	c.UpdateVetting(93000001, intel.VettingResult{RiskScore: 0.3, Flags: []string{"seed_alt"}}, nil, intel.VettingOpts{})
	if got := len(ep.received()); got != 1 {
		t.Fatalf("First vetting must signal, got %d events", got)
	}
	if _, err := ic.Get(cache.DomainVetting, 93000001); err != nil {
		t.Errorf("Expected vetting result cached: %v", err)
	}

	// Insignificant re-run without Notify: suppressed.
	prev := &intel.VettingResult{RiskScore: 0.3, Flags: []string{"seed_alt"}}
	c.UpdateVetting(93000001, intel.VettingResult{RiskScore: 0.31, Flags: []string{"seed_alt"}}, prev, intel.VettingOpts{})
	if got := len(ep.received()); got != 1 {
		t.Errorf("Insignificant vetting must be suppressed, got %d events", got)
	}

	// Notify forces dispatch.
	c.UpdateVetting(93000001, intel.VettingResult{RiskScore: 0.31, Flags: []string{"seed_alt"}}, prev, intel.VettingOpts{Notify: true})
	events := ep.received()
	if len(events) != 2 {
		t.Fatalf("Notify must force dispatch, got %d events", len(events))
	}
	payload := events[1].Payload.(intel.VettingCompletedEvent)
	if payload.PrevRiskScore == nil || *payload.PrevRiskScore != 0.3 {
		t.Errorf("Expected PrevRiskScore 0.3, got %v", payload.PrevRiskScore)
	}

	// SkipCache leaves the cache untouched.
	c.UpdateVetting(93000002, intel.VettingResult{RiskScore: 0.9}, nil, intel.VettingOpts{SkipCache: true})
	if _, err := ic.Get(cache.DomainVetting, 93000002); err == nil {
		t.Error("SkipCache must not populate the vetting cache")
	}
}

func TestDeadSubscriberCleanup(t *testing.T) {
	c := newTestCoordinator()
	dead := newFakeEndpoint()
	live := newFakeEndpoint()

	_, _ = c.Subscribe(intel.GlobalScope(), dead)
	_, _ = c.Subscribe(intel.GlobalScope(), live)
	dead.kill()

	c.UpdateThreat(93000001, intel.ThreatAssessment{Level: 0.5})

	if got := len(dead.received()); got != 0 {
		t.Errorf("Dead endpoint must not receive events, got %d", got)
	}
	if got := len(live.received()); got != 1 {
		t.Errorf("Live endpoint must still receive events, got %d", got)
	}
	if got := c.Status().ActiveSubscriptions; got != 1 {
		t.Errorf("Dead subscription must be auto-removed, have %d active", got)
	}
}

func TestDeliveryFailureClosesSubscription(t *testing.T) {
	c := newTestCoordinator()
	failing := newFakeEndpoint()
	failing.deliverErr = errors.New("buffer full")

	id, _ := c.Subscribe(intel.GlobalScope(), failing)
	c.UpdateThreat(93000001, intel.ThreatAssessment{Level: 0.5})

	if err := c.Unsubscribe(id); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("Failed delivery must close the subscription, Unsubscribe returned %v", err)
	}
}

func TestSubscribeNilEndpoint(t *testing.T) {
	c := newTestCoordinator()
	if _, err := c.Subscribe(intel.GlobalScope(), nil); !errors.Is(err, ErrNilEndpoint) {
		t.Errorf("Expected ErrNilEndpoint, got %v", err)
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	c := newTestCoordinator()
	id, _ := c.Subscribe(intel.GlobalScope(), newFakeEndpoint())

	if err := c.Unsubscribe(id); err != nil {
		t.Fatalf("First unsubscribe failed: %v", err)
	}
	if err := c.Unsubscribe(id); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("Closed id must stay dead, got %v", err)
	}
}

func TestSweepRetention(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetentionWindow = time.Hour
	c := New(cfg, nil, nil)

	now := time.Now()
	c.mu.Lock()
	c.battles = []intel.BattleRecord{
		{BattleID: "old", DetectedAt: now.Add(-61 * time.Minute)},
		{BattleID: "recent", DetectedAt: now.Add(-59 * time.Minute)},
	}
	c.mu.Unlock()

	removed := c.Sweep()
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}

	battles := c.RecentBattles()
	if len(battles) != 1 || battles[0].BattleID != "recent" {
		t.Errorf("Expected only the recent battle to survive, got %v", battles)
	}
}

func TestStatusCounts(t *testing.T) {
	c := newTestCoordinator()
	_, _ = c.Subscribe(intel.GlobalScope(), newFakeEndpoint())

	c.UpdateThreat(1, intel.ThreatAssessment{Level: 0.5})
	c.UpdateThreat(2, intel.ThreatAssessment{Level: 0.5})
	c.UpdateActivity(31000001, intel.ActivityData{CurrentLevel: 5, BaselineLevel: 5})
	c.UpdateChain("chain-a", intel.ChainUpdate{})

	status := c.Status()
	if status.ActiveThreats != 2 {
		t.Errorf("Expected 2 active threats, got %d", status.ActiveThreats)
	}
	if status.MonitoredSystems != 1 {
		t.Errorf("Expected 1 monitored system, got %d", status.MonitoredSystems)
	}
	if status.TrackedChains != 1 {
		t.Errorf("Expected 1 tracked chain, got %d", status.TrackedChains)
	}
	if status.ActiveSubscriptions != 1 {
		t.Errorf("Expected 1 subscription, got %d", status.ActiveSubscriptions)
	}
}
