// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/varko/chainwatch/internal/cache"
	"github.com/varko/chainwatch/internal/intel"
	"github.com/varko/chainwatch/internal/logging"
	"github.com/varko/chainwatch/internal/metrics"
	"github.com/varko/chainwatch/internal/threshold"
)

// Config holds the coordinator's operational parameters.
type Config struct {
	Thresholds threshold.Config

	// RetentionWindow is how long battle records are kept.
	RetentionWindow time.Duration

	// SweepInterval is how often the retention sweep runs.
	SweepInterval time.Duration

	// StatusTickInterval is how often a status event is broadcast to
	// global subscribers.
	StatusTickInterval time.Duration

	// RefreshWorkers and RefreshQueueSize bound the participant
	// threat-refresh pool fed by killmails.
	RefreshWorkers   int
	RefreshQueueSize int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Thresholds:         threshold.DefaultConfig(),
		RetentionWindow:    1 * time.Hour,
		SweepInterval:      5 * time.Minute,
		StatusTickInterval: 30 * time.Second,
		RefreshWorkers:     8,
		RefreshQueueSize:   1024,
	}
}

// Status is the coordinator introspection snapshot.
type Status struct {
	ActiveThreats       int         `json:"active_threats"`
	MonitoredSystems    int         `json:"monitored_systems"`
	TrackedChains       int         `json:"tracked_chains"`
	RecentBattles       int         `json:"recent_battles"`
	ActiveSubscriptions int         `json:"active_subscriptions"`
	Cache               cache.Stats `json:"cache"`
	UptimeSeconds       float64     `json:"uptime_seconds"`
}

// Coordinator owns all mutable intelligence state: threat assessments,
// system activity, chain snapshots, recent battles, and the subscription
// table. Every mutation goes through its mutex with short critical
// sections, so the read-evaluate-write sequence behind each threshold
// decision is atomic relative to other updates, and scope fan-out always
// sees the subscription table consistent with the state change that
// triggered it.
//
// Event delivery happens outside the lock against a snapshot of matching
// endpoints and is best-effort, at-most-once.
type Coordinator struct {
	cfg  Config
	eval *threshold.Evaluator

	mu       sync.Mutex
	threats  map[int64]intel.ThreatAssessment
	activity map[int64]intel.ActivityData
	chains   map[string]intel.ChainUpdate
	battles  []intel.BattleRecord
	reg      *registry

	intelCache *cache.IntelCache
	refresher  *refresher
	startedAt  time.Time
}

// New creates a coordinator. scorer is the external threat-scoring
// collaborator used to refresh killmail participants; it may be nil, in
// which case killmails still produce battles but no refresh tasks.
// intelCache may be nil; vetting results are then not cached.
func New(cfg Config, intelCache *cache.IntelCache, scorer ThreatScorer) *Coordinator {
	if cfg.RetentionWindow <= 0 {
		cfg.RetentionWindow = DefaultConfig().RetentionWindow
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	if cfg.RefreshWorkers <= 0 {
		cfg.RefreshWorkers = DefaultConfig().RefreshWorkers
	}
	if cfg.RefreshQueueSize <= 0 {
		cfg.RefreshQueueSize = DefaultConfig().RefreshQueueSize
	}

	c := &Coordinator{
		cfg:        cfg,
		eval:       threshold.NewEvaluator(cfg.Thresholds),
		threats:    make(map[int64]intel.ThreatAssessment),
		activity:   make(map[int64]intel.ActivityData),
		chains:     make(map[string]intel.ChainUpdate),
		reg:        newRegistry(),
		intelCache: intelCache,
		startedAt:  time.Now(),
	}
	if scorer != nil {
		c.refresher = newRefresher(scorer, cfg.RefreshWorkers, cfg.RefreshQueueSize, c.UpdateThreat)
	}
	return c
}

// RunRefreshPool runs the participant refresh workers until ctx is
// canceled. When no scorer was configured it just waits for cancellation
// so the supervisor wrapper stays uniform.
func (c *Coordinator) RunRefreshPool(ctx context.Context) error {
	if c.refresher == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return c.refresher.Run(ctx)
}

// recoverHandler keeps a panicking handler from taking the coordinator
// down: the update is dropped, no state change, no event.
func recoverHandler(handler string) {
	if r := recover(); r != nil {
		logging.Error().
			Str("handler", handler).
			Interface("panic", r).
			Msg("coordinator handler panicked, update dropped")
	}
}

// UpdateThreat applies a new threat assessment for a character.
//
// The assessment is stored unconditionally; an event is dispatched to
// Entity(character) and Global subscribers only when the relative level
// delta is significant. A first observation always signals, with a nil
// previous level.
func (c *Coordinator) UpdateThreat(characterID int64, assessment intel.ThreatAssessment) {
	defer recoverHandler("update_threat")

	assessment.CharacterID = characterID
	if assessment.UpdatedAt.IsZero() {
		assessment.UpdatedAt = time.Now()
	}

	c.mu.Lock()
	var prevPtr *intel.ThreatAssessment
	if prev, ok := c.threats[characterID]; ok {
		prevPtr = &prev
	}
	_, significant := c.eval.ThreatDelta(prevPtr, assessment)
	c.threats[characterID] = assessment

	var targets []*subscription
	if significant {
		targets = c.reg.matching(intel.CharacterScope(characterID).Key(), intel.GlobalScope().Key())
	}
	c.mu.Unlock()

	if !significant {
		metrics.EventsSuppressed.WithLabelValues(string(intel.EventTypeThreatChanged)).Inc()
		return
	}

	payload := intel.ThreatEvent{
		CharacterID: characterID,
		NewLevel:    assessment.Level,
		Confidence:  assessment.Confidence,
		Factors:     assessment.Factors,
	}
	if prevPtr != nil {
		prevLevel := prevPtr.Level
		payload.PrevLevel = &prevLevel
	}
	c.dispatch(intel.EventTypeThreatChanged, payload, targets)
}

// UpdateActivity applies a new activity reading for a solar system.
//
// The reading is always stored. A spike event goes to System and Global
// subscribers when the current level reaches the spike ratio against the
// previously stored baseline; without a previous record nothing is
// evaluated.
func (c *Coordinator) UpdateActivity(systemID int64, data intel.ActivityData) {
	defer recoverHandler("update_activity")

	data.SystemID = systemID
	if data.UpdatedAt.IsZero() {
		data.UpdatedAt = time.Now()
	}

	c.mu.Lock()
	var prevPtr *intel.ActivityData
	if prev, ok := c.activity[systemID]; ok {
		prevPtr = &prev
	}
	ratio, spike := c.eval.ActivitySpike(prevPtr, data)
	c.activity[systemID] = data

	var targets []*subscription
	if spike {
		targets = c.reg.matching(intel.SystemScope(systemID).Key(), intel.GlobalScope().Key())
	}
	c.mu.Unlock()

	if !spike {
		metrics.EventsSuppressed.WithLabelValues(string(intel.EventTypeActivitySpike)).Inc()
		return
	}

	c.dispatch(intel.EventTypeActivitySpike, intel.ActivitySpikeEvent{
		SystemID:      systemID,
		CurrentLevel:  data.CurrentLevel,
		BaselineLevel: threshold.EffectiveBaseline(prevPtr),
		Ratio:         ratio,
		ActivityType:  data.ActivityType,
	}, targets)
}

// UpdateChain stores a chain topology snapshot and always dispatches it to
// Chain and Global subscribers: any topology change is operationally
// relevant, so there is no thresholding.
func (c *Coordinator) UpdateChain(chainID string, update intel.ChainUpdate) {
	defer recoverHandler("update_chain")

	update.ChainID = chainID
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now()
	}

	c.mu.Lock()
	c.chains[chainID] = update
	targets := c.reg.matching(intel.ChainScope(chainID).Key(), intel.GlobalScope().Key())
	c.mu.Unlock()

	c.dispatch(intel.EventTypeChainUpdated, intel.ChainUpdateEvent{
		ChainID: chainID,
		Update:  update,
	}, targets)
}

// UpdateVetting processes a vetting run for a character. The result is
// cached under the vetting domain (unless opts.SkipCache), and an event is
// dispatched to Entity(character) and Global subscribers when the result
// changed significantly against the supplied previous run, or when
// opts.Notify forces it.
func (c *Coordinator) UpdateVetting(characterID int64, result intel.VettingResult, previous *intel.VettingResult, opts intel.VettingOpts) {
	defer recoverHandler("update_vetting")

	result.CharacterID = characterID
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}

	if c.intelCache != nil && !opts.SkipCache {
		if err := c.intelCache.Put(cache.DomainVetting, characterID, result); err != nil {
			logging.Err(err).Int64("character_id", characterID).Msg("failed to cache vetting result")
		}
	}

	significant, newFlags := c.eval.VettingChange(previous, result)
	if !significant && !opts.Notify {
		metrics.EventsSuppressed.WithLabelValues(string(intel.EventTypeVettingCompleted)).Inc()
		return
	}

	c.mu.Lock()
	targets := c.reg.matching(intel.CharacterScope(characterID).Key(), intel.GlobalScope().Key())
	c.mu.Unlock()

	payload := intel.VettingCompletedEvent{
		CharacterID: characterID,
		RiskScore:   result.RiskScore,
		NewFlags:    newFlags,
	}
	if previous != nil {
		prevScore := previous.RiskScore
		payload.PrevRiskScore = &prevScore
	}
	c.dispatch(intel.EventTypeVettingCompleted, payload, targets)
}

// ProcessKillmail runs battle detection on the killmail and schedules a
// threat refresh for every distinct participant.
//
// A detected battle is appended to the recent-battles ring and broadcast
// to System and Global subscribers. Refresh tasks run on the bounded
// worker pool off the critical path; each task's failure is isolated.
func (c *Coordinator) ProcessKillmail(km intel.Killmail) {
	defer recoverHandler("process_killmail")

	battle, detected := c.eval.DetectBattle(km)
	if detected {
		c.mu.Lock()
		// Kills sharing system and second belong to the same battle; the
		// deterministic id collides on purpose, so record and broadcast it
		// once.
		known := false
		for _, b := range c.battles {
			if b.BattleID == battle.BattleID {
				known = true
				break
			}
		}
		var targets []*subscription
		if !known {
			c.battles = append(c.battles, battle)
			targets = c.reg.matching(intel.SystemScope(km.SystemID).Key(), intel.GlobalScope().Key())
		}
		c.mu.Unlock()

		if !known {
			logging.Info().
				Str("battle_id", battle.BattleID).
				Int64("system_id", battle.SystemID).
				Int("participants", battle.ParticipantCount).
				Msg("battle detected")

			c.dispatch(intel.EventTypeBattleDetected, intel.BattleDetectedEvent{
				BattleID:         battle.BattleID,
				SystemID:         battle.SystemID,
				ParticipantCount: battle.ParticipantCount,
				DetectedAt:       battle.DetectedAt,
			}, targets)
		}
	}

	if c.refresher != nil {
		for _, id := range km.ParticipantIDs() {
			c.refresher.enqueue(id)
		}
	}
}

// Subscribe registers an endpoint under a scope and returns its handle.
func (c *Coordinator) Subscribe(scope intel.Scope, endpoint SubscriberEndpoint) (SubscriptionID, error) {
	if endpoint == nil {
		return "", ErrNilEndpoint
	}

	c.mu.Lock()
	id := c.reg.add(scope, endpoint)
	size := c.reg.size()
	c.mu.Unlock()

	metrics.ActiveSubscriptions.Set(float64(size))
	logging.Debug().Str("subscription_id", string(id)).Str("scope", scope.Key()).Msg("subscriber registered")
	return id, nil
}

// Unsubscribe closes a subscription. A closed id is never reused.
func (c *Coordinator) Unsubscribe(id SubscriptionID) error {
	c.mu.Lock()
	removed := c.reg.remove(id)
	size := c.reg.size()
	c.mu.Unlock()

	if !removed {
		return ErrSubscriptionNotFound
	}
	metrics.ActiveSubscriptions.Set(float64(size))
	logging.Debug().Str("subscription_id", string(id)).Msg("subscriber removed")
	return nil
}

// dispatch delivers an event to the target subscriptions. Dead endpoints
// (liveness probe fails or delivery errors) are auto-unsubscribed; a
// delivery failure is never surfaced to the producer.
func (c *Coordinator) dispatch(eventType intel.EventType, payload interface{}, targets []*subscription) {
	if len(targets) == 0 {
		return
	}

	event := intel.Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	var dead []SubscriptionID
	for _, sub := range targets {
		if !sub.endpoint.Alive() {
			dead = append(dead, sub.id)
			continue
		}
		if err := sub.endpoint.Deliver(event); err != nil {
			metrics.DeliveryFailures.Inc()
			logging.Warn().
				Err(fmt.Errorf("%w: %w", ErrDelivery, err)).
				Str("subscription_id", string(sub.id)).
				Str("event_type", string(eventType)).
				Msg("event delivery failed, closing subscription")
			dead = append(dead, sub.id)
		}
	}

	metrics.EventsDispatched.WithLabelValues(string(eventType)).Add(float64(len(targets) - len(dead)))

	for _, id := range dead {
		// Already-removed ids are fine here; delivery races with explicit
		// Unsubscribe.
		_ = c.Unsubscribe(id)
	}
}

// Sweep drops battle records older than the retention window and returns
// the number removed. This is the only place coordinator state is removed
// rather than overwritten.
func (c *Coordinator) Sweep() int {
	cutoff := time.Now().Add(-c.cfg.RetentionWindow)

	c.mu.Lock()
	kept := c.battles[:0]
	for _, b := range c.battles {
		if b.DetectedAt.After(cutoff) {
			kept = append(kept, b)
		}
	}
	removed := len(c.battles) - len(kept)
	c.battles = kept
	c.mu.Unlock()

	if removed > 0 {
		metrics.SweepRemovals.Add(float64(removed))
		logging.Debug().Int("removed", removed).Msg("retention sweep dropped battle records")
	}
	return removed
}

// RunSweeper runs the retention sweep every SweepInterval until ctx is
// canceled.
func (c *Coordinator) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "coordinator-sweeper").Msg("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// RunStatusTicker broadcasts a status snapshot to Global subscribers every
// StatusTickInterval until ctx is canceled.
func (c *Coordinator) RunStatusTicker(ctx context.Context) error {
	interval := c.cfg.StatusTickInterval
	if interval <= 0 {
		interval = DefaultConfig().StatusTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "coordinator-status").Msg("status ticker stopped")
			return ctx.Err()
		case <-ticker.C:
			status := c.Status()

			c.mu.Lock()
			targets := c.reg.matching(intel.GlobalScope().Key())
			c.mu.Unlock()

			c.dispatch(intel.EventTypeStatus, status, targets)
		}
	}
}

// Status returns the introspection snapshot.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	status := Status{
		ActiveThreats:       len(c.threats),
		MonitoredSystems:    len(c.activity),
		TrackedChains:       len(c.chains),
		RecentBattles:       len(c.battles),
		ActiveSubscriptions: c.reg.size(),
	}
	c.mu.Unlock()

	if c.intelCache != nil {
		status.Cache = c.intelCache.Stats()
	}
	status.UptimeSeconds = time.Since(c.startedAt).Seconds()
	return status
}

// ThreatFor returns the stored assessment for a character, if any. Every
// producer update is visible here regardless of whether an event was
// emitted.
func (c *Coordinator) ThreatFor(characterID int64) (intel.ThreatAssessment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.threats[characterID]
	return a, ok
}

// ActivityFor returns the stored activity reading for a system, if any.
func (c *Coordinator) ActivityFor(systemID int64) (intel.ActivityData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.activity[systemID]
	return a, ok
}

// ChainFor returns the stored snapshot for a chain, if any.
func (c *Coordinator) ChainFor(chainID string) (intel.ChainUpdate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.chains[chainID]
	return u, ok
}

// RecentBattles returns a copy of the current battle ring.
func (c *Coordinator) RecentBattles() []intel.BattleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]intel.BattleRecord, len(c.battles))
	copy(out, c.battles)
	return out
}
