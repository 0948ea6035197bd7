// Package controller composes the solar, circadian, override, sync and
// apply pieces into one per-room orchestrator driven by a periodic tick
// and entity events.
package controller

import (
	"sync"
	"time"

	"adaptivelighting/internal/circadian"
	"adaptivelighting/internal/clock"
	"adaptivelighting/internal/config"
	"adaptivelighting/internal/ha"
	"adaptivelighting/internal/lights"
	"adaptivelighting/internal/override"
	"adaptivelighting/internal/sun"
	"adaptivelighting/internal/syncgroup"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SunSource resolves the current sun window. Satisfied by *sun.Tracker.
type SunSource interface {
	Reading(sunriseOffset, sunsetOffset time.Duration) sun.Reading
}

// activeValues are trigger-entity states treated as "turned on".
var activeValues = map[string]bool{
	"on":      true,
	"home":    true,
	"playing": true,
	"open":    true,
}

// Controller runs adaptive lighting for one room.
type Controller struct {
	name     string
	haClient ha.HAClient
	clock    clock.Clock
	sun      SunSource
	groups   *syncgroup.Registry
	applier  *lights.Applier
	detector *override.Detector
	logger   *zap.Logger

	mu  sync.Mutex
	cfg config.RoomConfig

	internalEnabled bool
	sleepMode       bool
	adaptBrightness bool
	adaptColorTemp  bool
	window          override.Window

	currentBrightness int
	currentColorTemp  int
	circadianFactor   float64
	dayProgress       float64 // percent
	sunElevation      float64

	subs    []ha.Subscription
	pending map[string]clock.Timer
	stopCh  chan struct{}
	started bool
	stopped bool
}

// New creates a room controller. The sync group registry is shared across
// all controllers in the process.
func New(cfg config.RoomConfig, haClient ha.HAClient, clk clock.Clock, sunSource SunSource, groups *syncgroup.Registry, logger *zap.Logger) *Controller {
	roomLogger := logger.Named("controller").With(zap.String("room", cfg.Name))
	return &Controller{
		name:            cfg.Name,
		haClient:        haClient,
		clock:           clk,
		sun:             sunSource,
		groups:          groups,
		applier:         lights.NewApplier(haClient, roomLogger),
		detector:        override.NewDetector(roomLogger),
		logger:          roomLogger,
		cfg:             cfg,
		internalEnabled: true,
		adaptBrightness: true,
		adaptColorTemp:  true,
		pending:         make(map[string]clock.Timer),
		stopCh:          make(chan struct{}),
	}
}

// Name returns the room's stable identity.
func (c *Controller) Name() string {
	return c.name
}

// Start joins the sync group, runs an initial update, subscribes to
// trigger and light entities, and begins the periodic tick.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	group := c.cfg.SyncGroup
	c.mu.Unlock()

	if group != "" {
		c.groups.Join(group, c.name)
	}

	c.Tick()

	for _, entityID := range c.cfg.TriggerEntities {
		sub, err := c.haClient.SubscribeStateChanges(entityID, c.handleTriggerChange)
		if err != nil {
			c.logger.Warn("Failed to subscribe to trigger",
				zap.String("entity_id", entityID),
				zap.Error(err))
			continue
		}
		c.subs = append(c.subs, sub)
	}

	for _, entityID := range c.cfg.Lights {
		sub, err := c.haClient.SubscribeStateChanges(entityID, c.handleLightChange)
		if err != nil {
			c.logger.Warn("Failed to subscribe to light",
				zap.String("entity_id", entityID),
				zap.Error(err))
			continue
		}
		c.subs = append(c.subs, sub)
	}

	go c.runTicker()

	c.logger.Info("Room controller started",
		zap.Int("lights", len(c.cfg.Lights)),
		zap.Int("triggers", len(c.cfg.TriggerEntities)),
		zap.String("sync_group", group))
	return nil
}

// Stop cancels pending debounced applies, unsubscribes from all watched
// entities and leaves the sync group. A removed room never fires a late
// apply.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	for id, timer := range c.pending {
		timer.Stop()
		delete(c.pending, id)
	}
	subs := c.subs
	c.subs = nil
	group := c.cfg.SyncGroup
	c.mu.Unlock()

	close(c.stopCh)

	for _, sub := range subs {
		sub.Unsubscribe()
	}

	if group != "" {
		c.groups.Leave(group, c.name)
	}

	c.logger.Info("Room controller stopped")
}

func (c *Controller) runTicker() {
	c.mu.Lock()
	interval := time.Duration(c.cfg.UpdateIntervalSeconds) * time.Second
	c.mu.Unlock()

	for {
		select {
		case <-c.stopCh:
			return
		case <-c.clock.After(interval):
			c.Tick()
		}
	}
}

// Enabled reports whether the controller may act: the external enable
// entity (when configured) vetoes the internal flag.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	enableEntity := c.cfg.EnableEntity
	internal := c.internalEnabled
	c.mu.Unlock()

	if enableEntity != "" {
		if state, err := c.haClient.GetState(enableEntity); err == nil && state.State == "off" {
			return false
		}
	}
	return internal
}

// Tick is one control cycle: reconcile the override window, then either
// follow the sync group's published target or compute and publish one,
// and push the result to the lights.
func (c *Controller) Tick() {
	now := c.clock.Now()

	c.mu.Lock()
	if c.window.Reconcile(now) {
		c.logger.Info("Manual override expired")
	}
	overridden := c.window.IsActive(now)
	c.mu.Unlock()

	if overridden || !c.Enabled() {
		return
	}

	c.mu.Lock()
	c.updateTargetLocked(now)
	req := c.requestLocked(nil, false)
	c.mu.Unlock()

	c.applier.Apply(req)
}

// updateTargetLocked sets currentBrightness/currentColorTemp, following
// the group target when this room is not the leader and a target has been
// published, otherwise running the engine and publishing.
func (c *Controller) updateTargetLocked(now time.Time) {
	if c.cfg.SyncGroup != "" {
		if target, ok := c.groups.FollowTarget(c.cfg.SyncGroup, c.name); ok {
			c.currentBrightness = target.BrightnessPct
			c.currentColorTemp = target.ColorTempKelvin
			return
		}
	}

	c.computeAndPublishLocked(now)
}

// computeAndPublishLocked runs the engine unconditionally and publishes
// the result to the sync group.
func (c *Controller) computeAndPublishLocked(now time.Time) {
	target := c.calculateLocked(now)
	c.currentBrightness = target.BrightnessPct
	c.currentColorTemp = target.ColorTempKelvin

	if c.cfg.SyncGroup != "" {
		c.groups.Publish(c.cfg.SyncGroup, syncgroup.Target{
			BrightnessPct:   target.BrightnessPct,
			ColorTempKelvin: target.ColorTempKelvin,
		})
	}
}

func (c *Controller) calculateLocked(now time.Time) circadian.Target {
	reading := c.sun.Reading(
		time.Duration(c.cfg.SunriseOffsetMinutes)*time.Minute,
		time.Duration(c.cfg.SunsetOffsetMinutes)*time.Minute,
	)

	factors := circadian.Compute(now, reading.Sunrise, reading.Sunset, reading.Elevation)

	c.circadianFactor = factors.Circadian
	c.dayProgress = factors.DayProgress * 100
	c.sunElevation = reading.Elevation

	return circadian.Values(factors, circadian.Settings{
		MinBrightness:   c.cfg.MinBrightness,
		MaxBrightness:   c.cfg.MaxBrightness,
		MinColorTemp:    c.cfg.MinColorTemp,
		MaxColorTemp:    c.cfg.MaxColorTemp,
		BrightnessMode:  circadian.Mode(c.cfg.BrightnessMode),
		ColorTempMode:   circadian.Mode(c.cfg.ColorTempMode),
		SleepMode:       c.sleepMode,
		SleepBrightness: c.cfg.SleepBrightness,
		SleepColorTemp:  c.cfg.SleepColorTemp,
	})
}

func (c *Controller) requestLocked(entities []string, instant bool) lights.Request {
	if entities == nil {
		entities = c.cfg.Lights
	}
	return lights.Request{
		Lights:            entities,
		BrightnessPct:     c.currentBrightness,
		ColorTempKelvin:   c.currentColorTemp,
		TransitionSeconds: c.cfg.TransitionSeconds,
		AdaptBrightness:   c.adaptBrightness,
		AdaptColorTemp:    c.adaptColorTemp,
		Instant:           instant,
	}
}

// handleTriggerChange reacts to a trigger entity becoming active by
// scheduling a debounced apply to all lights.
func (c *Controller) handleTriggerChange(entityID string, oldState, newState *ha.State) {
	if newState == nil || !c.Enabled() {
		return
	}

	if activeValues[newState.State] && (oldState == nil || !activeValues[oldState.State]) {
		c.logger.Debug("Trigger became active",
			zap.String("entity_id", entityID))
		c.scheduleApply(nil)
	}
}

// handleLightChange reacts to a watched light: a turn-on schedules a
// debounced apply scoped to that light; an adjustment while on is handed
// to the override detector.
func (c *Controller) handleLightChange(entityID string, oldState, newState *ha.State) {
	if newState == nil || !c.Enabled() {
		return
	}

	if newState.IsOn() && !oldState.IsOn() {
		c.logger.Debug("Light turned on",
			zap.String("entity_id", entityID))
		c.scheduleApply([]string{entityID})
		return
	}

	c.mu.Lock()
	detect := c.cfg.DetectOverrideEnabled()
	timeout := c.cfg.OverrideTimeoutMinutes
	c.mu.Unlock()

	if !detect {
		return
	}

	expected, haveExpected := c.applier.LastApplied(entityID)
	ext := c.detector.IsExternalChange(oldState, newState, override.Expected{
		Brightness: expected.Brightness,
		ColorTemp:  expected.ColorTemp,
	}, haveExpected)

	if ext {
		c.logger.Info("Manual adjustment detected, pausing adaptation",
			zap.String("entity_id", entityID),
			zap.Int("timeout_minutes", timeout))
		c.SetManualOverride(timeout)
	}
}

// scheduleApply arms a debounced apply. Each pending work item is tracked
// by ID so Stop can cancel everything still waiting.
func (c *Controller) scheduleApply(entities []string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	id := uuid.NewString()
	delay := time.Duration(c.cfg.ApplyDelayMs) * time.Millisecond
	instant := c.cfg.InstantTransitionEnabled()

	timer := c.clock.AfterFunc(delay, func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()

		if !c.Enabled() {
			return
		}

		c.mu.Lock()
		req := c.requestLocked(entities, instant)
		c.mu.Unlock()

		c.applier.Apply(req)
	})
	c.pending[id] = timer
	c.mu.Unlock()
}

// ForceUpdate recomputes, republishes to the sync group and applies,
// bypassing the override check. Used when a setting changes live.
func (c *Controller) ForceUpdate() {
	if !c.Enabled() {
		return
	}

	now := c.clock.Now()

	c.mu.Lock()
	c.computeAndPublishLocked(now)
	req := c.requestLocked(nil, false)
	c.mu.Unlock()

	c.applier.Apply(req)
}

// SetManualOverride arms the manual-override window; automatic updates
// pause until it expires or is cleared.
func (c *Controller) SetManualOverride(durationMinutes int) {
	now := c.clock.Now()

	c.mu.Lock()
	c.window.Set(now, time.Duration(durationMinutes)*time.Minute)
	c.mu.Unlock()

	c.logger.Info("Manual override set",
		zap.Int("duration_minutes", durationMinutes))
}

// ClearManualOverride disarms the window and immediately recomputes.
func (c *Controller) ClearManualOverride() {
	c.mu.Lock()
	c.window.Clear()
	c.mu.Unlock()

	c.logger.Info("Manual override cleared")
	c.ForceUpdate()
}

// ManualOverrideActive reconciles and reports the override window.
// Reading after expiry observes and persists the cleared state.
func (c *Controller) ManualOverrideActive() bool {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.window.Reconcile(now)
	return c.window.IsActive(now)
}

// SetEnabled flips the internal enable flag.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.internalEnabled = enabled
	c.mu.Unlock()

	c.logger.Info("Enable flag changed", zap.Bool("enabled", enabled))
}

// SetSleepMode toggles sleep mode and applies the change immediately.
func (c *Controller) SetSleepMode(enabled bool) {
	c.mu.Lock()
	changed := c.sleepMode != enabled
	c.sleepMode = enabled
	c.mu.Unlock()

	if changed {
		c.logger.Info("Sleep mode changed", zap.Bool("sleep_mode", enabled))
		c.ForceUpdate()
	}
}

// SetAdaptBrightness toggles brightness adaptation.
func (c *Controller) SetAdaptBrightness(enabled bool) {
	c.mu.Lock()
	c.adaptBrightness = enabled
	c.mu.Unlock()
}

// SetAdaptColorTemp toggles color-temperature adaptation.
func (c *Controller) SetAdaptColorTemp(enabled bool) {
	c.mu.Lock()
	c.adaptColorTemp = enabled
	c.mu.Unlock()
}
