// Package override holds the manual-override window and decides whether an
// observed light change was made by a human rather than by this controller.
package override

import (
	"time"

	"adaptivelighting/internal/ha"

	"go.uber.org/zap"
)

// Tolerance bands for attributing an observed change to our own apply.
// Light drivers round and quantize differently than the value sent; exact
// equality would flag every self-applied change as external.
const (
	BrightnessTolerance = 5  // 0-255 scale
	ColorTempTolerance  = 10 // mireds
)

// Window is a room's manual-override state: armed with an expiry, or clear.
type Window struct {
	armed bool
	until time.Time
}

// Set arms the window for the given duration.
func (w *Window) Set(now time.Time, duration time.Duration) {
	w.armed = true
	w.until = now.Add(duration)
}

// Clear disarms the window.
func (w *Window) Clear() {
	w.armed = false
	w.until = time.Time{}
}

// IsActive reports whether the window is armed and unexpired. It does not
// mutate state; call Reconcile to make expiry observable.
func (w *Window) IsActive(now time.Time) bool {
	return w.armed && !now.After(w.until)
}

// Reconcile clears an expired window and reports whether it did so.
// Called at the top of every tick so expiry is an explicit transition
// rather than a read side effect.
func (w *Window) Reconcile(now time.Time) bool {
	if w.armed && now.After(w.until) {
		w.Clear()
		return true
	}
	return false
}

// ExpiresAt returns the expiry timestamp while the window is armed.
func (w *Window) ExpiresAt() (time.Time, bool) {
	if !w.armed {
		return time.Time{}, false
	}
	return w.until, true
}

// Expected is the last command this controller sent to a light: brightness
// on the 0-255 scale and color temperature in mireds, nil for a channel
// that was not adapted.
type Expected struct {
	Brightness *int
	ColorTemp  *int
}

// Detector attributes observed light-state changes.
type Detector struct {
	logger *zap.Logger
}

// NewDetector creates an override detector.
func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{logger: logger.Named("override")}
}

// IsExternalChange reports whether a light's state transition was caused by
// someone other than this controller. haveExpected is false when the
// controller has never applied to this light; such changes are ignored
// rather than attributed.
func (d *Detector) IsExternalChange(oldState, newState *ha.State, expected Expected, haveExpected bool) bool {
	if oldState == nil || newState == nil {
		return false
	}

	// A parent context means the change was produced by another tracked
	// action, not a human.
	if newState.Context != nil && newState.Context.ParentID != "" {
		return false
	}

	// Only adjustments to a light that stayed on count; power transitions
	// are handled by the turn-on path.
	if !newState.IsOn() || !oldState.IsOn() {
		return false
	}

	newBrightness, _ := newState.NumberAttr("brightness")
	oldBrightness, _ := oldState.NumberAttr("brightness")
	newColorTemp, _ := newState.NumberAttr("color_temp")
	oldColorTemp, _ := oldState.NumberAttr("color_temp")

	if newBrightness == oldBrightness && newColorTemp == oldColorTemp {
		return false
	}

	if !haveExpected {
		return false
	}

	expBrightness := 0.0
	if expected.Brightness != nil {
		expBrightness = float64(*expected.Brightness)
	}
	expColorTemp := 0.0
	if expected.ColorTemp != nil {
		expColorTemp = float64(*expected.ColorTemp)
	}

	ours := absDiff(newBrightness, expBrightness) < BrightnessTolerance &&
		absDiff(newColorTemp, expColorTemp) < ColorTempTolerance

	if !ours {
		d.logger.Debug("External light change detected",
			zap.String("entity_id", newState.EntityID),
			zap.Float64("observed_brightness", newBrightness),
			zap.Float64("expected_brightness", expBrightness),
			zap.Float64("observed_color_temp", newColorTemp),
			zap.Float64("expected_color_temp", expColorTemp))
	}

	return !ours
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
