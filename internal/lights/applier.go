// Package lights turns computed targets into light.turn_on commands and
// remembers what was sent for override reconciliation.
package lights

import (
	"math"
	"sync"

	"adaptivelighting/internal/ha"

	"go.uber.org/zap"
)

// NeutralMireds is the telemetry fallback when no color temperature has
// been computed. It is never sent to a light.
const NeutralMireds = 370

// BrightnessToScale converts a percentage to the 0-255 scale.
func BrightnessToScale(pct int) int {
	return int(math.Round(float64(pct) / 100 * 255))
}

// KelvinToMireds converts Kelvin to mireds, returning NeutralMireds for a
// zero or missing color temperature.
func KelvinToMireds(kelvin int) int {
	if kelvin <= 0 {
		return NeutralMireds
	}
	return int(math.Round(1_000_000 / float64(kelvin)))
}

// Applied is the per-light record of the values most recently sent:
// brightness on the 0-255 scale and color temperature in mireds, nil for
// a channel that was not included in the command.
type Applied struct {
	Brightness *int
	ColorTemp  *int
}

// Request describes one apply pass over a set of lights.
type Request struct {
	Lights            []string
	BrightnessPct     int
	ColorTempKelvin   int
	TransitionSeconds int
	AdaptBrightness   bool
	AdaptColorTemp    bool
	// Instant forces transition 0, used right after a light turns on so
	// the jump from its power-on default is not a visible sweep.
	Instant bool
}

// Applier sends lighting commands and tracks the last applied values.
type Applier struct {
	haClient ha.HAClient
	logger   *zap.Logger

	mu          sync.Mutex
	lastApplied map[string]Applied
}

// NewApplier creates a light applier.
func NewApplier(haClient ha.HAClient, logger *zap.Logger) *Applier {
	return &Applier{
		haClient:    haClient,
		logger:      logger.Named("lights"),
		lastApplied: make(map[string]Applied),
	}
}

// Apply pushes the target to every light in the request and returns the
// entities a command was issued for. Lights that are off, absent, or end
// up with nothing to adapt are skipped. A dispatch failure is logged and
// does not stop the rest of the batch.
func (a *Applier) Apply(req Request) []string {
	if !req.AdaptBrightness && !req.AdaptColorTemp {
		return nil
	}

	brightness255 := BrightnessToScale(req.BrightnessPct)

	haveColorTemp := req.ColorTempKelvin > 0
	mireds := KelvinToMireds(req.ColorTempKelvin)

	var applied []string
	for _, entityID := range req.Lights {
		state, err := a.haClient.GetState(entityID)
		if err != nil || !state.IsOn() {
			// Off or absent lights are picked up by the turn-on trigger.
			a.logger.Debug("Skipping light not on",
				zap.String("entity_id", entityID))
			continue
		}

		transition := req.TransitionSeconds
		if req.Instant {
			transition = 0
		}

		data := map[string]interface{}{
			"entity_id":  entityID,
			"transition": transition,
		}

		sendBrightness := req.AdaptBrightness
		sendColorTemp := req.AdaptColorTemp && haveColorTemp && state.SupportsColorTemp()

		if sendBrightness {
			data["brightness"] = brightness255
		}
		if sendColorTemp {
			data["color_temp"] = mireds
		}

		// Nothing adapted: do not send a bare transition-only command.
		if !sendBrightness && !sendColorTemp {
			continue
		}

		record := Applied{}
		if sendBrightness {
			b := brightness255
			record.Brightness = &b
		}
		if sendColorTemp {
			m := mireds
			record.ColorTemp = &m
		}

		a.mu.Lock()
		a.lastApplied[entityID] = record
		a.mu.Unlock()

		if err := a.haClient.CallService("light", "turn_on", data); err != nil {
			a.logger.Error("Failed to apply lighting",
				zap.String("entity_id", entityID),
				zap.Error(err))
			continue
		}

		applied = append(applied, entityID)
	}

	return applied
}

// LastApplied returns the values most recently sent to a light.
func (a *Applier) LastApplied(entityID string) (Applied, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, ok := a.lastApplied[entityID]
	return record, ok
}
