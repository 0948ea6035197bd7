// Package circadian computes brightness and color temperature targets from
// the sun window. Everything here is a pure function of its inputs.
package circadian

import (
	"math"
	"time"
)

// Mode selects which factor drives an output channel.
type Mode string

const (
	ModeCircadian Mode = "circadian"
	ModeSolar     Mode = "solar"
	ModeTimeBased Mode = "time_based"
)

// Factors are the candidate driving values for one instant, all in [0,1].
type Factors struct {
	// Circadian is a bell curve peaking at solar noon.
	Circadian float64
	// Solar is proportional to elevation, saturating at 60 degrees.
	Solar float64
	// Linear ramps to 1 at solar noon and back down.
	Linear float64
	// DayProgress is the normalized position of now between sunrise and
	// sunset; 0 before dawn, 1 after dusk.
	DayProgress float64
}

// Compute derives the factors for now given a normalized sun window.
// With the sun at or below the horizon every factor is zero and day
// progress only records which side of the day we are on.
func Compute(now, sunriseRef, sunsetRef time.Time, elevation float64) Factors {
	if elevation <= 0 {
		progress := 1.0
		if now.Before(sunriseRef) {
			progress = 0.0
		}
		return Factors{DayProgress: progress}
	}

	var progress float64
	switch {
	case sunriseRef.Before(now) && now.Before(sunsetRef):
		total := sunsetRef.Sub(sunriseRef).Seconds()
		elapsed := now.Sub(sunriseRef).Seconds()
		progress = math.Max(0, math.Min(1, elapsed/total))
	case now.Before(sunriseRef):
		progress = 0.0
	default:
		progress = 1.0
	}

	var circadian float64
	if progress <= 0.5 {
		circadian = math.Pow(2*progress, 1.5)
	} else {
		circadian = math.Pow(2*(1-progress), 1.5)
	}

	solar := 1.0
	if elevation < 60 {
		solar = elevation / 60.0
	}

	var linear float64
	if progress <= 0.5 {
		linear = 2 * progress
	} else {
		linear = 2 * (1 - progress)
	}

	return Factors{
		Circadian:   circadian,
		Solar:       solar,
		Linear:      linear,
		DayProgress: progress,
	}
}

// ForMode returns the factor driving the given mode.
func (f Factors) ForMode(mode Mode) float64 {
	switch mode {
	case ModeSolar:
		return f.Solar
	case ModeTimeBased:
		return f.Linear
	default:
		return f.Circadian
	}
}

// Settings are the per-room inputs for turning factors into output values.
type Settings struct {
	MinBrightness  int
	MaxBrightness  int
	MinColorTemp   int
	MaxColorTemp   int
	BrightnessMode Mode
	ColorTempMode  Mode

	SleepMode       bool
	SleepBrightness int
	SleepColorTemp  int
}

// Target is a computed lighting target.
type Target struct {
	BrightnessPct   int
	ColorTempKelvin int
}

// Values maps factors onto the configured ranges. Sleep mode bypasses the
// factors entirely and yields the fixed sleep values.
func Values(f Factors, s Settings) Target {
	if s.SleepMode {
		return Target{
			BrightnessPct:   s.SleepBrightness,
			ColorTempKelvin: s.SleepColorTemp,
		}
	}

	bFactor := f.ForMode(s.BrightnessMode)
	ctFactor := f.ForMode(s.ColorTempMode)

	return Target{
		BrightnessPct:   s.MinBrightness + int(float64(s.MaxBrightness-s.MinBrightness)*bFactor),
		ColorTempKelvin: s.MinColorTemp + int(float64(s.MaxColorTemp-s.MinColorTemp)*ctFactor),
	}
}
