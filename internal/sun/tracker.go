// Package sun resolves a coherent sunrise/sunset window and solar elevation
// for "now", normalizing the forward-looking timestamps reported by the
// sun entity into the current day cycle.
package sun

import (
	"time"

	"adaptivelighting/internal/clock"
	"adaptivelighting/internal/ha"

	"github.com/nathan-osman/go-sunrise"
	"go.uber.org/zap"
)

// SunEntityID is the entity queried for elevation and next rise/set times.
const SunEntityID = "sun.sun"

// Fallback constants used when no sun data source is available.
const (
	fallbackDayElevation   = 45.0
	fallbackNightElevation = -10.0
)

// Reading is a normalized sun window: sunrise precedes sunset and "now"
// falls inside the cycle they bound.
type Reading struct {
	Sunrise   time.Time
	Sunset    time.Time
	Elevation float64
}

// Normalize anchors the reported "next" sunrise/sunset timestamps so the
// returned pair brackets the current day cycle. Tie-breaks matter for
// day-progress correctness:
//  1. a future next-sunrise is pulled back a day to the most recent sunrise
//  2. a future next-sunset with the sun already down is pulled back a day,
//     since today's sunset has passed
//  3. otherwise a sunset earlier than sunrise is pushed forward a day to
//     keep sunrise < sunset
func Normalize(now, nextRising, nextSetting time.Time, elevation float64) (time.Time, time.Time) {
	sunriseRef := nextRising
	sunsetRef := nextSetting

	if sunriseRef.After(now) {
		sunriseRef = sunriseRef.AddDate(0, 0, -1)
	}

	if sunsetRef.After(now) && elevation <= 0 {
		sunsetRef = sunsetRef.AddDate(0, 0, -1)
	} else if sunsetRef.Before(sunriseRef) {
		sunsetRef = sunsetRef.AddDate(0, 0, 1)
	}

	return sunriseRef, sunsetRef
}

// Tracker resolves sun readings from the sun entity, falling back to local
// computation from configured coordinates, then to a fixed 06:00-18:00
// window when neither source is available.
type Tracker struct {
	haClient  ha.HAClient
	clock     clock.Clock
	latitude  float64
	longitude float64
	logger    *zap.Logger
}

// NewTracker creates a sun tracker. Zero coordinates disable the local
// computation fallback.
func NewTracker(haClient ha.HAClient, clk clock.Clock, latitude, longitude float64, logger *zap.Logger) *Tracker {
	return &Tracker{
		haClient:  haClient,
		clock:     clk,
		latitude:  latitude,
		longitude: longitude,
		logger:    logger.Named("sun"),
	}
}

// Reading resolves the current sun window with the given signed offsets
// applied after normalization.
func (t *Tracker) Reading(sunriseOffset, sunsetOffset time.Duration) Reading {
	now := t.clock.Now()

	if r, ok := t.fromEntity(now, sunriseOffset, sunsetOffset); ok {
		return r
	}

	if r, ok := t.fromCoordinates(now, sunriseOffset, sunsetOffset); ok {
		return r
	}

	return fixedWindow(now)
}

func (t *Tracker) fromEntity(now time.Time, sunriseOffset, sunsetOffset time.Duration) (Reading, bool) {
	state, err := t.haClient.GetState(SunEntityID)
	if err != nil {
		return Reading{}, false
	}

	elevation, _ := state.NumberAttr("elevation")

	risingStr, okRising := state.StringAttr("next_rising")
	settingStr, okSetting := state.StringAttr("next_setting")
	if !okRising || !okSetting {
		return Reading{}, false
	}

	nextRising, err1 := time.Parse(time.RFC3339, risingStr)
	nextSetting, err2 := time.Parse(time.RFC3339, settingStr)
	if err1 != nil || err2 != nil {
		t.logger.Warn("Unparsable sun timestamps, falling back",
			zap.String("next_rising", risingStr),
			zap.String("next_setting", settingStr))
		return Reading{}, false
	}

	sunriseRef, sunsetRef := Normalize(now, nextRising, nextSetting, elevation)

	return Reading{
		Sunrise:   sunriseRef.Add(sunriseOffset),
		Sunset:    sunsetRef.Add(sunsetOffset),
		Elevation: elevation,
	}, true
}

func (t *Tracker) fromCoordinates(now time.Time, sunriseOffset, sunsetOffset time.Duration) (Reading, bool) {
	if t.latitude == 0 && t.longitude == 0 {
		return Reading{}, false
	}

	rise, set := sunrise.SunriseSunset(
		t.latitude, t.longitude,
		now.Year(), now.Month(), now.Day(),
	)

	elevation := fallbackNightElevation
	if now.After(rise) && now.Before(set) {
		elevation = fallbackDayElevation
	}

	return Reading{
		Sunrise:   rise.Add(sunriseOffset),
		Sunset:    set.Add(sunsetOffset),
		Elevation: elevation,
	}, true
}

// fixedWindow is the last-resort 06:00-18:00 day assumption.
func fixedWindow(now time.Time) Reading {
	sunriseRef := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, now.Location())
	sunsetRef := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())

	elevation := fallbackNightElevation
	if h := now.Hour(); h >= 6 && h <= 18 {
		elevation = fallbackDayElevation
	}

	return Reading{
		Sunrise:   sunriseRef,
		Sunset:    sunsetRef,
		Elevation: elevation,
	}
}

// PositionLabel maps an elevation to a human-readable solar position.
func PositionLabel(elevation float64) string {
	switch {
	case elevation < -18:
		return "Night"
	case elevation < -12:
		return "Astronomical Twilight"
	case elevation < -6:
		return "Nautical Twilight"
	case elevation < 0:
		return "Civil Twilight"
	case elevation < 15:
		return "Golden Hour"
	case elevation < 30:
		return "Morning/Evening"
	default:
		return "Daylight"
	}
}
