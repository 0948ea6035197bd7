package circadian

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	testSunrise = time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
	testSunset  = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
)

// timeAtProgress returns the instant corresponding to day progress p.
func timeAtProgress(p float64) time.Time {
	return testSunrise.Add(time.Duration(p * float64(testSunset.Sub(testSunrise))))
}

func TestComputeNight(t *testing.T) {
	tests := []struct {
		name             string
		now              time.Time
		elevation        float64
		expectedProgress float64
	}{
		{"Pre-dawn", testSunrise.Add(-2 * time.Hour), -5.0, 0.0},
		{"Post-dusk", testSunset.Add(2 * time.Hour), -5.0, 1.0},
		{"Elevation exactly zero", testSunset.Add(time.Hour), 0.0, 1.0},
		{"Deep night", testSunrise.Add(-5 * time.Hour), -40.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Compute(tt.now, testSunrise, testSunset, tt.elevation)

			assert.Equal(t, 0.0, f.Circadian)
			assert.Equal(t, 0.0, f.Solar)
			assert.Equal(t, 0.0, f.Linear)
			assert.Equal(t, tt.expectedProgress, f.DayProgress)
		})
	}
}

func TestComputeDayProgress(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected float64
	}{
		{"Solar noon", timeAtProgress(0.5), 0.5},
		{"Quarter day", timeAtProgress(0.25), 0.25},
		{"Before sunrise with sun up", testSunrise.Add(-time.Hour), 0.0},
		{"After sunset with sun up", testSunset.Add(time.Hour), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Compute(tt.now, testSunrise, testSunset, 30.0)
			assert.InDelta(t, tt.expected, f.DayProgress, 1e-9)
		})
	}
}

func TestCircadianSymmetry(t *testing.T) {
	for _, p := range []float64{0.1, 0.2, 0.3, 0.4, 0.45} {
		a := Compute(timeAtProgress(p), testSunrise, testSunset, 30.0)
		b := Compute(timeAtProgress(1-p), testSunrise, testSunset, 30.0)
		assert.InDelta(t, a.Circadian, b.Circadian, 1e-9, "p=%v", p)
		assert.InDelta(t, a.Linear, b.Linear, 1e-9, "p=%v", p)
	}
}

func TestCircadianPeaksAtNoon(t *testing.T) {
	f := Compute(timeAtProgress(0.5), testSunrise, testSunset, 30.0)
	assert.Equal(t, 1.0, f.Circadian)
	assert.Equal(t, 1.0, f.Linear)
}

func TestSolarFactor(t *testing.T) {
	noon := timeAtProgress(0.5)

	previous := -1.0
	for _, e := range []float64{0.5, 10, 20, 30, 45, 59, 60} {
		f := Compute(noon, testSunrise, testSunset, e)
		assert.GreaterOrEqual(t, f.Solar, previous, "elevation=%v", e)
		assert.LessOrEqual(t, f.Solar, 1.0, "elevation=%v", e)
		previous = f.Solar
	}

	// Clamped above 60 degrees
	f := Compute(noon, testSunrise, testSunset, 75.0)
	assert.Equal(t, 1.0, f.Solar)
}

func TestForMode(t *testing.T) {
	f := Factors{Circadian: 0.1, Solar: 0.2, Linear: 0.3}

	assert.Equal(t, 0.1, f.ForMode(ModeCircadian))
	assert.Equal(t, 0.2, f.ForMode(ModeSolar))
	assert.Equal(t, 0.3, f.ForMode(ModeTimeBased))
	assert.Equal(t, 0.1, f.ForMode(Mode("unknown")))
}

func TestValuesMidpointMapping(t *testing.T) {
	// Linear factor is exactly 0.5 at quarter day
	f := Compute(timeAtProgress(0.25), testSunrise, testSunset, 30.0)
	assert.InDelta(t, 0.5, f.Linear, 1e-9)

	target := Values(f, Settings{
		MinBrightness:  20,
		MaxBrightness:  100,
		MinColorTemp:   2200,
		MaxColorTemp:   5500,
		BrightnessMode: ModeTimeBased,
		ColorTempMode:  ModeTimeBased,
	})

	assert.Equal(t, 60, target.BrightnessPct)
	assert.Equal(t, 3850, target.ColorTempKelvin)
}

func TestValuesRangeBounds(t *testing.T) {
	settings := Settings{
		MinBrightness:  20,
		MaxBrightness:  100,
		MinColorTemp:   2200,
		MaxColorTemp:   5500,
		BrightnessMode: ModeCircadian,
		ColorTempMode:  ModeCircadian,
	}

	night := Compute(testSunrise.Add(-2*time.Hour), testSunrise, testSunset, -5.0)
	target := Values(night, settings)
	assert.Equal(t, 20, target.BrightnessPct)
	assert.Equal(t, 2200, target.ColorTempKelvin)

	noon := Compute(timeAtProgress(0.5), testSunrise, testSunset, 60.0)
	target = Values(noon, settings)
	assert.Equal(t, 100, target.BrightnessPct)
	assert.Equal(t, 5500, target.ColorTempKelvin)
}

func TestSleepModeOverridesFactors(t *testing.T) {
	settings := Settings{
		MinBrightness:   20,
		MaxBrightness:   100,
		MinColorTemp:    2200,
		MaxColorTemp:    5500,
		BrightnessMode:  ModeCircadian,
		ColorTempMode:   ModeCircadian,
		SleepMode:       true,
		SleepBrightness: 5,
		SleepColorTemp:  2000,
	}

	for _, p := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		f := Compute(timeAtProgress(p), testSunrise, testSunset, 45.0)
		target := Values(f, settings)
		assert.Equal(t, 5, target.BrightnessPct, "p=%v", p)
		assert.Equal(t, 2000, target.ColorTempKelvin, "p=%v", p)
	}
}
