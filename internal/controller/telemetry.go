package controller

import (
	"math"

	"adaptivelighting/internal/lights"
	"adaptivelighting/internal/sun"
)

// SyncGroupInfo is the read-only view of a room's sync group membership.
type SyncGroupInfo struct {
	Name        string   `json:"name"`
	IsLeader    bool     `json:"is_leader"`
	Leader      string   `json:"leader"`
	Members     []string `json:"members"`
	MemberCount int      `json:"member_count"`
}

// Telemetry is a read-only snapshot of the room's momentary state.
type Telemetry struct {
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	Enabled         bool    `json:"enabled"`
	SleepMode       bool    `json:"sleep_mode"`
	ManualOverride  bool    `json:"manual_override"`
	AdaptBrightness bool    `json:"adapt_brightness"`
	AdaptColorTemp  bool    `json:"adapt_color_temp"`
	BrightnessPct   int     `json:"brightness"`
	ColorTempKelvin int     `json:"color_temp_kelvin"`
	ColorTempMireds int     `json:"color_temp_mireds"`
	CircadianFactor float64 `json:"circadian_factor"`
	DayProgress     float64 `json:"day_progress"`
	SunElevation    float64 `json:"sun_elevation"`
	SolarPosition   string  `json:"solar_position"`

	MinBrightness   int `json:"min_brightness"`
	MaxBrightness   int `json:"max_brightness"`
	MinColorTemp    int `json:"min_color_temp"`
	MaxColorTemp    int `json:"max_color_temp"`
	Transition      int `json:"transition"`
	SleepBrightness int `json:"sleep_brightness"`
	SleepColorTemp  int `json:"sleep_color_temp"`

	SyncGroup *SyncGroupInfo `json:"sync_group,omitempty"`
}

// Telemetry captures the current snapshot.
func (c *Controller) Telemetry() Telemetry {
	enabled := c.Enabled()
	overridden := c.ManualOverrideActive()

	c.mu.Lock()
	t := Telemetry{
		Name:            c.name,
		Enabled:         enabled,
		SleepMode:       c.sleepMode,
		ManualOverride:  overridden,
		AdaptBrightness: c.adaptBrightness,
		AdaptColorTemp:  c.adaptColorTemp,
		BrightnessPct:   c.currentBrightness,
		ColorTempKelvin: c.currentColorTemp,
		ColorTempMireds: lights.KelvinToMireds(c.currentColorTemp),
		CircadianFactor: round1(c.circadianFactor * 100),
		DayProgress:     round1(c.dayProgress),
		SunElevation:    round1(c.sunElevation),
		SolarPosition:   sun.PositionLabel(c.sunElevation),
		MinBrightness:   c.cfg.MinBrightness,
		MaxBrightness:   c.cfg.MaxBrightness,
		MinColorTemp:    c.cfg.MinColorTemp,
		MaxColorTemp:    c.cfg.MaxColorTemp,
		Transition:      c.cfg.TransitionSeconds,
		SleepBrightness: c.cfg.SleepBrightness,
		SleepColorTemp:  c.cfg.SleepColorTemp,
	}
	group := c.cfg.SyncGroup
	sleepMode := c.sleepMode
	adaptB := c.adaptBrightness
	adaptCT := c.adaptColorTemp
	c.mu.Unlock()

	t.Status = statusLabel(enabled, overridden, sleepMode, adaptB, adaptCT)

	if group != "" {
		leader, _ := c.groups.Leader(group)
		t.SyncGroup = &SyncGroupInfo{
			Name:        group,
			IsLeader:    leader == c.name,
			Leader:      leader,
			Members:     c.groups.Members(group),
			MemberCount: c.groups.MemberCount(group),
		}
	}

	return t
}

// statusLabel summarizes the controller mode for display.
func statusLabel(enabled, overridden, sleepMode, adaptBrightness, adaptColorTemp bool) string {
	switch {
	case !enabled:
		return "Disabled"
	case overridden:
		return "Manual Override"
	case sleepMode:
		return "Sleep Mode"
	case adaptBrightness && adaptColorTemp:
		return "Active"
	case adaptBrightness:
		return "Brightness Only"
	case adaptColorTemp:
		return "Color Temp Only"
	default:
		return "Paused"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
