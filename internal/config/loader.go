// Package config loads the daemon configuration: process-level settings
// from the environment and room definitions from a YAML file.
package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Adaptation modes for brightness and color temperature.
const (
	ModeCircadian = "circadian"
	ModeSolar     = "solar"
	ModeTimeBased = "time_based"
)

// Defaults applied to room fields left unset in the YAML file.
const (
	DefaultApplyDelayMs        = 500
	DefaultMinBrightness       = 20
	DefaultMaxBrightness       = 100
	DefaultMinColorTemp        = 2200
	DefaultMaxColorTemp        = 5500
	DefaultTransitionSeconds   = 3
	DefaultUpdateIntervalSecs  = 60
	DefaultSleepBrightness     = 5
	DefaultSleepColorTemp      = 2000
	DefaultOverrideTimeoutMins = 30
)

// RoomConfig describes one adaptive lighting room.
type RoomConfig struct {
	Name            string   `yaml:"name"`
	Lights          []string `yaml:"lights"`
	TriggerEntities []string `yaml:"trigger_entities"`
	EnableEntity    string   `yaml:"enable_entity"`
	SyncGroup       string   `yaml:"sync_group"`

	ApplyDelayMs      int   `yaml:"apply_delay_ms"`
	InstantTransition *bool `yaml:"instant_transition"`

	MinBrightness  int    `yaml:"min_brightness"`
	MaxBrightness  int    `yaml:"max_brightness"`
	BrightnessMode string `yaml:"brightness_mode"`

	MinColorTemp  int    `yaml:"min_color_temp"`
	MaxColorTemp  int    `yaml:"max_color_temp"`
	ColorTempMode string `yaml:"color_temp_mode"`

	TransitionSeconds     int `yaml:"transition"`
	UpdateIntervalSeconds int `yaml:"update_interval"`

	SleepBrightness int `yaml:"sleep_brightness"`
	SleepColorTemp  int `yaml:"sleep_color_temp"`

	SunriseOffsetMinutes int `yaml:"sunrise_offset"`
	SunsetOffsetMinutes  int `yaml:"sunset_offset"`

	DetectOverride         *bool `yaml:"detect_manual_override"`
	OverrideTimeoutMinutes int   `yaml:"manual_override_timeout"`
}

// InstantTransitionEnabled reports the instant-transition flag, true when unset.
func (r *RoomConfig) InstantTransitionEnabled() bool {
	return r.InstantTransition == nil || *r.InstantTransition
}

// DetectOverrideEnabled reports the override-detection flag, true when unset.
func (r *RoomConfig) DetectOverrideEnabled() bool {
	return r.DetectOverride == nil || *r.DetectOverride
}

// Config is the parsed rooms file.
type Config struct {
	// Coordinates for the local sunrise/sunset fallback. Zero values mean
	// "not configured" and the fixed fallback window is used instead.
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`

	Rooms []RoomConfig `yaml:"rooms"`
}

// Loader reads and validates the rooms file.
type Loader struct {
	path   string
	logger *zap.Logger
}

// NewLoader creates a configuration loader for the given rooms file.
func NewLoader(path string, logger *zap.Logger) *Loader {
	return &Loader{
		path:   path,
		logger: logger.Named("config"),
	}
}

// Load reads the rooms file, applies defaults and validates each room.
func (l *Loader) Load() (*Config, error) {
	l.logger.Debug("Loading rooms config", zap.String("path", l.path))

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rooms config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rooms config: %w", err)
	}

	for i := range cfg.Rooms {
		applyDefaults(&cfg.Rooms[i])
		if err := validateRoom(&cfg.Rooms[i]); err != nil {
			return nil, fmt.Errorf("room %q: %w", cfg.Rooms[i].Name, err)
		}
	}

	l.logger.Info("Rooms config loaded",
		zap.Int("rooms", len(cfg.Rooms)))

	return &cfg, nil
}

func applyDefaults(room *RoomConfig) {
	if room.ApplyDelayMs == 0 {
		room.ApplyDelayMs = DefaultApplyDelayMs
	}
	if room.MinBrightness == 0 {
		room.MinBrightness = DefaultMinBrightness
	}
	if room.MaxBrightness == 0 {
		room.MaxBrightness = DefaultMaxBrightness
	}
	if room.MinColorTemp == 0 {
		room.MinColorTemp = DefaultMinColorTemp
	}
	if room.MaxColorTemp == 0 {
		room.MaxColorTemp = DefaultMaxColorTemp
	}
	if room.BrightnessMode == "" {
		room.BrightnessMode = ModeCircadian
	}
	if room.ColorTempMode == "" {
		room.ColorTempMode = ModeCircadian
	}
	if room.TransitionSeconds == 0 {
		room.TransitionSeconds = DefaultTransitionSeconds
	}
	if room.UpdateIntervalSeconds == 0 {
		room.UpdateIntervalSeconds = DefaultUpdateIntervalSecs
	}
	if room.SleepBrightness == 0 {
		room.SleepBrightness = DefaultSleepBrightness
	}
	if room.SleepColorTemp == 0 {
		room.SleepColorTemp = DefaultSleepColorTemp
	}
	if room.OverrideTimeoutMinutes == 0 {
		room.OverrideTimeoutMinutes = DefaultOverrideTimeoutMins
	}
}

// validateRoom enforces the ordering invariants before controllers are
// built; the control core itself does not re-check them.
func validateRoom(room *RoomConfig) error {
	if room.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(room.Lights) == 0 {
		return fmt.Errorf("at least one light is required")
	}
	if room.MinBrightness > room.MaxBrightness {
		return fmt.Errorf("min_brightness %d exceeds max_brightness %d",
			room.MinBrightness, room.MaxBrightness)
	}
	if room.MinColorTemp > room.MaxColorTemp {
		return fmt.Errorf("min_color_temp %d exceeds max_color_temp %d",
			room.MinColorTemp, room.MaxColorTemp)
	}
	if !validMode(room.BrightnessMode) {
		return fmt.Errorf("invalid brightness_mode %q", room.BrightnessMode)
	}
	if !validMode(room.ColorTempMode) {
		return fmt.Errorf("invalid color_temp_mode %q", room.ColorTempMode)
	}
	return nil
}

func validMode(mode string) bool {
	switch mode {
	case ModeCircadian, ModeSolar, ModeTimeBased:
		return true
	default:
		return false
	}
}
