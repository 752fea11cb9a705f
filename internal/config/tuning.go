package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for signal tuning
// parameters. All fields are optional; the Get* accessors supply defaults
// for anything omitted, so partial configs are safe.
type TuningConfig struct {
	// Timing params (seconds)
	MinGreen         *float64 `json:"min_green,omitempty"`
	MaxGreen         *float64 `json:"max_green,omitempty"`
	YellowDuration   *float64 `json:"yellow_duration,omitempty"`
	OverrideDuration *float64 `json:"override_duration,omitempty"`

	// Preemption params
	PreemptRatio   *float64 `json:"preempt_ratio,omitempty"`
	DirectOverride *bool    `json:"direct_override,omitempty"`

	// Density tracking params
	ApproachLength  *float64 `json:"approach_length,omitempty"` // metres
	HistoryCapacity *int     `json:"history_capacity,omitempty"`
	TrendWindow     *int     `json:"trend_window,omitempty"`

	// Conflict resolution params
	ConflictDistance *float64 `json:"conflict_distance,omitempty"` // distance units

	// Identity
	SignalID *string `json:"signal_id,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file
// size. Fields omitted from the JSON retain their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are coherent.
func (c *TuningConfig) Validate() error {
	if c.MinGreen != nil && *c.MinGreen <= 0 {
		return fmt.Errorf("min_green must be positive, got %f", *c.MinGreen)
	}
	if c.MaxGreen != nil {
		min := c.GetMinGreen()
		if *c.MaxGreen <= min {
			return fmt.Errorf("max_green (%f) must exceed min_green (%f)", *c.MaxGreen, min)
		}
	}
	if c.YellowDuration != nil && *c.YellowDuration <= 0 {
		return fmt.Errorf("yellow_duration must be positive, got %f", *c.YellowDuration)
	}
	if c.OverrideDuration != nil && *c.OverrideDuration <= 0 {
		return fmt.Errorf("override_duration must be positive, got %f", *c.OverrideDuration)
	}
	if c.PreemptRatio != nil && *c.PreemptRatio <= 1 {
		return fmt.Errorf("preempt_ratio must exceed 1, got %f", *c.PreemptRatio)
	}
	if c.ApproachLength != nil && *c.ApproachLength <= 0 {
		return fmt.Errorf("approach_length must be positive, got %f", *c.ApproachLength)
	}
	if c.HistoryCapacity != nil && *c.HistoryCapacity < 1 {
		return fmt.Errorf("history_capacity must be at least 1, got %d", *c.HistoryCapacity)
	}
	if c.TrendWindow != nil && *c.TrendWindow < 2 {
		return fmt.Errorf("trend_window must be at least 2, got %d", *c.TrendWindow)
	}
	if c.ConflictDistance != nil && *c.ConflictDistance <= 0 {
		return fmt.Errorf("conflict_distance must be positive, got %f", *c.ConflictDistance)
	}
	return nil
}

// GetMinGreen returns the min_green value or the default.
func (c *TuningConfig) GetMinGreen() float64 {
	if c.MinGreen == nil {
		return 15.0
	}
	return *c.MinGreen
}

// GetMaxGreen returns the max_green value or the default.
func (c *TuningConfig) GetMaxGreen() float64 {
	if c.MaxGreen == nil {
		return 90.0
	}
	return *c.MaxGreen
}

// GetYellowDuration returns the yellow_duration value or the default.
func (c *TuningConfig) GetYellowDuration() float64 {
	if c.YellowDuration == nil {
		return 3.0
	}
	return *c.YellowDuration
}

// GetOverrideDuration returns the override_duration value or the default.
func (c *TuningConfig) GetOverrideDuration() float64 {
	if c.OverrideDuration == nil {
		return 60.0
	}
	return *c.OverrideDuration
}

// GetPreemptRatio returns the preempt_ratio value or the default.
func (c *TuningConfig) GetPreemptRatio() float64 {
	if c.PreemptRatio == nil {
		return 1.5
	}
	return *c.PreemptRatio
}

// GetDirectOverride returns the direct_override value or the default.
func (c *TuningConfig) GetDirectOverride() bool {
	if c.DirectOverride == nil {
		return false // default: clear through yellow before granting
	}
	return *c.DirectOverride
}

// GetApproachLength returns the approach_length value or the default.
func (c *TuningConfig) GetApproachLength() float64 {
	if c.ApproachLength == nil {
		return 100.0
	}
	return *c.ApproachLength
}

// GetHistoryCapacity returns the history_capacity value or the default.
func (c *TuningConfig) GetHistoryCapacity() int {
	if c.HistoryCapacity == nil {
		return 50
	}
	return *c.HistoryCapacity
}

// GetTrendWindow returns the trend_window value or the default.
func (c *TuningConfig) GetTrendWindow() int {
	if c.TrendWindow == nil {
		return 10
	}
	return *c.TrendWindow
}

// GetConflictDistance returns the conflict_distance value or the default.
func (c *TuningConfig) GetConflictDistance() float64 {
	if c.ConflictDistance == nil {
		return 25.0
	}
	return *c.ConflictDistance
}

// GetSignalID returns the signal_id value or the default.
func (c *TuningConfig) GetSignalID() string {
	if c.SignalID == nil || *c.SignalID == "" {
		return "center"
	}
	return *c.SignalID
}
