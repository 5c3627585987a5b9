// Package config defines the runtime tuning surface of the monitor. The
// schema matches the /api/config endpoint so the same JSON works both as a
// startup file and as a runtime PATCH body; fields left out of a document
// keep their current (or default) values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Defaults mirror the acquisition front end's reference configuration.
const (
	DefaultSamplingRateHz     = 120
	DefaultWindowSeconds      = 5.0
	DefaultADCBits            = 8
	DefaultReferenceVoltage   = 5.0
	DefaultThresholdRatio     = 0.45
	DefaultMinPeakIntervalSec = 0.45
)

// Config is the partial-update document. Nil fields mean "leave unchanged".
type Config struct {
	SamplingRateHz         *int     `json:"sampling_rate_hz,omitempty"`
	WindowSeconds          *float64 `json:"window_seconds,omitempty"`
	ADCBits                *int     `json:"adc_bits,omitempty"`
	ReferenceVoltage       *float64 `json:"reference_voltage,omitempty"`
	ThresholdRatio         *float64 `json:"threshold_ratio,omitempty"`
	MinPeakIntervalSeconds *float64 `json:"min_peak_interval_seconds,omitempty"`
}

// Validate checks every set field against its allowed range.
func (c *Config) Validate() error {
	if c.SamplingRateHz != nil && *c.SamplingRateHz < 1 {
		return fmt.Errorf("sampling_rate_hz must be >= 1, got %d", *c.SamplingRateHz)
	}
	if c.WindowSeconds != nil && *c.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be positive, got %f", *c.WindowSeconds)
	}
	if c.ADCBits != nil && (*c.ADCBits < 1 || *c.ADCBits > 32) {
		return fmt.Errorf("adc_bits must be between 1 and 32, got %d", *c.ADCBits)
	}
	if c.ReferenceVoltage != nil && (*c.ReferenceVoltage < 0.1 || *c.ReferenceVoltage > 10.0) {
		return fmt.Errorf("reference_voltage must be between 0.1 and 10.0, got %f", *c.ReferenceVoltage)
	}
	if c.ThresholdRatio != nil && (*c.ThresholdRatio <= 0 || *c.ThresholdRatio >= 1) {
		return fmt.Errorf("threshold_ratio must be in (0,1), got %f", *c.ThresholdRatio)
	}
	if c.MinPeakIntervalSeconds != nil && *c.MinPeakIntervalSeconds <= 0 {
		return fmt.Errorf("min_peak_interval_seconds must be positive, got %f", *c.MinPeakIntervalSeconds)
	}
	return nil
}

// Load reads and validates a Config from a JSON file. Partial documents are
// safe: absent fields fall back to defaults when resolved.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Settings are fully resolved tuning values.
type Settings struct {
	SamplingRateHz         int     `json:"sampling_rate_hz"`
	WindowSeconds          float64 `json:"window_seconds"`
	ADCBits                int     `json:"adc_bits"`
	ReferenceVoltage       float64 `json:"reference_voltage"`
	ThresholdRatio         float64 `json:"threshold_ratio"`
	MinPeakIntervalSeconds float64 `json:"min_peak_interval_seconds"`
}

// DefaultSettings returns the reference configuration.
func DefaultSettings() Settings {
	return Settings{
		SamplingRateHz:         DefaultSamplingRateHz,
		WindowSeconds:          DefaultWindowSeconds,
		ADCBits:                DefaultADCBits,
		ReferenceVoltage:       DefaultReferenceVoltage,
		ThresholdRatio:         DefaultThresholdRatio,
		MinPeakIntervalSeconds: DefaultMinPeakIntervalSec,
	}
}

// Resolve applies the document's set fields on top of base.
func (c *Config) Resolve(base Settings) Settings {
	if c == nil {
		return base
	}
	if c.SamplingRateHz != nil {
		base.SamplingRateHz = *c.SamplingRateHz
	}
	if c.WindowSeconds != nil {
		base.WindowSeconds = *c.WindowSeconds
	}
	if c.ADCBits != nil {
		base.ADCBits = *c.ADCBits
	}
	if c.ReferenceVoltage != nil {
		base.ReferenceVoltage = *c.ReferenceVoltage
	}
	if c.ThresholdRatio != nil {
		base.ThresholdRatio = *c.ThresholdRatio
	}
	if c.MinPeakIntervalSeconds != nil {
		base.MinPeakIntervalSeconds = *c.MinPeakIntervalSeconds
	}
	return base
}

// Document converts resolved settings back to the partial-update form, for
// persisting the full current state.
func (s Settings) Document() *Config {
	rate, win, bits := s.SamplingRateHz, s.WindowSeconds, s.ADCBits
	vref, ratio, minIv := s.ReferenceVoltage, s.ThresholdRatio, s.MinPeakIntervalSeconds
	return &Config{
		SamplingRateHz:         &rate,
		WindowSeconds:          &win,
		ADCBits:                &bits,
		ReferenceVoltage:       &vref,
		ThresholdRatio:         &ratio,
		MinPeakIntervalSeconds: &minIv,
	}
}

// Store holds the process-wide current settings. Every analysis pass reads
// from it; the API mutates it.
type Store struct {
	mu sync.RWMutex
	s  Settings
}

// NewStore creates a Store seeded from defaults overlaid with initial (which
// may be nil).
func NewStore(initial *Config) *Store {
	return &Store{s: initial.Resolve(DefaultSettings())}
}

// Current returns the resolved settings.
func (st *Store) Current() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// Apply validates patch and merges its set fields. windowChanged reports
// whether the sampling rate or window duration moved, the only changes that
// require the sample window to be rebuilt.
func (st *Store) Apply(patch *Config) (s Settings, windowChanged bool, err error) {
	if patch == nil {
		return st.Current(), false, nil
	}
	if err := patch.Validate(); err != nil {
		return st.Current(), false, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.s
	st.s = patch.Resolve(prev)
	windowChanged = st.s.SamplingRateHz != prev.SamplingRateHz ||
		st.s.WindowSeconds != prev.WindowSeconds
	return st.s, windowChanged, nil
}
