package pulse

import (
	"gonum.org/v1/gonum/floats"

	"github.com/orangelab/pulsemon/internal/config"
)

// TickResult is the output of one evaluation cycle, recomputed in full on
// every tick; nothing incremental is kept between ticks beyond what the
// window already holds.
type TickResult struct {
	RelativeTimes []float64 `json:"relative_times"`
	Voltages      []float64 `json:"voltages"`
	PeakIndices   []int     `json:"peak_indices"`
	// Rate is nil when the signal is insufficient or implausible; that is a
	// designed "no answer", not an error.
	Rate *Rate `json:"rate,omitempty"`
	// MeanPeriodSeconds is the unfiltered mean inter-peak interval, the
	// displayed waveform period. Zero when fewer than two peaks exist.
	MeanPeriodSeconds float64 `json:"mean_period_seconds,omitempty"`
	PeakToPeak        float64 `json:"peak_to_peak"`
}

// Analyzer runs one evaluation cycle over a window: snapshot, peak scan,
// rate estimate. It is stateless beyond the references it holds.
type Analyzer struct {
	window   *Window
	settings func() config.Settings
}

// NewAnalyzer wires an analyzer to its window and settings source. Settings
// are re-read on every tick so runtime tuning changes take effect at the
// next cycle.
func NewAnalyzer(w *Window, settings func() config.Settings) *Analyzer {
	return &Analyzer{window: w, settings: settings}
}

// Tick performs one evaluation cycle. An empty window yields a zero result.
func (a *Analyzer) Tick() TickResult {
	rel, volts := a.window.Snapshot()
	if len(volts) == 0 {
		return TickResult{}
	}

	s := a.settings()
	peaks := DetectPeaks(volts, float64(s.SamplingRateHz), PeakConfig{
		ThresholdRatio:     s.ThresholdRatio,
		MinIntervalSeconds: s.MinPeakIntervalSeconds,
		ReferenceVoltage:   s.ReferenceVoltage,
	})

	res := TickResult{
		RelativeTimes: rel,
		Voltages:      volts,
		PeakIndices:   peaks,
		PeakToPeak:    floats.Max(volts) - floats.Min(volts),
	}
	if period, ok := MeanInterval(peaks, rel); ok {
		res.MeanPeriodSeconds = period
	}
	if rate, ok := EstimateRate(peaks, rel); ok {
		res.Rate = &rate
	}
	return res
}
