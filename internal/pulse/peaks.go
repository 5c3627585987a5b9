package pulse

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PeakConfig tunes the beat-peak scan. It is passed explicitly into every
// DetectPeaks call so the detector stays pure and independently testable.
type PeakConfig struct {
	// ThresholdRatio positions the adaptive threshold between the window
	// mean and maximum, in (0,1). With no filtering ahead of the detector a
	// larger value rejects more noise.
	ThresholdRatio float64
	// MinIntervalSeconds is the shortest accepted spacing between peaks.
	MinIntervalSeconds float64
	// ReferenceVoltage guards the threshold floor against a near-zero
	// dynamic range.
	ReferenceVoltage float64
}

// DetectPeaks returns the indices of beat peaks in values, a contiguous
// voltage slice sampled at samplingRate Hz.
//
// A single left-to-right pass accepts index i when values[i] clears the
// adaptive threshold, is strictly above its left neighbour, at least its
// right neighbour (a tie on the right counts, a tie on the left does not),
// and sits min-spacing samples past the previously accepted peak. There is
// no multi-pass refinement or retrospective merging.
func DetectPeaks(values []float64, samplingRate float64, cfg PeakConfig) []int {
	n := len(values)
	if n < 3 || samplingRate <= 0 {
		return nil
	}

	minSpacing := int(math.Round(cfg.MinIntervalSeconds * samplingRate))
	if minSpacing < 1 {
		minSpacing = 1
	}

	vmin := floats.Min(values)
	vmax := floats.Max(values)
	if vmax-vmin <= 1e-9 {
		return nil // flat signal
	}
	vmean := stat.Mean(values, nil)

	threshold := vmean + cfg.ThresholdRatio*(vmax-vmean)
	ref := cfg.ReferenceVoltage
	if ref == 0 {
		ref = 1
	}
	if floor := 0.005 * ref; threshold-vmin < floor {
		threshold = vmin + floor
	}

	var peaks []int
	last := -minSpacing * 2
	for i := 1; i < n-1; i++ {
		v := values[i]
		if v <= threshold {
			continue
		}
		if v > values[i-1] && v >= values[i+1] && i-last >= minSpacing {
			peaks = append(peaks, i)
			last = i
		}
	}
	return peaks
}
