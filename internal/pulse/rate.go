package pulse

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Physiological plausibility band; rates outside it are treated as noise
// and not reported.
const (
	MinPlausibleBPM = 30
	MaxPlausibleBPM = 220
)

// Rate is a validated heart-rate estimate.
type Rate struct {
	BPM               int     `json:"bpm"`
	MeanPeriodSeconds float64 `json:"mean_period_seconds"`
}

// EstimateRate derives a rate from detected peak indices and the relative
// timestamps of the slice they index. It reports ok=false when fewer than
// two peaks exist, when every interval is rejected as an outlier, or when
// the resulting rate falls outside the plausibility band.
//
// Outliers are rejected in a single pass against the unfiltered mean: only
// intervals within [0.5·avg, 1.5·avg] survive. This mirrors the acquisition
// front end's reference behaviour and is deliberately not a median filter.
func EstimateRate(peakIndices []int, relTimes []float64) (Rate, bool) {
	intervals := peakIntervals(peakIndices, relTimes)
	if len(intervals) == 0 {
		return Rate{}, false
	}

	avg := stat.Mean(intervals, nil)
	filtered := intervals[:0]
	for _, it := range intervals {
		if it >= 0.5*avg && it <= 1.5*avg {
			filtered = append(filtered, it)
		}
	}
	if len(filtered) == 0 {
		return Rate{}, false
	}

	period := stat.Mean(filtered, nil)
	if period <= 0 {
		return Rate{}, false
	}

	bpm := 60.0 / period
	if bpm < MinPlausibleBPM || bpm > MaxPlausibleBPM {
		return Rate{}, false
	}
	return Rate{BPM: int(math.Round(bpm)), MeanPeriodSeconds: period}, true
}

// MeanInterval is the unfiltered mean inter-peak interval, the value shown
// as the waveform period alongside the gated BPM.
func MeanInterval(peakIndices []int, relTimes []float64) (float64, bool) {
	intervals := peakIntervals(peakIndices, relTimes)
	if len(intervals) == 0 {
		return 0, false
	}
	return stat.Mean(intervals, nil), true
}

func peakIntervals(peakIndices []int, relTimes []float64) []float64 {
	if len(peakIndices) < 2 {
		return nil
	}
	intervals := make([]float64, 0, len(peakIndices)-1)
	for i := 1; i < len(peakIndices); i++ {
		intervals = append(intervals, relTimes[peakIndices[i]]-relTimes[peakIndices[i-1]])
	}
	return intervals
}
