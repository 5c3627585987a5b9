package pulse

import (
	"math"
	"testing"
)

// evenPeaks builds peak indices and relative times with a constant
// inter-peak interval.
func evenPeaks(n int, interval float64) ([]int, []float64) {
	idx := make([]int, n)
	times := make([]float64, n)
	for i := range idx {
		idx[i] = i
		times[i] = float64(i) * interval
	}
	return idx, times
}

func TestEstimateRateSteadyBeat(t *testing.T) {
	idx, times := evenPeaks(6, 60.0/72.0)
	rate, ok := EstimateRate(idx, times)
	if !ok {
		t.Fatal("expected a rate from a steady beat")
	}
	if rate.BPM != 72 {
		t.Errorf("BPM = %d, want 72", rate.BPM)
	}
	if math.Abs(rate.MeanPeriodSeconds-60.0/72.0) > 1e-9 {
		t.Errorf("period = %f, want %f", rate.MeanPeriodSeconds, 60.0/72.0)
	}
}

func TestEstimateRateTooFewPeaks(t *testing.T) {
	if _, ok := EstimateRate(nil, nil); ok {
		t.Error("no peaks should not yield a rate")
	}
	if _, ok := EstimateRate([]int{3}, []float64{0, 0, 0, 1.5}); ok {
		t.Error("a single peak should not yield a rate")
	}
}

func TestEstimateRateImplausiblySlow(t *testing.T) {
	idx, times := evenPeaks(4, 2.4) // 25 BPM
	if _, ok := EstimateRate(idx, times); ok {
		t.Error("25 BPM should be gated as implausible")
	}
}

func TestEstimateRateImplausiblyFast(t *testing.T) {
	idx, times := evenPeaks(4, 0.2) // 300 BPM
	if _, ok := EstimateRate(idx, times); ok {
		t.Error("300 BPM should be gated as implausible")
	}
}

// One long dropout interval is rejected against the unfiltered mean and
// the rate comes from the surviving beats.
func TestEstimateRateRejectsOutlierInterval(t *testing.T) {
	times := []float64{0, 0.8, 1.6, 2.4, 4.4} // intervals 0.8 x3 then 2.0
	idx := []int{0, 1, 2, 3, 4}
	rate, ok := EstimateRate(idx, times)
	if !ok {
		t.Fatal("expected a rate despite the dropout")
	}
	if rate.BPM != 75 {
		t.Errorf("BPM = %d, want 75", rate.BPM)
	}
}

func TestEstimateRateAllIntervalsRejected(t *testing.T) {
	// avg = 1.55; neither 0.1 nor 3.0 lands inside [0.775, 2.325].
	times := []float64{0, 0.1, 3.1}
	idx := []int{0, 1, 2}
	if _, ok := EstimateRate(idx, times); ok {
		t.Error("mutually exclusive intervals should not yield a rate")
	}
}

func TestMeanIntervalUnfiltered(t *testing.T) {
	times := []float64{0, 0.8, 1.6, 2.4, 4.4}
	idx := []int{0, 1, 2, 3, 4}
	mean, ok := MeanInterval(idx, times)
	if !ok {
		t.Fatal("expected an interval")
	}
	if math.Abs(mean-1.1) > 1e-9 {
		t.Errorf("mean interval = %f, want 1.1", mean)
	}

	if _, ok := MeanInterval([]int{0}, []float64{0}); ok {
		t.Error("one peak should not yield an interval")
	}
}
