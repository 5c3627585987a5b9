package pulse

import (
	"math"
	"testing"

	"github.com/orangelab/pulsemon/internal/config"
	"github.com/orangelab/pulsemon/internal/protocol"
)

func testStore(t *testing.T, rateHz int) *config.Store {
	t.Helper()
	return config.NewStore(&config.Config{SamplingRateHz: &rateHz})
}

func TestAnalyzerTickEmptyWindow(t *testing.T) {
	store := testStore(t, 100)
	w := NewWindow(5.0, 100, 8, 5.0)
	a := NewAnalyzer(w, store.Current)

	res := a.Tick()
	if len(res.Voltages) != 0 || res.Rate != nil || res.PeakToPeak != 0 {
		t.Errorf("empty window tick = %+v, want zero result", res)
	}
}

// A spike every 50 samples at 100 Hz is a 120 BPM beat.
func TestAnalyzerTickSpikeTrain(t *testing.T) {
	store := testStore(t, 100)
	w := NewWindow(5.0, 100, 8, 5.0)
	a := NewAnalyzer(w, store.Current)

	const baseline = 40
	for i := 0; i < 500; i++ {
		raw := uint32(baseline)
		if i%50 == 25 {
			raw = 255
		}
		w.Push(protocol.Sample{Timestamp: float64(i) / 100.0, Raw: raw})
	}

	res := a.Tick()
	if len(res.Voltages) != 500 {
		t.Fatalf("snapshot held %d samples, want 500", len(res.Voltages))
	}
	if got := len(res.PeakIndices); got != 10 {
		t.Fatalf("found %d peaks, want 10: %v", got, res.PeakIndices)
	}
	if res.Rate == nil {
		t.Fatal("expected a rate estimate")
	}
	if res.Rate.BPM != 120 {
		t.Errorf("BPM = %d, want 120", res.Rate.BPM)
	}
	if math.Abs(res.MeanPeriodSeconds-0.5) > 1e-9 {
		t.Errorf("mean period = %f, want 0.5", res.MeanPeriodSeconds)
	}
	wantP2P := 5.0 - float64(baseline)/255.0*5.0
	if math.Abs(res.PeakToPeak-wantP2P) > 1e-9 {
		t.Errorf("peak to peak = %f, want %f", res.PeakToPeak, wantP2P)
	}
}

// Tuning changes apply on the next tick without rebuilding the analyzer.
func TestAnalyzerPicksUpSettingsChanges(t *testing.T) {
	store := testStore(t, 100)
	w := NewWindow(5.0, 100, 8, 5.0)
	a := NewAnalyzer(w, store.Current)

	for i := 0; i < 500; i++ {
		raw := uint32(40)
		if i%50 == 25 {
			raw = 255
		}
		w.Push(protocol.Sample{Timestamp: float64(i) / 100.0, Raw: raw})
	}
	if res := a.Tick(); len(res.PeakIndices) != 10 {
		t.Fatalf("baseline peaks = %d, want 10", len(res.PeakIndices))
	}

	// A minimum interval above the actual beat period suppresses every
	// second peak.
	wide := 0.9
	if _, _, err := store.Apply(&config.Config{MinPeakIntervalSeconds: &wide}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res := a.Tick(); len(res.PeakIndices) != 5 {
		t.Errorf("peaks after widening min interval = %d, want 5", len(res.PeakIndices))
	}
}
