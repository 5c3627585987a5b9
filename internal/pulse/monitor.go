package pulse

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/orangelab/pulsemon/internal/config"
	"github.com/orangelab/pulsemon/internal/monitoring"
	"github.com/orangelab/pulsemon/internal/protocol"
	"github.com/orangelab/pulsemon/internal/timeutil"
)

// TickInterval is the nominal cadence of the evaluation loop.
const TickInterval = 50 * time.Millisecond

// rawTailLines bounds the retained raw-chunk previews.
const rawTailLines = 400

// rawPreviewChars truncates each preview line.
const rawPreviewChars = 200

// Monitor owns the decode → window → analyze pipeline. Transport chunks
// arrive via HandleChunk on the transport's goroutine while Run ticks the
// analyzer on its own cadence; the pieces they share are individually
// locked, so neither driver blocks the other for longer than one operation.
type Monitor struct {
	decoder  *protocol.Decoder
	window   *Window
	analyzer *Analyzer
	store    *config.Store
	clock    timeutil.Clock
	unframed bool

	mu          sync.Mutex
	last        TickResult
	rawTail     []string
	sampleTimes []float64
}

// NewMonitor builds the pipeline for the given settings store. When unframed
// is true the transport delivers bare ADC bytes (one byte per sample)
// instead of CRC-protected frames. A nil clock defaults to the real one.
func NewMonitor(store *config.Store, clock timeutil.Clock, unframed bool) *Monitor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	s := store.Current()
	w := NewWindow(s.WindowSeconds, float64(s.SamplingRateHz), s.ADCBits, s.ReferenceVoltage)
	return &Monitor{
		decoder:  protocol.NewDecoder(clock),
		window:   w,
		analyzer: NewAnalyzer(w, store.Current),
		store:    store,
		clock:    clock,
		unframed: unframed,
	}
}

// HandleChunk ingests one transport chunk: records a raw preview, decodes,
// and pushes the recovered samples into the window.
func (m *Monitor) HandleChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	m.recordRaw(chunk)

	rate := float64(m.store.Current().SamplingRateHz)
	var samples []protocol.Sample
	if m.unframed {
		samples = m.decoder.FeedRaw(chunk, rate)
	} else {
		res := m.decoder.Feed(chunk, rate)
		samples = res.Samples
		for _, f := range res.Frames {
			monitoring.Logf("ignoring frame type 0x%02X with %d byte payload", f.Type, len(f.Payload))
		}
	}
	for _, s := range samples {
		m.window.Push(s)
	}
	m.recordSampleTimes(samples)
}

// Run drives the evaluation loop until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			m.TickNow()
		}
	}
}

// TickNow runs one evaluation cycle immediately and records its result.
func (m *Monitor) TickNow() TickResult {
	res := m.analyzer.Tick()
	m.mu.Lock()
	m.last = res
	m.mu.Unlock()
	return res
}

// LastResult returns the most recent tick result.
func (m *Monitor) LastResult() TickResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Settings returns the current tuning values.
func (m *Monitor) Settings() config.Settings {
	return m.store.Current()
}

// ApplyConfig validates and applies a partial tuning update, rebuilding the
// sample window only when the duration or sampling rate changed. The rebuild
// is destructive by design: held samples are discarded, not resampled.
func (m *Monitor) ApplyConfig(patch *config.Config) (config.Settings, error) {
	s, windowChanged, err := m.store.Apply(patch)
	if err != nil {
		return s, err
	}
	if windowChanged {
		m.window.Reconfigure(s.WindowSeconds, float64(s.SamplingRateHz))
	}
	m.window.SetConversion(s.ADCBits, s.ReferenceVoltage)
	return s, nil
}

// Clear drops the window, the raw tail, and the rate meter.
func (m *Monitor) Clear() {
	m.window.Clear()
	m.decoder.Reset()
	m.mu.Lock()
	m.last = TickResult{}
	m.rawTail = nil
	m.sampleTimes = nil
	m.mu.Unlock()
}

// EachSample iterates the buffered (timestamp, raw code, voltage) triples
// oldest first. This is the read-only view behind export.
func (m *Monitor) EachSample(fn func(timestamp float64, raw uint32, voltage float64)) {
	m.window.Each(fn)
}

// WindowLen reports how many samples the window currently holds.
func (m *Monitor) WindowLen() int {
	return m.window.Len()
}

// RawTail returns the retained raw-chunk previews, oldest first.
func (m *Monitor) RawTail() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.rawTail))
	copy(out, m.rawTail)
	return out
}

// SampleRate estimates the live ingest rate as the number of sample
// timestamps within the trailing second.
func (m *Monitor) SampleRate() float64 {
	now := float64(m.clock.Now().UnixNano()) / 1e9
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneSampleTimes(now - 1.0)
	return float64(len(m.sampleTimes))
}

func (m *Monitor) recordRaw(chunk []byte) {
	var b strings.Builder
	for i, x := range chunk {
		if b.Len() >= rawPreviewChars {
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", x)
	}
	preview := b.String()
	if len(preview) > rawPreviewChars {
		preview = preview[:rawPreviewChars]
	}

	m.mu.Lock()
	m.rawTail = append(m.rawTail, preview)
	if len(m.rawTail) > rawTailLines {
		m.rawTail = m.rawTail[len(m.rawTail)-rawTailLines:]
	}
	m.mu.Unlock()
}

func (m *Monitor) recordSampleTimes(samples []protocol.Sample) {
	if len(samples) == 0 {
		return
	}
	now := float64(m.clock.Now().UnixNano()) / 1e9
	m.mu.Lock()
	for _, s := range samples {
		m.sampleTimes = append(m.sampleTimes, s.Timestamp)
	}
	m.pruneSampleTimes(now - 1.0)
	m.mu.Unlock()
}

// pruneSampleTimes drops timestamps before cutoff. Callers hold mu.
func (m *Monitor) pruneSampleTimes(cutoff float64) {
	i := 0
	for i < len(m.sampleTimes) && m.sampleTimes[i] < cutoff {
		i++
	}
	if i > 0 {
		m.sampleTimes = append(m.sampleTimes[:0], m.sampleTimes[i:]...)
	}
}
