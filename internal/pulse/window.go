// Package pulse holds the heartbeat analysis core: a bounded window of ADC
// samples and the peak-detection and rate-estimation passes that run over it.
package pulse

import (
	"math"
	"sync"

	"github.com/orangelab/pulsemon/internal/protocol"
)

// MaxWindowCapacity caps the sample window regardless of the configured
// duration and sampling rate.
const MaxWindowCapacity = 200000

// Window is a fixed-capacity FIFO ring of timestamped raw ADC codes. It owns
// the eviction policy and the raw-code to voltage conversion. All methods are
// safe for concurrent use; samples arrive from the transport goroutine while
// the analyzer snapshots from its own.
type Window struct {
	mu       sync.Mutex
	buf      []protocol.Sample
	head     int
	size     int
	duration float64
	bits     int
	vref     float64
}

// NewWindow creates a window sized for duration seconds at samplingRate Hz,
// converting codes as bits-wide readings against vref volts.
func NewWindow(duration, samplingRate float64, bits int, vref float64) *Window {
	w := &Window{bits: bits, vref: vref}
	w.resize(duration, samplingRate)
	return w
}

func windowCapacity(duration, samplingRate float64) int {
	c := int(duration * samplingRate)
	if c < 1 {
		c = 1
	}
	if c > MaxWindowCapacity {
		c = MaxWindowCapacity
	}
	return c
}

// resize recomputes capacity and discards all held samples. Callers hold mu
// or have exclusive access.
func (w *Window) resize(duration, samplingRate float64) {
	w.duration = duration
	w.buf = make([]protocol.Sample, windowCapacity(duration, samplingRate))
	w.head = 0
	w.size = 0
}

// Push appends a sample, evicting the oldest when full.
func (w *Window) Push(s protocol.Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size < len(w.buf) {
		w.buf[(w.head+w.size)%len(w.buf)] = s
		w.size++
		return
	}
	w.buf[w.head] = s
	w.head = (w.head + 1) % len(w.buf)
}

// Reconfigure recomputes the capacity for a new duration and sampling rate.
// The resize is destructive: held samples are discarded, not resampled, and
// a concurrent Tick sees either the old window or an empty new one.
func (w *Window) Reconfigure(duration, samplingRate float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resize(duration, samplingRate)
}

// SetConversion updates the ADC bit depth and reference voltage without
// touching held samples.
func (w *Window) SetConversion(bits int, vref float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bits = bits
	w.vref = vref
}

// Clear drops all held samples.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.head = 0
	w.size = 0
}

// Len reports the number of held samples.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Snapshot returns the held samples no older than the configured duration
// before the newest one, as (relative time, voltage) pairs with relative
// time measured from the start of the duration span. Both slices are empty
// when the window is.
func (w *Window) Snapshot() (rel []float64, volts []float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size == 0 {
		return nil, nil
	}
	latest := w.buf[(w.head+w.size-1)%len(w.buf)].Timestamp
	start := latest - w.duration
	for i := 0; i < w.size; i++ {
		s := w.buf[(w.head+i)%len(w.buf)]
		if s.Timestamp < start {
			continue
		}
		rel = append(rel, s.Timestamp-start)
		volts = append(volts, w.voltage(s.Raw))
	}
	return rel, volts
}

// Each calls fn for every held sample in order, oldest first, with the
// derived voltage. It backs read-only export of the active window.
func (w *Window) Each(fn func(timestamp float64, raw uint32, voltage float64)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < w.size; i++ {
		s := w.buf[(w.head+i)%len(w.buf)]
		fn(s.Timestamp, s.Raw, w.voltage(s.Raw))
	}
}

func (w *Window) voltage(raw uint32) float64 {
	maxCode := math.Pow(2, float64(w.bits)) - 1
	if maxCode <= 0 {
		return 0
	}
	return float64(raw) / maxCode * w.vref
}
