package serialmux

import (
	"io"
	"math"
	"time"

	"github.com/orangelab/pulsemon/internal/monitoring"
	"github.com/orangelab/pulsemon/internal/protocol"
)

// MockSerialPort implements SerialPorter over an in-process pipe, standing
// in for the analog front end in dev mode.
type MockSerialPort struct {
	io.Reader
	w io.Closer
}

func (m *MockSerialPort) Write(p []byte) (int, error) { return len(p), nil }

func (m *MockSerialPort) Close() error { return m.w.Close() }

// NewMockSerialMux creates a SerialMux backed by a synthetic front end that
// emits valid Type 0x01 frames carrying a pulse-like waveform: a flat
// baseline with one sharp beat per cycle at the requested rate. Useful for
// exercising the full decode and analysis path without hardware.
func NewMockSerialMux(samplingRate int, bpm float64) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()

	go func() {
		defer w.Close()

		const frameInterval = 100 * time.Millisecond
		perFrame := samplingRate / 10
		if perFrame < 1 {
			perFrame = 1
		}
		beatPeriod := 60.0 / bpm

		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		var sampleID uint16
		var t float64
		dt := 1.0 / float64(samplingRate)
		for range ticker.C {
			pairs := make([]protocol.SamplePair, perFrame)
			for i := range pairs {
				phase := math.Mod(t, beatPeriod) / beatPeriod
				// narrow gaussian bump on a low baseline, 8-bit range
				adc := 40 + 200*math.Exp(-math.Pow((phase-0.5)/0.05, 2))
				sampleID++
				pairs[i] = protocol.SamplePair{SampleID: sampleID, ADC: uint16(adc)}
				t += dt
			}
			frame, err := protocol.EncodeSamples(pairs)
			if err != nil {
				monitoring.Logf("mock sender: %v", err)
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
		}
	}()

	return NewSerialMux(&MockSerialPort{Reader: r, w: w})
}
