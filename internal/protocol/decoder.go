package protocol

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/orangelab/pulsemon/internal/timeutil"
)

// Sample is one timestamped ADC reading recovered from the stream. Raw holds
// the ADC code; voltage conversion happens downstream where the configured
// bit depth and reference voltage live.
type Sample struct {
	// Timestamp is in seconds in the decoder clock's domain.
	Timestamp float64
	// SampleID is the sequence counter from the wire. Zero in unframed mode.
	SampleID uint16
	Raw      uint32
}

// Result holds everything recovered by one Feed call.
type Result struct {
	Samples []Sample
	// Frames are validated frames of types other than FrameTypeSamples.
	// They carry no samples; callers may log or display them.
	Frames []Frame
}

// Decoder turns an arbitrarily chunked byte stream into validated frames and
// samples. It carries unconsumed bytes across Feed calls, so partial reads,
// corrupted bytes, and mid-stream resets of the source are recovered from
// without losing later frames.
//
// Feed and FeedRaw are safe to call concurrently with each other; the
// accumulation buffer is guarded internally.
type Decoder struct {
	mu    sync.Mutex
	buf   []byte
	clock timeutil.Clock
}

// NewDecoder returns a Decoder stamping samples from the given clock.
// A nil clock defaults to the real one.
func NewDecoder(clock timeutil.Clock) *Decoder {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Decoder{clock: clock}
}

// Feed appends chunk to the accumulation buffer and decodes every complete
// frame it now holds. samplingRate (Hz) spaces the timestamps of samples
// emitted by this call, walking backward from the clock's current time so
// the newest sample lands on "now"; this compensates for the chunk-level
// batching of the transport's reads.
//
// Recovery policy:
//   - no header marker anywhere in the buffer: the whole buffer is noise,
//     drop it (memory stays bounded under arbitrary garbage);
//   - bytes before the marker: discarded (noise or a truncated frame);
//   - incomplete frame: wait for more input;
//   - CRC mismatch: drop exactly one byte and rescan, so a false header
//     costs one byte per attempt and progress is guaranteed.
func (d *Decoder) Feed(chunk []byte, samplingRate float64) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res Result
	if len(chunk) == 0 && len(d.buf) == 0 {
		return res
	}
	d.buf = append(d.buf, chunk...)

	var pairs []SamplePair
	for {
		if len(d.buf) < MinFrameSize {
			break
		}
		idx := bytes.Index(d.buf, frameHeader)
		if idx == -1 {
			// No frame can start here; everything buffered is noise.
			d.buf = d.buf[:0]
			break
		}
		if idx > 0 {
			d.buf = d.buf[:copy(d.buf, d.buf[idx:])]
		}
		if len(d.buf) < HeaderSize+2 {
			break // wait for LEN and TYPE
		}
		total := MinFrameSize + int(d.buf[HeaderSize])
		if len(d.buf) < total {
			break // partial frame, wait for more input
		}
		frame := d.buf[:total]
		wire := binary.LittleEndian.Uint16(frame[total-2:])
		if CRC16(frame[HeaderSize:total-2]) != wire {
			// Resync: drop a single byte, not the whole candidate frame.
			d.buf = d.buf[:copy(d.buf, d.buf[1:])]
			continue
		}
		typ := frame[HeaderSize+1]
		payload := frame[HeaderSize+2 : total-2]
		if typ == FrameTypeSamples {
			// A trailing partial group is silently truncated; the CRC has
			// already vouched for the frame.
			n := len(payload) / BytesPerSamplePair
			for i := 0; i < n; i++ {
				off := i * BytesPerSamplePair
				pairs = append(pairs, SamplePair{
					SampleID: binary.LittleEndian.Uint16(payload[off:]),
					ADC:      binary.LittleEndian.Uint16(payload[off+2:]),
				})
			}
		} else {
			res.Frames = append(res.Frames, Frame{
				Type:    typ,
				Payload: append([]byte(nil), payload...),
			})
		}
		d.buf = d.buf[:copy(d.buf, d.buf[total:])]
	}

	if len(pairs) > 0 {
		res.Samples = make([]Sample, len(pairs))
		stamps := d.backdate(len(pairs), samplingRate)
		for i, p := range pairs {
			res.Samples[i] = Sample{
				Timestamp: stamps[i],
				SampleID:  p.SampleID,
				Raw:       uint32(p.ADC),
			}
		}
	}
	return res
}

// FeedRaw handles the unframed transport mode: one byte is one 8-bit ADC
// sample, no header or CRC. Timestamps walk backward from now at
// 1/samplingRate so the last byte of the chunk is stamped "now".
func (d *Decoder) FeedRaw(chunk []byte, samplingRate float64) []Sample {
	if len(chunk) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	stamps := d.backdate(len(chunk), samplingRate)
	samples := make([]Sample, len(chunk))
	for i, b := range chunk {
		samples[i] = Sample{Timestamp: stamps[i], Raw: uint32(b)}
	}
	return samples
}

// Buffered reports how many unconsumed bytes the decoder is holding.
func (d *Decoder) Buffered() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buf)
}

// Reset drops any unconsumed bytes, for use when the byte source restarts.
func (d *Decoder) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = d.buf[:0]
}

// backdate returns n timestamps spaced 1/rate apart ending at the clock's
// current time.
func (d *Decoder) backdate(n int, rate float64) []float64 {
	now := float64(d.clock.Now().UnixNano()) / 1e9
	dt := 0.0
	if rate > 0 {
		dt = 1.0 / rate
	}
	stamps := make([]float64, n)
	base := float64(n-1) * dt
	for i := range stamps {
		stamps[i] = now - (base - float64(i)*dt)
	}
	return stamps
}
