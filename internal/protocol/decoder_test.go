package protocol

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/orangelab/pulsemon/internal/timeutil"
)

func newTestDecoder() *Decoder {
	return NewDecoder(timeutil.NewMockClock(time.Unix(1000, 0)))
}

func testPairs(n int) []SamplePair {
	pairs := make([]SamplePair, n)
	for i := range pairs {
		pairs[i] = SamplePair{SampleID: uint16(i + 1), ADC: uint16(100 + i)}
	}
	return pairs
}

func pairsOf(samples []Sample) []SamplePair {
	var out []SamplePair
	for _, s := range samples {
		out = append(out, SamplePair{SampleID: s.SampleID, ADC: uint16(s.Raw)})
	}
	return out
}

func mustEncode(t *testing.T, pairs []SamplePair) []byte {
	t.Helper()
	frame, err := EncodeSamples(pairs)
	if err != nil {
		t.Fatalf("EncodeSamples: %v", err)
	}
	return frame
}

// Feeding a stream one byte at a time must recover exactly the same samples
// as feeding it in one call.
func TestRoundTripChunkingInvariance(t *testing.T) {
	want := testPairs(10)
	var stream []byte
	stream = append(stream, mustEncode(t, want[:4])...)
	stream = append(stream, mustEncode(t, want[4:7])...)
	stream = append(stream, mustEncode(t, want[7:])...)

	whole := newTestDecoder()
	got := pairsOf(whole.Feed(stream, 100).Samples)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("single feed mismatch (-want +got):\n%s", diff)
	}

	bytewise := newTestDecoder()
	var gotBytewise []SamplePair
	for _, b := range stream {
		gotBytewise = append(gotBytewise, pairsOf(bytewise.Feed([]byte{b}, 100).Samples)...)
	}
	if diff := cmp.Diff(want, gotBytewise); diff != "" {
		t.Errorf("byte-at-a-time feed mismatch (-want +got):\n%s", diff)
	}
}

// Corrupting one byte inside a frame drops that frame but not the valid
// frame following it.
func TestResyncAfterCorruption(t *testing.T) {
	bad := mustEncode(t, testPairs(5))
	bad[7] ^= 0xFF // flip a payload byte, CRC now mismatches

	goodPairs := []SamplePair{{SampleID: 900, ADC: 512}, {SampleID: 901, ADC: 513}}
	stream := append(bad, mustEncode(t, goodPairs)...)

	d := newTestDecoder()
	got := pairsOf(d.Feed(stream, 100).Samples)
	if diff := cmp.Diff(goodPairs, got); diff != "" {
		t.Errorf("samples after resync (-want +got):\n%s", diff)
	}
}

// A stream that never contains the header marker must not accumulate.
func TestNoiseKeepsBufferEmpty(t *testing.T) {
	d := newTestDecoder()
	chunk := make([]byte, 512)
	for i := range chunk {
		chunk[i] = byte(i % 0x7F) // never 0xAA
	}
	for i := 0; i < 64; i++ {
		res := d.Feed(chunk, 100)
		if len(res.Samples) != 0 || len(res.Frames) != 0 {
			t.Fatalf("feed %d produced output from noise", i)
		}
		if n := d.Buffered(); n != 0 {
			t.Fatalf("feed %d left %d bytes buffered", i, n)
		}
	}
}

func TestZeroLengthPayloadFrame(t *testing.T) {
	frame, err := AppendFrame(nil, 0x7F, nil)
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}

	d := newTestDecoder()
	res := d.Feed(frame, 100)
	if len(res.Samples) != 0 {
		t.Errorf("got %d samples from a non-sample frame", len(res.Samples))
	}
	if len(res.Frames) != 1 || res.Frames[0].Type != 0x7F || len(res.Frames[0].Payload) != 0 {
		t.Errorf("unexpected frames: %+v", res.Frames)
	}
	if d.Buffered() != 0 {
		t.Errorf("decoder retained %d bytes", d.Buffered())
	}
}

// A Type 0x01 payload that is not a multiple of four bytes keeps its whole
// groups; the trailing partial group is dropped silently.
func TestTruncatedSampleGroup(t *testing.T) {
	payload := []byte{0x01, 0x00, 0x64, 0x00, 0x02, 0x00} // one full pair + half a pair
	frame, err := AppendFrame(nil, FrameTypeSamples, payload)
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}

	d := newTestDecoder()
	res := d.Feed(frame, 100)
	want := []SamplePair{{SampleID: 1, ADC: 100}}
	if diff := cmp.Diff(want, pairsOf(res.Samples)); diff != "" {
		t.Errorf("truncated payload samples (-want +got):\n%s", diff)
	}
}

func TestPartialFrameAcrossFeeds(t *testing.T) {
	want := testPairs(3)
	frame := mustEncode(t, want)

	for split := 1; split < len(frame); split++ {
		d := newTestDecoder()
		if got := d.Feed(frame[:split], 100); len(got.Samples) != 0 {
			t.Fatalf("split %d: emitted samples from a partial frame", split)
		}
		got := pairsOf(d.Feed(frame[split:], 100).Samples)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("split %d (-want +got):\n%s", split, diff)
		}
	}
}

func TestLeadingNoiseBeforeFrame(t *testing.T) {
	want := testPairs(2)
	stream := append([]byte{0x01, 0x02, 0x03}, mustEncode(t, want)...)

	d := newTestDecoder()
	got := pairsOf(d.Feed(stream, 100).Samples)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("samples after leading noise (-want +got):\n%s", diff)
	}
}

func TestFeedEmptyChunk(t *testing.T) {
	d := newTestDecoder()
	res := d.Feed(nil, 100)
	if len(res.Samples) != 0 || len(res.Frames) != 0 || d.Buffered() != 0 {
		t.Error("empty chunk was not a no-op")
	}
}

// Framed samples are stamped backward from the clock so the newest sample
// lands on now at 1/rate spacing.
func TestFrameSampleTimestamps(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(2000, 0))
	d := NewDecoder(clock)

	res := d.Feed(mustEncode(t, testPairs(4)), 100)
	if len(res.Samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(res.Samples))
	}
	now := float64(clock.Now().UnixNano()) / 1e9
	for i, s := range res.Samples {
		want := now - float64(3-i)*0.01
		if math.Abs(s.Timestamp-want) > 1e-9 {
			t.Errorf("sample %d timestamp = %f, want %f", i, s.Timestamp, want)
		}
	}
}

func TestFeedRawBackdatesTimestamps(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(3000, 0))
	d := NewDecoder(clock)

	samples := d.FeedRaw([]byte{10, 20, 30}, 50)
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	now := float64(clock.Now().UnixNano()) / 1e9
	for i, s := range samples {
		wantTS := now - float64(2-i)*0.02
		if math.Abs(s.Timestamp-wantTS) > 1e-9 {
			t.Errorf("sample %d timestamp = %f, want %f", i, s.Timestamp, wantTS)
		}
		if s.Raw != uint32([]byte{10, 20, 30}[i]) {
			t.Errorf("sample %d raw = %d", i, s.Raw)
		}
	}
}

func TestResetDropsBufferedBytes(t *testing.T) {
	d := newTestDecoder()
	frame := mustEncode(t, testPairs(2))
	d.Feed(frame[:5], 100)
	if d.Buffered() == 0 {
		t.Fatal("expected a buffered partial frame")
	}
	d.Reset()
	if d.Buffered() != 0 {
		t.Error("Reset did not clear the buffer")
	}
}
