package protocol

import (
	"encoding/binary"
	"fmt"
)

// Wire frame layout, little-endian multi-byte fields:
//
//	[0xAA][0x55][LEN:u8][TYPE:u8][PAYLOAD: LEN bytes][CRC16:u16]
//
// CRC-16/CCITT-FALSE is computed over LEN‖TYPE‖PAYLOAD; the two header
// marker bytes and the CRC field itself are excluded.
const (
	HeaderSize = 2 // 0xAA 0x55 marker
	// MinFrameSize is header + LEN + TYPE + CRC: the smallest buffered span
	// that can hold a complete (zero payload) frame.
	MinFrameSize = HeaderSize + 1 + 1 + 2

	// FrameTypeSamples carries repeated (sample_id:u16 LE, adc:u16 LE) pairs.
	FrameTypeSamples = 0x01

	// BytesPerSamplePair is the encoded size of one (sample_id, adc) pair.
	BytesPerSamplePair = 4

	// MaxPayloadSize is bounded by the one-byte LEN field.
	MaxPayloadSize = 255
)

var frameHeader = []byte{0xAA, 0x55}

// Frame is a validated non-sample frame surfaced to the caller unchanged.
// Frames are transient: decoded, handed out, never retained by the decoder.
type Frame struct {
	Type    byte
	Payload []byte
}

// SamplePair is one ADC reading as it appears in a Type 0x01 payload.
type SamplePair struct {
	SampleID uint16
	ADC      uint16
}

// AppendFrame appends a complete frame of the given type to dst and returns
// the extended slice. The payload must fit the one-byte length field.
func AppendFrame(dst []byte, frameType byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return dst, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}
	dst = append(dst, frameHeader...)
	crcStart := len(dst)
	dst = append(dst, byte(len(payload)), frameType)
	dst = append(dst, payload...)
	crc := CRC16(dst[crcStart:])
	return binary.LittleEndian.AppendUint16(dst, crc), nil
}

// EncodeSamples builds a Type 0x01 frame carrying the given sample pairs.
func EncodeSamples(pairs []SamplePair) ([]byte, error) {
	payload := make([]byte, 0, len(pairs)*BytesPerSamplePair)
	for _, p := range pairs {
		payload = binary.LittleEndian.AppendUint16(payload, p.SampleID)
		payload = binary.LittleEndian.AppendUint16(payload, p.ADC)
	}
	return AppendFrame(nil, FrameTypeSamples, payload)
}
