package protocol

import "testing"

func TestCRC16CheckValue(t *testing.T) {
	// published CRC-16/CCITT-FALSE check value
	got := CRC16([]byte("123456789"))
	if got != 0x29B1 {
		t.Errorf("CRC16(123456789) = 0x%04X, want 0x29B1", got)
	}
}

func TestCRC16Empty(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(nil) = 0x%04X, want initial value 0xFFFF", got)
	}
}

func TestCRC16DetectsBitFlip(t *testing.T) {
	data := []byte{0x04, 0x01, 0x01, 0x00, 0xFF, 0x03}
	orig := CRC16(data)
	data[4] ^= 0x10
	if CRC16(data) == orig {
		t.Error("CRC16 unchanged after corrupting a byte")
	}
}
