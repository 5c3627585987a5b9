package protocol

// CRC16 computes CRC-16/CCITT-FALSE over data: polynomial 0x1021, initial
// value 0xFFFF, MSB first, no final XOR or reflection. This is the checksum
// the acquisition front end applies to LEN‖TYPE‖PAYLOAD of every frame.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
