package udpip

import "encoding/binary"

// Valid is the folded value of a header whose checksum field is correct.
const Valid uint16 = 0xffff

// OnesComplementSum adds a and b, carrying bit 16 back into bit 0.
func OnesComplementSum(a, b uint16) uint16 {
	s := uint32(a) + uint32(b)
	return uint16(s&0xffff) + uint16(s>>16)
}

// Fold sums words from a seed of 0xffff, the one's complement zero.
func Fold(words []uint16) uint16 {
	var sum = Valid
	for _, w := range words {
		sum = OnesComplementSum(sum, w)
	}
	return sum
}

// Words reads b as big-endian 16 bit words, zero padding an odd tail.
func Words(b []byte) []uint16 {
	ws := make([]uint16, 0, (len(b)+1)/2)
	for len(b) >= 2 {
		ws = append(ws, binary.BigEndian.Uint16(b))
		b = b[2:]
	}
	if len(b) == 1 {
		ws = append(ws, uint16(b[0])<<8)
	}
	return ws
}
