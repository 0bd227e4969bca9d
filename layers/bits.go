package layers

import "math/bits"

// FlipEveryOther inverts bits 6, 4, 2 and 0.
func FlipEveryOther(b byte) byte {
	return b ^ 0b0101_0101
}

// RotateRight moves every bit one position right, bit 0 wraps to bit 7.
func RotateRight(b byte) byte {
	return bits.RotateLeft8(b, -1)
}

// Unscramble applies FlipEveryOther then RotateRight to every byte.
func Unscramble(b []byte) []byte {
	out := make([]byte, len(b))
	for i, e := range b {
		out[i] = RotateRight(FlipEveryOther(e))
	}
	return out
}
