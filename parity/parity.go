// Package parity strips parity bits from a byte stream and packs the
// remaining 7 bit payloads densely.
package parity

import (
	"math/bits"

	onion "github.com/lysShub/data-onion"
	"github.com/pkg/errors"
)

const (
	GroupSize = 8 // parity bytes per group
	WordSize  = 7 // packed bytes per group
)

// Parity reports whether the 7 payload bits (bit 7..1) hold an odd number
// of ones.
func Parity(b byte) bool {
	return bits.OnesCount8(b>>1)%2 == 1
}

// Flag returns the parity flag, bit 0.
func Flag(b byte) bool {
	return b&1 == 1
}

// Correct reports whether b's flag matches its payload parity.
func Correct(b byte) bool {
	return Parity(b) == Flag(b)
}

// Filter returns the correct parity bytes of b in order. Incorrect bytes
// are dropped, not repaired.
func Filter(b []byte) []byte {
	var good = make([]byte, 0, len(b))
	for _, e := range b {
		if Correct(e) {
			good = append(good, e)
		}
	}
	return good
}

// Combine filters b and packs every 8 payloads into 7 bytes.
func Combine(b []byte) ([]byte, error) {
	good := Filter(b)
	if n := len(good); n%GroupSize != 0 {
		return nil, errors.WithStack(onion.Errorf(
			onion.MisalignedInput, "%d correct bytes of %d, require multiple of %d", n, len(b), GroupSize,
		))
	}

	out := make([]byte, 0, len(good)/GroupSize*WordSize)
	for i := 0; i < len(good); i += GroupSize {
		out = pack(out, [GroupSize]byte(good[i:i+GroupSize]))
	}
	return out, nil
}

// pack concatenates the payloads big-endian into a 56 bit word, then emits
// it most significant byte first.
func pack(to []byte, g [GroupSize]byte) []byte {
	var v uint64
	for _, e := range g {
		v = v<<7 | uint64(e>>1)
	}
	for i := WordSize - 1; i >= 0; i-- {
		to = append(to, byte(v>>(8*i)))
	}
	return to
}
