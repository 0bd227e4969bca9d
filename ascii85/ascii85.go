// Package ascii85 decodes Adobe style "<~ ... ~>" Ascii85 envelopes.
package ascii85

import (
	"bytes"

	onion "github.com/lysShub/data-onion"
	"github.com/pkg/errors"
)

const (
	First = '!' // first symbol, digit 0
	Last  = 'u' // last symbol, digit 84, also the pad symbol
	Base  = 85

	GroupSize = 5 // symbols per group
	WordSize  = 4 // bytes per group
)

var (
	Start = []byte("<~")
	End   = []byte("~>")
)

// Decode decodes the first envelope in b.
func Decode(b []byte) ([]byte, error) {
	body, err := Interior(b)
	if err != nil {
		return nil, err
	}

	for i, c := range body {
		if c > 0x7f {
			return nil, errors.WithStack(onion.Errorf(onion.NonAsciiInput, "byte 0x%02x at offset %d", c, i))
		}
	}

	symbols := make([]byte, 0, len(body))
	for i, c := range body {
		switch {
		case First <= c && c <= Last:
			symbols = append(symbols, c)
		case c == '\n' || c == '\r':
		default:
			return nil, errors.WithStack(onion.Errorf(onion.InvalidSymbol, "byte 0x%02x at offset %d", c, i))
		}
	}

	out := make([]byte, 0, (len(symbols)+GroupSize-1)/GroupSize*WordSize)
	for len(symbols) >= GroupSize {
		out = appendGroup(out, [GroupSize]byte(symbols[:GroupSize]))
		symbols = symbols[GroupSize:]
	}
	if n := len(symbols); n > 0 {
		var g = [GroupSize]byte{Last, Last, Last, Last, Last}
		copy(g[:], symbols)
		out = appendGroup(out, g)
		out = out[:len(out)-WordSize+n-1]
	}
	return out, nil
}

// Interior returns the bytes between the first start delimiter and the first
// end delimiter that follows it.
func Interior(b []byte) ([]byte, error) {
	s := bytes.Index(b, Start)
	if s < 0 {
		return nil, errors.WithStack(onion.Errorf(onion.MissingDelimiter, "no start delimiter %q", Start))
	}
	s += len(Start)

	e := bytes.Index(b[s:], End)
	if e < 0 {
		return nil, errors.WithStack(onion.Errorf(onion.MissingDelimiter, "no end delimiter %q after offset %d", End, s))
	}
	return b[s : s+e], nil
}

// appendGroup decodes one full group. The accumulator is 32 bits wide, a
// group above "s8W-!" wraps.
func appendGroup(to []byte, g [GroupSize]byte) []byte {
	var v uint32
	for _, c := range g {
		v = v*Base + uint32(c-First)
	}
	return append(to, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
