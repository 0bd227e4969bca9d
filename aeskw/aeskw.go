// Package aeskw implements the AES key wrap of RFC 3394 with a caller
// supplied initial value.
package aeskw

import (
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"

	onion "github.com/lysShub/data-onion"
	"github.com/pkg/errors"
)

const BlockSize = 8 // semiblock

// DefaultIV is the RFC 3394 section 2.2.3.1 initial value.
var DefaultIV = [BlockSize]byte{0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6}

// Wrap encrypts key under kek.
func Wrap(kek []byte, iv [BlockSize]byte, key []byte) ([]byte, error) {
	if len(key) < 2*BlockSize || len(key)%BlockSize != 0 {
		return nil, errors.Errorf("key length %d", len(key))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	n := len(key) / BlockSize
	out := make([]byte, BlockSize+len(key))
	copy(out[BlockSize:], key)

	var a = iv
	var b [aes.BlockSize]byte
	for j := 0; j < 6; j++ {
		for i := 1; i <= n; i++ {
			r := out[i*BlockSize : (i+1)*BlockSize]
			copy(b[:BlockSize], a[:])
			copy(b[BlockSize:], r)
			block.Encrypt(b[:], b[:])

			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(a[:], binary.BigEndian.Uint64(b[:BlockSize])^t)
			copy(r, b[BlockSize:])
		}
	}
	copy(out, a[:])
	return out, nil
}

// Unwrap decrypts a wrapped key and checks its integrity against iv.
func Unwrap(kek []byte, iv [BlockSize]byte, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 3*BlockSize || len(wrapped)%BlockSize != 0 {
		return nil, errors.WithStack(onion.Errorf(onion.ShortInput, "wrapped key length %d", len(wrapped)))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	n := len(wrapped)/BlockSize - 1
	key := make([]byte, n*BlockSize)
	copy(key, wrapped[BlockSize:])

	var a [BlockSize]byte
	copy(a[:], wrapped[:BlockSize])
	var b [aes.BlockSize]byte
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			r := key[(i-1)*BlockSize : i*BlockSize]
			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(b[:BlockSize], binary.BigEndian.Uint64(a[:])^t)
			copy(b[BlockSize:], r)
			block.Decrypt(b[:], b[:])

			copy(a[:], b[:BlockSize])
			copy(r, b[BlockSize:])
		}
	}

	if subtle.ConstantTimeCompare(a[:], iv[:]) != 1 {
		return nil, errors.WithStack(onion.Errorf(onion.KeyUnwrap, "integrity check failed"))
	}
	return key, nil
}
