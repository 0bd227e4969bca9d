package layers

import (
	"crypto/aes"
	"crypto/cipher"

	onion "github.com/lysShub/data-onion"
	"github.com/lysShub/data-onion/aeskw"
	"github.com/pkg/errors"
)

// layout of the last layer
const (
	kekEnd     = 32            // key encrypting key
	kekIVEnd   = kekEnd + 8    // key wrap initial value
	wrappedEnd = kekIVEnd + 40 // wrapped 256 bit key
	ivEnd      = wrappedEnd + aes.BlockSize
)

// Decrypt unwraps the embedded AES-256 key and decrypts the CBC ciphertext
// that follows it.
func Decrypt(b []byte) ([]byte, error) {
	if len(b) <= ivEnd || len(b)%aeskw.BlockSize != 0 {
		return nil, errors.WithStack(onion.Errorf(onion.ShortInput, "%d bytes", len(b)))
	}

	key, err := aeskw.Unwrap(b[:kekEnd], [aeskw.BlockSize]byte(b[kekEnd:kekIVEnd]), b[kekIVEnd:wrappedEnd])
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	data := b[ivEnd:]
	if len(data)%aes.BlockSize != 0 {
		return nil, errors.WithStack(onion.Errorf(onion.ShortInput, "ciphertext %d bytes", len(data)))
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, b[wrappedEnd:ivEnd]).CryptBlocks(out, data)
	return unpad(out)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.WithStack(onion.Errorf(onion.BadPadding, "empty"))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.WithStack(onion.Errorf(onion.BadPadding, "pad length %d", n))
	}
	for _, e := range b[len(b)-n:] {
		if int(e) != n {
			return nil, errors.WithStack(onion.Errorf(onion.BadPadding, "pad byte 0x%02x", e))
		}
	}
	return b[:len(b)-n], nil
}
