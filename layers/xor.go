package layers

import (
	onion "github.com/lysShub/data-onion"
	"github.com/pkg/errors"
)

const KeySize = 32

// KnownPrefix opens the plaintext of the xor layer, it is exactly one key
// long.
const KnownPrefix = "==[ Layer 4/6: Network Traffic ]"

// RecoverKey derives a repeating xor key of size n from the leading bytes of
// ciphertext whose plaintext is known.
func RecoverKey(cipher, known []byte, n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.Errorf("key size %d", n)
	}
	if len(known) < n {
		return nil, errors.WithStack(onion.Errorf(onion.ShortInput, "known plaintext %d bytes, key %d", len(known), n))
	}
	if len(cipher) < n {
		return nil, errors.WithStack(onion.Errorf(onion.ShortInput, "ciphertext %d bytes, key %d", len(cipher), n))
	}

	key := make([]byte, n)
	for i := range key {
		key[i] = cipher[i] ^ known[i]
	}
	return key, nil
}

// Xor applies a repeating key to b.
func Xor(b, key []byte) []byte {
	out := make([]byte, len(b))
	for i, e := range b {
		out[i] = e ^ key[i%len(key)]
	}
	return out
}
