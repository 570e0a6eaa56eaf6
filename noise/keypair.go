package noise

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/curve25519"
)

// ErrZeroSeed is returned when a handshake static key is derived from an
// all-zero seed, which curve25519 treats as a degenerate scalar.
var ErrZeroSeed = errors.New("noise: zero seed is not a valid private key")

// GenerateStaticKeypair produces a fresh Curve25519 keypair for use as a
// transport session's long-term Noise identity. This identity is distinct
// from a peer's Ed25519 DHT key: Noise sessions run over X25519, so each
// Transport Adapter holds one persistent static keypair it binds to its
// DHT identity by signing it (see the transport package's identity
// binding, encodeBinding).
func GenerateStaticKeypair() (priv, pub [32]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, err
	}
	clamp(&priv)
	if isZero(priv) {
		return priv, pub, ErrZeroSeed
	}
	curve25519.ScalarBaseMult(&pub, &priv)
	return priv, pub, nil
}

// clamp applies the standard Curve25519 private-scalar clamping.
func clamp(k *[32]byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

func isZero(k [32]byte) bool {
	for _, b := range k {
		if b != 0 {
			return false
		}
	}
	return true
}
