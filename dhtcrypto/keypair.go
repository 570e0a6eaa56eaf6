package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"github.com/sirupsen/logrus"
)

// PublicKeyDescriptor is the public half of a DHT identity. It is what
// gets serialized into a PeerNode's id field and hashed to produce a
// key-id.
//
//export KadDHTPublicKeyDescriptor
type PublicKeyDescriptor struct {
	Ed25519 [32]byte
}

// Bytes returns the canonical encoding of the descriptor used both for
// hashing (key-id derivation) and signature verification.
func (d PublicKeyDescriptor) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, d.Ed25519[:])
	return out
}

// KeyPair is an Ed25519 signing keypair for a DHT identity.
//
//export KadDHTKeyPair
type KeyPair struct {
	Public  PublicKeyDescriptor
	Private [64]byte // ed25519.PrivateKey: seed || public
}

// GenerateKeyPair creates a new random Ed25519 keypair.
//
//export KadDHTGenerateKeyPair
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "GenerateKeyPair",
			"error":    err.Error(),
		}).Error("failed to generate DHT keypair")
		return nil, err
	}

	kp := &KeyPair{}
	copy(kp.Public.Ed25519[:], pub)
	copy(kp.Private[:], priv)
	return kp, nil
}

// FromSeed recreates a keypair from a 32-byte Ed25519 seed.
//
//export KadDHTKeyPairFromSeed
func FromSeed(seed [32]byte) (*KeyPair, error) {
	if isZeroKey(seed) {
		return nil, errors.New("invalid seed: all zeros")
	}
	priv := ed25519.NewKeyFromSeed(seed[:])
	kp := &KeyPair{}
	copy(kp.Public.Ed25519[:], priv.Public().(ed25519.PublicKey))
	copy(kp.Private[:], priv)
	return kp, nil
}

func isZeroKey(key [32]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
