package crypto

import (
	"crypto/ed25519"
	"errors"
)

// SignatureSize is the size of an Ed25519 signature in bytes.
const SignatureSize = ed25519.SignatureSize

// ErrEmptyMessage is returned when Sign is asked to operate on a
// zero-length buffer; the DHT never signs empty payloads. Verify reports
// false for an empty message.
var ErrEmptyMessage = errors.New("crypto: empty message")

// Sign produces an Ed25519 signature over message under the given
// private key.
//
//export KadDHTSign
func Sign(message []byte, private [64]byte) ([]byte, error) {
	if len(message) == 0 {
		return nil, ErrEmptyMessage
	}
	sig := ed25519.Sign(ed25519.PrivateKey(private[:]), message)
	return sig, nil
}

// Verify checks an Ed25519 signature over message under the given public
// key descriptor. It never panics on malformed input; a wrong-length
// signature is simply not valid.
//
//export KadDHTVerify
func Verify(message []byte, signature []byte, public PublicKeyDescriptor) bool {
	if len(message) == 0 || len(signature) != SignatureSize {
		return false
	}
	return ed25519.Verify(public.Ed25519[:], message, signature)
}
