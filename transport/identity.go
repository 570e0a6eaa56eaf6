package transport

import (
	"errors"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
)

// ErrMalformedBinding indicates a handshake payload was not a well-formed
// identity binding (see encodeBinding).
var ErrMalformedBinding = errors.New("transport: malformed identity binding")

// bindingSize is the wire size of an identity binding: a public-key
// descriptor followed by an Ed25519 signature over a Noise static key.
const bindingSize = 32 + crypto.SignatureSize

// encodeBinding asserts ownership of a Noise session's static public key
// by a DHT identity: the identity's Ed25519 signature over the static
// key, alongside the descriptor needed to verify it. A Noise XX
// handshake only proves the peer holds SOME Curve25519 private key; this
// binding is what lets the two ends agree the session belongs to a
// specific key-id.
func encodeBinding(identity *crypto.Adapter, staticPub [32]byte) ([]byte, error) {
	sig, err := identity.Sign(staticPub[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, bindingSize)
	copy(out[:32], identity.PublicDescriptor().Bytes())
	copy(out[32:], sig)
	return out, nil
}

// verifyBinding checks a binding payload against the Noise static key it
// is supposed to vouch for, returning the bound identity's descriptor.
func verifyBinding(payload []byte, staticPub [32]byte) (crypto.PublicKeyDescriptor, error) {
	var descriptor crypto.PublicKeyDescriptor
	if len(payload) != bindingSize {
		return descriptor, ErrMalformedBinding
	}
	copy(descriptor.Ed25519[:], payload[:32])
	sig := payload[32:]
	if !crypto.Verify(staticPub[:], sig, descriptor) {
		return descriptor, ErrMalformedBinding
	}
	return descriptor, nil
}
