package overlay

import (
	"encoding/binary"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
)

// SignatureValidator validates overlay membership the same way the rest
// of the DHT validates everything else: a node is a member of an
// overlay iff it holds a valid Ed25519 signature, under its own id, over
// the overlay's short id and its own claimed version. This is the
// concrete stand-in for an overlay-membership validation routine left
// external to the DHT; a production deployment would swap it for the
// real overlay's own membership rule without touching the DHT core,
// since dht only ever calls the Validator interface.
type SignatureValidator struct{}

// NewSignatureValidator constructs the default overlay validator.
func NewSignatureValidator() *SignatureValidator {
	return &SignatureValidator{}
}

// Validate verifies node.Signature over (overlayShortID || version)
// under the public key described by node.ID.
func (SignatureValidator) Validate(overlayShortID [32]byte, node Node) bool {
	if len(node.Signature) == 0 {
		return false
	}

	msg := make([]byte, 0, 36)
	msg = append(msg, overlayShortID[:]...)
	var verBuf [4]byte
	binary.BigEndian.PutUint32(verBuf[:], uint32(node.Version))
	msg = append(msg, verBuf[:]...)

	descriptor := crypto.PublicKeyDescriptor{Ed25519: node.ID}
	return crypto.Verify(msg, node.Signature, descriptor)
}
