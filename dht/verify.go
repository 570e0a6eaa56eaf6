package dht

import (
	"errors"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
	"github.com/opd-ai/kadht/wire"
)

// ErrSignatureInvalid is returned whenever a signed structure fails
// verification: a bad peer descriptor, a bad key description, or a bad
// value signature.
var ErrSignatureInvalid = errors.New("dht: signature verification failed")

// VerifyOtherNode checks that n's signature covers n's own canonical
// encoding (signature field cleared) under the public key embedded in
// n.ID.
func VerifyOtherNode(n wire.PeerNode) error {
	descriptor := crypto.PublicKeyDescriptor{Ed25519: n.ID}
	if !crypto.Verify(wire.EncodeNodeForSigning(n), n.Signature, descriptor) {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifyValue checks both the key description's signature and the
// value's signature, both under the public key embedded in
// v.Key.ID.
func VerifyValue(v wire.Value) error {
	descriptor := crypto.PublicKeyDescriptor{Ed25519: v.Key.ID}
	if !crypto.Verify(wire.EncodeKeyDescriptionForSigning(v.Key), v.Key.Signature, descriptor) {
		return ErrSignatureInvalid
	}
	if !crypto.Verify(wire.EncodeValueForSigning(v), v.Signature, descriptor) {
		return ErrSignatureInvalid
	}
	return nil
}

// SignNode serializes n with its Signature field cleared, signs the
// result under adapter's local key, and returns a copy of n carrying the
// resulting signature.
func SignNode(adapter *crypto.Adapter, n wire.PeerNode) (wire.PeerNode, error) {
	n.Signature = nil
	sig, err := adapter.Sign(wire.EncodeNodeForSigning(n))
	if err != nil {
		return n, err
	}
	n.Signature = sig
	return n, nil
}

// SignKeyDescription serializes d with its Signature field cleared,
// signs the result under adapter's local key, and returns a copy of d
// carrying the resulting signature.
func SignKeyDescription(adapter *crypto.Adapter, d wire.KeyDescription) (wire.KeyDescription, error) {
	d.Signature = nil
	sig, err := adapter.Sign(wire.EncodeKeyDescriptionForSigning(d))
	if err != nil {
		return d, err
	}
	d.Signature = sig
	return d, nil
}

// SignValue serializes v with its Signature field cleared, signs the
// result under adapter's local key, and returns a copy of v carrying the
// resulting signature.
func SignValue(adapter *crypto.Adapter, v wire.Value) (wire.Value, error) {
	v.Signature = nil
	sig, err := adapter.Sign(wire.EncodeValueForSigning(v))
	if err != nil {
		return v, err
	}
	v.Signature = sig
	return v, nil
}

// DHTKeyFromKeyID builds the canonical DHT key {id, idx: 0, name} for a
// given key-id and name.
func DHTKeyFromKeyID(id crypto.KeyID, name string) wire.Key {
	return wire.Key{ID: id, Idx: 0, Name: []byte(name)}
}
