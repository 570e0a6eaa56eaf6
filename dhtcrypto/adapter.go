package crypto

// Adapter is the concrete Crypto Adapter collaborator: it owns a local
// keypair and exposes the sign/verify/key-id operations the DHT core
// needs without exposing private key material to callers.
//
//export KadDHTCryptoAdapter
type Adapter struct {
	keys *KeyPair
	id   KeyID
}

// NewAdapter wraps a keypair as a Crypto Adapter, pre-computing its key-id.
func NewAdapter(keys *KeyPair) *Adapter {
	return &Adapter{
		keys: keys,
		id:   DeriveKeyID(keys.Public),
	}
}

// LocalKeyID returns the key-id of the adapter's own identity.
func (a *Adapter) LocalKeyID() KeyID {
	return a.id
}

// PublicDescriptor returns the adapter's own public-key descriptor.
func (a *Adapter) PublicDescriptor() PublicKeyDescriptor {
	return a.keys.Public
}

// DeriveKeyID hashes an arbitrary public-key descriptor into a key-id.
func (a *Adapter) DeriveKeyID(descriptor PublicKeyDescriptor) KeyID {
	return DeriveKeyID(descriptor)
}

// Sign signs message under the adapter's own private key.
func (a *Adapter) Sign(message []byte) ([]byte, error) {
	return Sign(message, a.keys.Private)
}

// Verify checks message's signature under an arbitrary public-key
// descriptor (typically a peer's, extracted from a received record).
func (a *Adapter) Verify(message []byte, signature []byte, public PublicKeyDescriptor) bool {
	return Verify(message, signature, public)
}
