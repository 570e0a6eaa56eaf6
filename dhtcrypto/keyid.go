package crypto

import (
	"golang.org/x/crypto/blake2b"
)

// KeyID is the 32-byte identifier derived from a public-key descriptor.
// Two peers with the same KeyID are the same peer.
type KeyID [32]byte

// DeriveKeyID hashes a public-key descriptor's canonical encoding into a
// 32-byte key-id using BLAKE2b-256.
//
//export KadDHTDeriveKeyID
func DeriveKeyID(descriptor PublicKeyDescriptor) KeyID {
	return HashBytes(descriptor.Bytes())
}

// HashBytes hashes an arbitrary byte buffer into a 32-byte identifier
// using BLAKE2b-256. Used for both key-id derivation and DHT storage-key
// hashing, so the two ids are computed the same way.
func HashBytes(b []byte) KeyID {
	return KeyID(blake2b.Sum256(b))
}

// String renders a key-id as a short hex prefix, suitable for log fields.
func (id KeyID) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 0; i < 8; i++ {
		buf[i*2] = hextable[id[i]>>4]
		buf[i*2+1] = hextable[id[i]&0x0f]
	}
	return string(buf)
}
