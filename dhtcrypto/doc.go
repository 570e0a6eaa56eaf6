// Package crypto implements the Crypto Adapter collaborator for the DHT
// node: Ed25519 keypairs, signing, verification, and key-id derivation.
//
// The DHT core (package dht) signs under the local identity through the
// Adapter type defined here, and calls Verify, DeriveKeyID and HashBytes
// directly for peer records and storage keys.
//
// Example:
//
//	kp, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	adapter := crypto.NewAdapter(kp)
//	id := adapter.DeriveKeyID(adapter.PublicDescriptor())
package crypto
