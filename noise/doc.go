// Package noise provides Noise Protocol Framework implementations for
// securing the transport layer's peer-to-peer sessions.
//
// The package implements the XX handshake pattern using the formally
// verified flynn/noise library with ChaCha20-Poly1305 encryption, SHA256
// hashing, and Curve25519 key exchange. XX was chosen over IK because a
// DHT peer is discovered by key-id, not by a pre-shared Noise static
// key: XX lets both sides authenticate without either having to already
// know the other's transport key.
//
// # Message flow (3 messages)
//
//	Initiator                              Responder
//	─────────                              ─────────
//	-> e           (ephemeral only)
//	                                       <- e, ee, s, es
//	-> s, se       (static exchange)
//	[session established]
//
// # Example
//
//	priv, pub, _ := noise.GenerateStaticKeypair()
//	hs, _ := noise.NewXXHandshake(priv, pub, noise.Initiator)
//	msg1, _, _ := hs.WriteMessage(nil)
//	// ... exchange msg1/msg2/msg3 with the peer ...
//	send, recv, _ := hs.CipherStates()
//
// # Identity binding
//
// A session's Noise static key is not itself a DHT identity. The
// transport package signs its own Noise static public key with the
// node's Ed25519 DHT key and carries that signature as the handshake's
// message-3 payload, letting the responder bind the new session to a
// known key-id.
//
// # Cipher suite
//
//   - DH: Curve25519 (X25519 key exchange)
//   - Cipher: ChaCha20-Poly1305 (AEAD encryption)
//   - Hash: SHA256
//
// # Thread safety
//
// An XXHandshake is not safe for concurrent use; the protocol requires
// strictly sequential message processing. The CipherState values
// returned by CipherStates are likewise not safe for concurrent
// encrypt/decrypt calls without external synchronization.
package noise
