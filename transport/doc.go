// Package transport implements the DHT's Transport Adapter: a UDP
// datagram transport carrying Noise-XX-encrypted request/response
// envelopes between DHT nodes.
//
// # Layers
//
//   - Packet framing (packet.go, noise_packet.go): the single-byte
//     PacketType envelope, the three-message Noise-XX handshake frame,
//     and the encrypted request/response Envelope frame.
//   - Adapter (adapter.go): the dht.Adapter implementation. It owns the
//     UDP socket and its read loop, drives a Noise-XX handshake per peer
//     address, binds the resulting session to a DHT key-id via a signed
//     identity assertion (identity.go), and correlates Send calls with
//     their replies by request id.
//
// # Identity binding
//
// Noise-XX authenticates that a peer controls some Curve25519 keypair,
// not that it owns a particular DHT key-id. Each handshake's final two
// messages carry a payload binding the session to an Ed25519 DHT
// identity: a public-key descriptor plus that identity's signature over
// the session's own Noise static public key. The receiving side
// verifies the signature before accepting the session.
//
// # Example
//
//	adapter, err := transport.NewAdapter(":33445", identity)
//	adapter.Subscribe(func(from crypto.KeyID, frames [][]byte) [][]byte {
//	    return dispatch(from, frames)
//	})
//	adapter.RegisterPeer(peerID, peerNode)
//	reply, err := adapter.Send(ctx, peerID, frames)
package transport
