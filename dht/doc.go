// Package dht implements a Kademlia-style Distributed Hash Table node:
// the routing table and its XOR-bucketing policy, the bounded
// known-peer cache, the signed/typed storage engine with its two update
// rules, the iterative parallel lookup engine, and the inbound protocol
// dispatch, wrapped by a single outbound-facing node facade.
//
// # Architecture
//
//   - RoutingTable: 256 XOR-distance buckets of known peer descriptors.
//   - KnownPeerCache: a bounded, insertion-ordered set of peer key-ids
//     with a cursor abstraction stable under concurrent insertion.
//   - Storage: the hash-keyed value store, with Signature and
//     OverlayNodes update rules.
//   - LookupEngine: bounded-parallelism FindValue search and the
//     store-then-verify-by-readback StoreValue loop.
//   - ProtocolHandler: inbound Ping/FindNode/FindValue/
//     GetSignedAddressList/Store dispatch, plus the two-message bundle
//     envelope.
//   - LocalNode: construction, self-signing, and the full outbound
//     facade (Ping, FindDHTNodes, FindAddress, StoreIPAddress, ...).
//
// The datagram transport, the Ed25519 primitives, wire serialization,
// and overlay-membership validation are all external collaborators,
// consumed through the Adapter interface (adapter.go) and the
// dhtcrypto, wire, and overlay packages respectively.
//
// Example:
//
//	keys, _ := crypto.GenerateKeyPair()
//	adapter := crypto.NewAdapter(keys)
//	node := dht.NewLocalNode(adapter, transportAdapter, addrs, overlay.NewSignatureValidator(), nowFn)
//	ok, err := node.Ping(ctx, peerID)
package dht
