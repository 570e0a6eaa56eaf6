package dht

import (
	"context"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
	"github.com/opd-ai/kadht/wire"
)

// Adapter is the Transport Adapter collaborator, defined here at the
// consumer's side so dht's call sites depend only on this narrow
// interface rather than on the transport package's concrete Adapter
// type. A concrete implementation sends a typed
// query to a peer identified by key-id, awaits at most one typed reply
// or a timeout, delivers inbound queries to a subscriber, and maintains
// its own peer address registry.
type Adapter interface {
	// Send transmits one or more wire frames (a solo query, or a
	// two-frame bundle whose first element is a Query envelope) to peer
	// and waits for at most one reply datagram, itself one or more wire
	// frames. ctx bounds the wait; a context deadline or cancellation
	// surfaces as an error.
	Send(ctx context.Context, peer crypto.KeyID, frames [][]byte) ([][]byte, error)

	// RegisterPeer records peer's address list in the adapter's own
	// registry under its key-id. Reports whether this key-id was
	// previously unknown to the adapter.
	RegisterPeer(id crypto.KeyID, peer wire.PeerNode) bool

	// Subscribe installs the handler invoked for every inbound
	// datagram (one solo frame, or a two-frame bundle). The handler's
	// returned frames, if any, are sent back as the reply datagram.
	Subscribe(handler func(from crypto.KeyID, frames [][]byte) [][]byte)
}

// HashKey computes the 32-byte storage-key hash of a DHT key, used to
// index Storage.
func HashKey(key wire.Key) crypto.KeyID {
	return crypto.HashBytes(wire.EncodeKey(key))
}
