// Package wire implements the concrete binary-serialization collaborator
// for the DHT node: the typed query/reply messages (dht.query, dht.ping,
// dht.findNode, dht.store, ...) and their deterministic, length-delimited
// encoding.
//
// The DHT core (package dht) never hand-rolls byte layout; it calls
// Marshal/Unmarshal here and otherwise only sees the Go structs below.
// The wire format is: [1-byte MessageType][payload], where every
// variable-length field inside payload is itself prefixed with a
// big-endian uint32 length, mirroring transport's own packet framing
// ([1-byte PacketType][data]) one layer up, scaled to the full message
// set the protocol handler dispatches on.
package wire
