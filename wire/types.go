package wire

// MessageType tags a typed DHT wire message, analogous to how
// transport.PacketType tags a transport packet, scoped to the DHT's
// query/reply schema.
type MessageType byte

const (
	MsgQuery MessageType = iota + 1
	MsgPing
	MsgPong
	MsgFindNode
	MsgFindValue
	MsgGetSignedAddressList
	MsgStore
	MsgNodes
	MsgValueFound
	MsgValueNotFound
	MsgStored
)

// String renders a MessageType for logging.
func (t MessageType) String() string {
	switch t {
	case MsgQuery:
		return "dht.query"
	case MsgPing:
		return "dht.ping"
	case MsgPong:
		return "dht.pong"
	case MsgFindNode:
		return "dht.findNode"
	case MsgFindValue:
		return "dht.findValue"
	case MsgGetSignedAddressList:
		return "dht.getSignedAddressList"
	case MsgStore:
		return "dht.store"
	case MsgNodes:
		return "dht.nodes"
	case MsgValueFound:
		return "dht.valueFound"
	case MsgValueNotFound:
		return "dht.valueNotFound"
	case MsgStored:
		return "dht.stored"
	default:
		return "dht.unknown"
	}
}

// UpdateRule is the closed set of Store update semantics.
type UpdateRule byte

const (
	RuleSignature UpdateRule = iota
	RuleOverlayNodes
)

// AddressEntry is one UDP endpoint in a PeerNode's address list.
type AddressEntry struct {
	IP         []byte // 4 or 16 bytes
	Port       uint16
	Version    int32
	ReinitDate int64
	Priority   int32
	ExpireAt   int64
}

// PeerNode is a peer descriptor: {id, addr_list, version, signature}.
// Named PeerNode here so it doesn't collide with the DHT's Node Facade.
type PeerNode struct {
	ID        [32]byte // public-key descriptor bytes
	AddrList  []AddressEntry
	Version   int32
	Signature []byte
}

// Key names a DHT key: {id, idx, name}.
type Key struct {
	ID   [32]byte
	Idx  int32
	Name []byte
}

// KeyDescription is a signed description of a DHT key: who claims it,
// under which update rule.
type KeyDescription struct {
	ID         [32]byte // public-key descriptor bytes (signer or overlay id)
	Key        Key
	Signature  []byte
	UpdateRule UpdateRule
}

// Value is a stored DHT value.
type Value struct {
	Key       KeyDescription
	Data      []byte
	TTL       int64
	Signature []byte
}

// Query carries the sender's signed node descriptor; it is the mandatory
// first element of the two-message bundle form.
type Query struct {
	Node PeerNode
}

// Ping requests an echo of RandomID.
type Ping struct {
	RandomID int64
}

// Pong echoes a Ping's RandomID.
type Pong struct {
	RandomID int64
}

// FindNode requests the K closest known peers to Key.
type FindNode struct {
	Key KeyID
	K   int32
}

// FindValue requests a stored value by Key, or the K closest peers if
// none is held.
type FindValue struct {
	Key KeyID
	K   int32
}

// GetSignedAddressList requests the receiver's own signed node descriptor.
type GetSignedAddressList struct{}

// Store asks the receiver to apply Value per its UpdateRule.
type Store struct {
	Value Value
}

// Nodes is a list of peer descriptors, used both as a FindNode reply and
// nested inside ValueNotFound.
type Nodes struct {
	Nodes []PeerNode
}

// ValueFound is a successful FindValue reply.
type ValueFound struct {
	Value Value
}

// ValueNotFound is a FindValue reply carrying the closest known peers
// instead of a value.
type ValueNotFound struct {
	Nodes Nodes
}

// Stored acknowledges a Store query.
type Stored struct{}

// KeyID is the 32-byte storage-key hash carried on the wire by FindNode
// and FindValue. Defined locally (rather than imported from dhtcrypto)
// so this package stays a serialization leaf with no dependency on the
// crypto adapter; it is bit-for-bit the same 32 bytes either way.
type KeyID [32]byte
