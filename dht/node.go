package dht

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
	"github.com/opd-ai/kadht/overlay"
	"github.com/opd-ai/kadht/wire"

	"github.com/sirupsen/logrus"
)

// TimeoutValue is the TTL, in seconds, applied to a node's own
// self-signed stores.
const TimeoutValue = 3600

// ErrNoAddressFound is returned by FindAddress when a lookup completes
// without a satisfying value.
var ErrNoAddressFound = errors.New("dht: no address found")

// LocalNode is the Node Facade: construction, self-signing, and every
// outbound operation, wrapping a RoutingTable, KnownPeerCache, Storage,
// LookupEngine, ProtocolHandler, a transport Adapter and a
// dhtcrypto.Adapter, generalized from a single bootstrap-client role to
// the full outbound facade.
type LocalNode struct {
	id      crypto.KeyID
	keys    *crypto.Adapter
	adapter Adapter
	now     func() int64

	routing *RoutingTable
	cache   *KnownPeerCache
	storage *Storage
	lookup  *LookupEngine
	handler *ProtocolHandler

	addrs []wire.AddressEntry

	log *logrus.Entry
}

// NewLocalNode constructs a node rooted at keys' local identity, wired to
// adapter for transport. addrs seeds the self-signed descriptor's
// address list. validator checks overlay-node membership for Store's
// OverlayNodes rule. now reports the current wall-clock time in seconds
// since epoch. The protocol handler is installed on adapter as a
// subscriber: adapter holds the only owning reference back to this node,
// avoiding an ownership cycle.
func NewLocalNode(keys *crypto.Adapter, adapter Adapter, addrs []wire.AddressEntry, validator overlay.Validator, now func() int64) *LocalNode {
	id := keys.LocalKeyID()
	routing := NewRoutingTable(id)
	cache := NewKnownPeerCache()
	storage := NewStorage(now, validator)

	n := &LocalNode{
		id:      id,
		keys:    keys,
		adapter: adapter,
		now:     now,
		routing: routing,
		cache:   cache,
		storage: storage,
		addrs:   addrs,
		log:     logrus.WithField("component", "dht.node"),
	}

	n.lookup = NewLookupEngine(cache, adapter, n.selfQuery, n.AddPeer)
	n.handler = NewProtocolHandler(routing, cache, storage, adapter, n.GetSignedNode)
	adapter.Subscribe(n.dispatch)
	return n
}

// dispatch is installed as the transport Adapter's inbound subscriber.
func (n *LocalNode) dispatch(from crypto.KeyID, frames [][]byte) [][]byte {
	var reply []byte
	var err error
	if len(frames) == 1 {
		reply, err = n.handler.TryConsumeQuery(frames[0])
	} else {
		reply, err = n.handler.TryConsumeQueryBundle(frames)
	}
	if err != nil {
		n.log.WithError(err).WithField("peer", from.String()).Warn("inbound query rejected")
		return nil
	}
	return [][]byte{reply}
}

// selfQuery builds the Query envelope prefixed to every outbound query.
func (n *LocalNode) selfQuery() (wire.Query, error) {
	node, err := n.GetSignedNode()
	if err != nil {
		return wire.Query{}, err
	}
	return wire.Query{Node: node}, nil
}

// SelfKeyID returns this node's own key-id.
func (n *LocalNode) SelfKeyID() crypto.KeyID { return n.id }

// GetSignedNode returns this node's freshly self-signed descriptor.
func (n *LocalNode) GetSignedNode() (wire.PeerNode, error) {
	unsigned := wire.PeerNode{
		ID:       n.keys.PublicDescriptor().Ed25519,
		AddrList: n.addrs,
		Version:  int32(n.now()),
	}
	return SignNode(n.keys, unsigned)
}

// AddPeer verifies and registers a peer descriptor.
func (n *LocalNode) AddPeer(peer wire.PeerNode) error {
	return n.handler.AddPeer(peer)
}

// randomID draws a fresh 64-bit value for a Ping's random_id field.
func randomID() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// Ping sends Ping{random_id} to dst and reports whether the echoed
// random_id in the reply matches.
func (n *LocalNode) Ping(ctx context.Context, dst crypto.KeyID) (bool, error) {
	query, err := n.selfQuery()
	if err != nil {
		return false, err
	}
	id, err := randomID()
	if err != nil {
		return false, err
	}
	frames, err := wire.Bundle(query, wire.Ping{RandomID: id})
	if err != nil {
		return false, err
	}

	reply, err := n.adapter.Send(ctx, dst, frames)
	if err != nil || len(reply) == 0 {
		return false, nil
	}
	_, payload, err := wire.Unmarshal(reply[len(reply)-1])
	if err != nil {
		return false, nil
	}
	pong, ok := payload.(wire.Pong)
	return ok && pong.RandomID == id, nil
}

// FindDHTNodes queries dst for the peers closest to this node's own
// key-id and adds every returned descriptor to the routing table.
// Reports whether dst answered with a Nodes reply.
func (n *LocalNode) FindDHTNodes(ctx context.Context, dst crypto.KeyID) (bool, error) {
	query, err := n.selfQuery()
	if err != nil {
		return false, err
	}
	frames, err := wire.Bundle(query, wire.FindNode{Key: wire.KeyID(n.id), K: FindNodeK})
	if err != nil {
		return false, err
	}

	reply, err := n.adapter.Send(ctx, dst, frames)
	if err != nil || len(reply) == 0 {
		return false, nil
	}
	_, payload, err := wire.Unmarshal(reply[len(reply)-1])
	if err != nil {
		return false, nil
	}
	nodes, ok := payload.(wire.Nodes)
	if !ok {
		return false, nil
	}
	for _, peer := range nodes.Nodes {
		_ = n.AddPeer(peer)
	}
	return true, nil
}

// FetchAddress reads a stored address record for keyID directly from
// local storage, performing no network I/O.
func (n *LocalNode) FetchAddress(keyID crypto.KeyID) (wire.Value, error) {
	hash := HashKey(DHTKeyFromKeyID(keyID, "address"))
	return n.storage.Get(hash)
}

// FindAddress locates keyID's address record across the network.
func (n *LocalNode) FindAddress(ctx context.Context, keyID crypto.KeyID) (wire.Value, error) {
	dhtKey := DHTKeyFromKeyID(keyID, "address")
	accept := func(data []byte) bool { return len(data) > 0 }

	results, _, err := n.lookup.FindValue(ctx, dhtKey, accept, false, nil)
	if err != nil {
		return wire.Value{}, err
	}
	if len(results) == 0 {
		return wire.Value{}, ErrNoAddressFound
	}
	return wire.Value{Key: results[0].Key, Data: results[0].Data}, nil
}

// FindOverlayNodes locates the member list stored for overlayShortID,
// resuming from cursor if given. An unsuccessful lookup yields an empty
// list rather than an error.
func (n *LocalNode) FindOverlayNodes(ctx context.Context, overlayShortID crypto.KeyID, cursor *Cursor) ([]overlay.Node, *Cursor, error) {
	dhtKey := DHTKeyFromKeyID(overlayShortID, "nodes")
	accept := func(data []byte) bool {
		_, err := overlay.DecodeList(data)
		return err == nil
	}

	results, outCursor, err := n.lookup.FindValue(ctx, dhtKey, accept, false, cursor)
	if err != nil {
		return nil, outCursor, err
	}
	if len(results) == 0 {
		return nil, outCursor, nil
	}
	nodes, err := overlay.DecodeList(results[0].Data)
	if err != nil {
		return nil, outCursor, nil
	}
	return nodes, outCursor, nil
}

// GetKnownPeer advances the Known-Peer Cache cursor by one and returns
// the peer key-id it yields. Pass nil to start from the first entry.
func (n *LocalNode) GetKnownPeer(cursor *Cursor) (crypto.KeyID, *Cursor, bool) {
	var cur Cursor
	var id crypto.KeyID
	var ok bool
	if cursor == nil {
		cur, id, ok = n.cache.First()
	} else {
		cur, id, ok = n.cache.Next(*cursor)
	}
	if !ok {
		return crypto.KeyID{}, nil, false
	}
	c := cur
	return id, &c, true
}

// GetKnownNodes returns the first limit peer descriptors known to the
// routing table.
func (n *LocalNode) GetKnownNodes(limit int) ([]wire.PeerNode, error) {
	return n.routing.KnownNodes(limit)
}

// GetSignedAddressList queries dst for its own self-signed node
// descriptor and verifies the reply before returning it.
func (n *LocalNode) GetSignedAddressList(ctx context.Context, dst crypto.KeyID) (wire.PeerNode, error) {
	query, err := n.selfQuery()
	if err != nil {
		return wire.PeerNode{}, err
	}
	frames, err := wire.Bundle(query, wire.GetSignedAddressList{})
	if err != nil {
		return wire.PeerNode{}, err
	}

	reply, err := n.adapter.Send(ctx, dst, frames)
	if err != nil {
		return wire.PeerNode{}, err
	}
	if len(reply) == 0 {
		return wire.PeerNode{}, ErrMalformedMessage
	}
	_, payload, err := wire.Unmarshal(reply[len(reply)-1])
	if err != nil {
		return wire.PeerNode{}, err
	}
	answer, ok := payload.(wire.Query)
	if !ok {
		return wire.PeerNode{}, ErrMalformedMessage
	}
	if err := VerifyOtherNode(answer.Node); err != nil {
		return wire.PeerNode{}, err
	}
	return answer.Node, nil
}

// StoreIPAddress self-signs this node's descriptor and publishes it
// under dht_key_from_key_id(self, "address"), broadcasting to every
// known peer and verifying propagation by reading it back.
func (n *LocalNode) StoreIPAddress(ctx context.Context) (bool, error) {
	node, err := n.GetSignedNode()
	if err != nil {
		return false, err
	}

	keyDesc, err := SignKeyDescription(n.keys, wire.KeyDescription{
		ID:         n.keys.PublicDescriptor().Ed25519,
		Key:        DHTKeyFromKeyID(n.id, "address"),
		UpdateRule: wire.RuleSignature,
	})
	if err != nil {
		return false, err
	}

	value, err := SignValue(n.keys, wire.Value{
		Key:  keyDesc,
		Data: wire.EncodeNode(node),
		TTL:  n.now() + TimeoutValue,
	})
	if err != nil {
		return false, err
	}

	hash := HashKey(keyDesc.Key)
	applyLocal := func(v wire.Value) (bool, error) { return n.storage.ProcessStoreSigned(hash, v) }
	accept := func(data []byte) bool { return len(data) > 0 }
	verifier := func(results []FoundValue) bool { return len(results) > 0 }

	return n.lookup.StoreValue(ctx, value, applyLocal, accept, false, verifier)
}

// StoreOverlayNode publishes a single overlay-member entry under
// dht_key_from_key_id(hash_of(overlayDescriptor), "nodes"), merging with
// whatever member list is already stored there.
func (n *LocalNode) StoreOverlayNode(ctx context.Context, overlayDescriptor [32]byte, member overlay.Node) (bool, error) {
	overlayShortID := crypto.DeriveKeyID(crypto.PublicKeyDescriptor{Ed25519: overlayDescriptor})
	dhtKey := DHTKeyFromKeyID(overlayShortID, "nodes")

	value := wire.Value{
		Key: wire.KeyDescription{
			ID:         overlayDescriptor,
			Key:        dhtKey,
			UpdateRule: wire.RuleOverlayNodes,
		},
		Data: overlay.EncodeList([]overlay.Node{member}),
		TTL:  n.now() + TimeoutValue,
	}

	hash := HashKey(dhtKey)
	applyLocal := func(v wire.Value) (bool, error) { return n.storage.ProcessStoreOverlayNodes(hash, v) }
	accept := func(data []byte) bool {
		nodes, err := overlay.DecodeList(data)
		if err != nil {
			return false
		}
		for _, nd := range nodes {
			if nd.ID == member.ID {
				return true
			}
		}
		return false
	}
	verifier := func(results []FoundValue) bool { return len(results) > 0 }

	return n.lookup.StoreValue(ctx, value, applyLocal, accept, false, verifier)
}

// TryConsumeQuery handles a solo inbound message, for callers that own
// their own transport loop instead of using adapter's subscriber hook.
func (n *LocalNode) TryConsumeQuery(frame []byte) ([]byte, error) {
	return n.handler.TryConsumeQuery(frame)
}

// TryConsumeQueryBundle handles a two-message bundle, for callers that
// own their own transport loop instead of using adapter's subscriber
// hook.
func (n *LocalNode) TryConsumeQueryBundle(frames [][]byte) ([]byte, error) {
	return n.handler.TryConsumeQueryBundle(frames)
}
