package dht

import (
	"errors"
	"fmt"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
	"github.com/opd-ai/kadht/wire"

	"github.com/sirupsen/logrus"
)

// ErrUnsupportedQuery is returned for a bundle or solo message that is
// not one of Ping/FindNode/FindValue/GetSignedAddressList/Store, or a
// Store naming an update_rule outside {Signature, OverlayNodes}.
var ErrUnsupportedQuery = errors.New("dht: unsupported query")

// ErrMalformedBundle is returned for a two-message envelope whose length
// is not 2, or whose first element is not a Query.
var ErrMalformedBundle = errors.New("dht: malformed bundle")

// ProtocolHandler is the inbound dispatch for the DHT's query/reply
// protocol: it answers Ping, FindNode, FindValue, GetSignedAddressList,
// and Store queries, and unwraps the two-message bundle envelope,
// following a switch-on-message-type dispatch with sender-registration
// ahead of the main query.
type ProtocolHandler struct {
	routing *RoutingTable
	cache   *KnownPeerCache
	storage *Storage
	adapter Adapter
	signer  func() (wire.PeerNode, error)

	log *logrus.Entry
}

// NewProtocolHandler constructs a handler over the given collaborators.
// signer returns the node's own freshly self-signed descriptor, used to
// answer GetSignedAddressList.
func NewProtocolHandler(routing *RoutingTable, cache *KnownPeerCache, storage *Storage, adapter Adapter, signer func() (wire.PeerNode, error)) *ProtocolHandler {
	return &ProtocolHandler{
		routing: routing,
		cache:   cache,
		storage: storage,
		adapter: adapter,
		signer:  signer,
		log:     logrus.WithField("component", "dht.handler"),
	}
}

// AddPeer verifies a peer descriptor's self-signature, hands it to the
// Transport Adapter's peer registry, and on a fresh key-id inserts it
// into the Known-Peer Cache and upserts it into the routing table.
func (h *ProtocolHandler) AddPeer(peer wire.PeerNode) error {
	if err := VerifyOtherNode(peer); err != nil {
		return err
	}
	descriptor := crypto.PublicKeyDescriptor{Ed25519: peer.ID}
	id := crypto.DeriveKeyID(descriptor)
	if !h.adapter.RegisterPeer(id, peer) {
		return nil
	}
	if h.cache.Insert(id) {
		h.routing.Upsert(id, peer)
	}
	return nil
}

// dispatchSolo answers exactly one of Ping/FindNode/FindValue/
// GetSignedAddressList/Store, returning the wire frame to send back.
func (h *ProtocolHandler) dispatchSolo(msg any) ([]byte, error) {
	switch m := msg.(type) {
	case wire.Ping:
		return wire.Marshal(wire.Pong{RandomID: m.RandomID})

	case wire.FindNode:
		k := int(m.K)
		if k <= 0 {
			k = FindNodeK
		}
		peers := h.routing.FindKClosest(crypto.KeyID(m.Key), k)
		return wire.Marshal(wire.Nodes{Nodes: peers})

	case wire.FindValue:
		hash := crypto.KeyID(m.Key)
		value, err := h.storage.Get(hash)
		if err == nil {
			return wire.Marshal(wire.ValueFound{Value: value})
		}
		k := int(m.K)
		if k <= 0 {
			k = FindValueK
		}
		peers := h.routing.FindKClosest(hash, k)
		return wire.Marshal(wire.ValueNotFound{Nodes: wire.Nodes{Nodes: peers}})

	case wire.GetSignedAddressList:
		self, err := h.signer()
		if err != nil {
			return nil, err
		}
		return wire.Marshal(wire.Query{Node: self})

	case wire.Store:
		return h.handleStore(m.Value)

	default:
		return nil, ErrUnsupportedQuery
	}
}

func (h *ProtocolHandler) handleStore(value wire.Value) ([]byte, error) {
	hash := HashKey(value.Key.Key)

	var changed bool
	var err error
	switch value.Key.UpdateRule {
	case wire.RuleSignature:
		changed, err = h.storage.ProcessStoreSigned(hash, value)
	case wire.RuleOverlayNodes:
		changed, err = h.storage.ProcessStoreOverlayNodes(hash, value)
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedQuery, ErrUnsupportedUpdateRule)
	}
	if err != nil {
		return nil, err
	}

	h.log.WithFields(logrus.Fields{
		"hash":    hash.String(),
		"rule":    value.Key.UpdateRule,
		"changed": changed,
	}).Debug("store applied")
	return wire.Marshal(wire.Stored{})
}

// TryConsumeQuery handles a solo (non-bundle) inbound message and
// returns the reply frame.
func (h *ProtocolHandler) TryConsumeQuery(frame []byte) ([]byte, error) {
	_, msg, err := wire.Unmarshal(frame)
	if err != nil {
		return nil, err
	}
	return h.dispatchSolo(msg)
}

// TryConsumeQueryBundle handles the two-message envelope form: frames
// must have length 2, and the first element must decode to a Query. The
// sender's descriptor is added to the routing table and cache, then the
// second message is processed as a solo query.
func (h *ProtocolHandler) TryConsumeQueryBundle(frames [][]byte) ([]byte, error) {
	if len(frames) != 2 {
		return nil, ErrMalformedBundle
	}

	_, first, err := wire.Unmarshal(frames[0])
	if err != nil {
		return nil, err
	}
	query, ok := first.(wire.Query)
	if !ok {
		return nil, ErrMalformedBundle
	}
	if err := h.AddPeer(query.Node); err != nil {
		h.log.WithError(err).Warn("dropping peer with invalid self-signature")
	}

	return h.TryConsumeQuery(frames[1])
}
