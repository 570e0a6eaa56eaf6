// Package dht implements the routing table, known-peer cache, storage
// engine, lookup engine, protocol handler, and node facade of a
// Kademlia-style DHT, generalized from a DHT routing table design to
// XOR-bucketed peer-id distance.
//
// This file provides the routing table: 256 buckets indexed by XOR
// distance between the local key-id and a peer's key-id, each bucket
// holding the latest signed descriptor known for every peer at that
// distance.
package dht

import (
	"errors"
	"sort"
	"sync"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
	"github.com/opd-ai/kadht/wire"

	"github.com/sirupsen/logrus"
)

// ErrZeroLimit is returned by KnownNodes when asked for zero entries.
var ErrZeroLimit = errors.New("dht: limit must be greater than zero")

// bucketBits is the fixed nibble lookup used to finish a distance
// computation once the scan reaches a non-zero nibble: bucketBits[n] is
// the count of leading zero bits of the 4-bit value n.
var bucketBits = [16]int{4, 3, 2, 2, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0}

// distance returns the count of leading matching bits between two
// key-ids: iterate bytes; a zero XOR byte contributes all 8 bits and the
// scan continues into the next byte; a non-zero byte contributes 4 bits
// if its high nibble is zero (and the low nibble is then looked up in
// bucketBits), otherwise the high nibble itself is looked up directly.
// Two distinct key-ids always yield a value less than 256.
func distance(a, b crypto.KeyID) int {
	d := 0
	for i := 0; i < len(a); i++ {
		x := a[i] ^ b[i]
		if x == 0 {
			d += 8
			continue
		}
		hi := x >> 4
		if hi == 0 {
			d += 4 + bucketBits[x&0x0f]
		} else {
			d += bucketBits[hi]
		}
		break
	}
	return d
}

// bucket holds the peers at one distance from the local key-id.
type bucket struct {
	mu      sync.RWMutex
	entries map[crypto.KeyID]wire.PeerNode
}

func newBucket() *bucket {
	return &bucket{entries: make(map[crypto.KeyID]wire.PeerNode)}
}

// upsert applies the version-monotonic replacement rule: a lesser-version
// existing entry is replaced, an equal-or-greater one is kept, and an
// absent entry is inserted outright. Reports whether the bucket's
// contents changed.
func (b *bucket) upsert(id crypto.KeyID, peer wire.PeerNode) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, ok := b.entries[id]
	if ok && existing.Version >= peer.Version {
		return false
	}
	b.entries[id] = peer
	return true
}

func (b *bucket) snapshot() []wire.PeerNode {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]wire.PeerNode, 0, len(b.entries))
	for _, peer := range b.entries {
		out = append(out, peer)
	}
	return out
}

// RoutingTable is the 256-bucket XOR-distance table of known peers,
// rooted at a local key-id. It never holds an entry for its own key-id;
// bucket reads (FindKClosest, KnownNodes) and bucket writes (Upsert) run
// concurrently, guarded per-bucket rather than by one table-wide lock.
type RoutingTable struct {
	local   crypto.KeyID
	buckets [256]*bucket
	log     *logrus.Entry
}

// NewRoutingTable constructs an empty table rooted at the given local
// key-id.
func NewRoutingTable(local crypto.KeyID) *RoutingTable {
	rt := &RoutingTable{
		local: local,
		log:   logrus.WithField("component", "dht.routing"),
	}
	for i := range rt.buckets {
		rt.buckets[i] = newBucket()
	}
	return rt
}

// Local returns the key-id this table is rooted at.
func (rt *RoutingTable) Local() crypto.KeyID {
	return rt.local
}

// Upsert inserts or updates a peer's entry in the bucket its key-id falls
// into relative to the local key-id. The local key-id itself is always
// rejected. Reports whether the table's contents changed.
func (rt *RoutingTable) Upsert(id crypto.KeyID, peer wire.PeerNode) bool {
	if id == rt.local {
		return false
	}
	d := distance(rt.local, id)
	changed := rt.buckets[d].upsert(id, peer)
	if changed {
		rt.log.WithFields(logrus.Fields{
			"peer":    id.String(),
			"bucket":  d,
			"version": peer.Version,
		}).Debug("routing table entry upserted")
	}
	return changed
}

// FindKClosest returns up to k peers ordered by increasing XOR distance
// to target.
func (rt *RoutingTable) FindKClosest(target crypto.KeyID, k int) []wire.PeerNode {
	if k <= 0 {
		return nil
	}

	type scored struct {
		peer wire.PeerNode
		bits int // leading matching bits vs target; higher means closer
	}
	var all []scored
	for _, b := range rt.buckets {
		for _, peer := range b.snapshot() {
			peerID := crypto.DeriveKeyID(crypto.PublicKeyDescriptor{Ed25519: peer.ID})
			all = append(all, scored{peer: peer, bits: distance(target, peerID)})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].bits > all[j].bits
	})

	if k > len(all) {
		k = len(all)
	}
	out := make([]wire.PeerNode, k)
	for i := 0; i < k; i++ {
		out[i] = all[i].peer
	}
	return out
}

// KnownNodes returns the first limit peer descriptors found by iterating
// buckets 0..255 in ascending index order. limit must be positive.
func (rt *RoutingTable) KnownNodes(limit int) ([]wire.PeerNode, error) {
	if limit <= 0 {
		return nil, ErrZeroLimit
	}

	out := make([]wire.PeerNode, 0, limit)
	for _, b := range rt.buckets {
		for _, peer := range b.snapshot() {
			out = append(out, peer)
			if len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}
