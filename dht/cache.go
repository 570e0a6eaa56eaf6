package dht

import (
	"sync"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
)

// MaxPeers bounds the Known-Peer Cache's size.
const MaxPeers = 65536

// Cursor is a stable handle into a KnownPeerCache's insertion order,
// usable across asynchronous suspension points: concurrent insertions
// never invalidate an existing cursor, and repeated Next calls eventually
// visit every key-id present when the cursor was created.
type Cursor struct {
	idx int // index of the most recently yielded element; -1 before First
}

// zeroCursor is the cursor value yielded by First on an empty cache.
var zeroCursor = Cursor{idx: -1}

// KnownPeerCache is the bounded, insertion-ordered set of peer key-ids
// a node has seen. It is backed by an append-only slice (so cursor
// indices remain stable forever) plus an exact dedup set.
type KnownPeerCache struct {
	mu    sync.Mutex
	order []crypto.KeyID
	seen  map[crypto.KeyID]struct{}
}

// NewKnownPeerCache constructs an empty cache.
func NewKnownPeerCache() *KnownPeerCache {
	return &KnownPeerCache{
		seen: make(map[crypto.KeyID]struct{}),
	}
}

// Insert adds id to the cache if it is not already present and the cache
// is below MaxPeers. Reports whether a new entry was added.
func (c *KnownPeerCache) Insert(id crypto.KeyID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return false
	}
	if len(c.order) >= MaxPeers {
		return false
	}

	c.seen[id] = struct{}{}
	c.order = append(c.order, id)
	return true
}

// Len reports the number of distinct key-ids currently held.
func (c *KnownPeerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// First returns a cursor positioned at the oldest known key-id, along
// with that key-id. ok is false if the cache is empty.
func (c *KnownPeerCache) First() (Cursor, crypto.KeyID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) == 0 {
		return zeroCursor, crypto.KeyID{}, false
	}
	return Cursor{idx: 0}, c.order[0], true
}

// Next advances cur by one insertion-order position. ok is false if cur
// was already at the newest known key-id (the cache may still grow
// later; a subsequent Next call will then succeed).
func (c *KnownPeerCache) Next(cur Cursor) (Cursor, crypto.KeyID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := cur.idx + 1
	if next < 0 || next >= len(c.order) {
		return cur, crypto.KeyID{}, false
	}
	return Cursor{idx: next}, c.order[next], true
}

// Given re-yields the element most recently returned by cur, used by the
// lookup engine to retry against the same peer after a wait.
func (c *KnownPeerCache) Given(cur Cursor) (crypto.KeyID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur.idx < 0 || cur.idx >= len(c.order) {
		return crypto.KeyID{}, false
	}
	return c.order[cur.idx], true
}
