package dht

import (
	"errors"
	"sync"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
	"github.com/opd-ai/kadht/limits"
	"github.com/opd-ai/kadht/overlay"
	"github.com/opd-ai/kadht/wire"

	"github.com/sirupsen/logrus"
)

// ErrExpired is returned by Get for a hash whose stored value's ttl has
// elapsed; the caller sees it as if nothing were stored.
var ErrExpired = errors.New("dht: value expired")

// ErrUnsupportedUpdateRule is returned when a Store query names an
// update_rule outside {Signature, OverlayNodes}.
var ErrUnsupportedUpdateRule = errors.New("dht: unsupported update rule")

// ErrMalformedValue is returned when a Store query fails the structural
// checks of its update rule (bad ttl, bad key shape, bad overlay payload).
var ErrMalformedValue = errors.New("dht: malformed value")

// slot is one stored value plus the lock guarding updates to it, so a
// compare-and-update sequence for one hash never races with itself.
type slot struct {
	mu      sync.Mutex
	present bool
	value   wire.Value
}

// Storage is the map from 32-byte DHT key hash to current stored value.
type Storage struct {
	now       func() int64
	validator overlay.Validator

	mu      sync.RWMutex
	entries map[crypto.KeyID]*slot

	log *logrus.Entry
}

// NewStorage constructs an empty store. now reports the current
// wall-clock time in seconds since epoch (injectable for tests); validator
// checks overlay-node list membership for the OverlayNodes update rule.
func NewStorage(now func() int64, validator overlay.Validator) *Storage {
	return &Storage{
		now:       now,
		validator: validator,
		entries:   make(map[crypto.KeyID]*slot),
		log:       logrus.WithField("component", "dht.storage"),
	}
}

func (s *Storage) slotFor(hash crypto.KeyID, create bool) *slot {
	s.mu.RLock()
	sl, ok := s.entries[hash]
	s.mu.RUnlock()
	if ok || !create {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok = s.entries[hash]; ok {
		return sl
	}
	sl = &slot{}
	s.entries[hash] = sl
	return sl
}

// Get returns the stored value for hash, provided it has not expired.
func (s *Storage) Get(hash crypto.KeyID) (wire.Value, error) {
	sl := s.slotFor(hash, false)
	if sl == nil {
		return wire.Value{}, ErrExpired
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.present || sl.value.TTL <= s.now() {
		return wire.Value{}, ErrExpired
	}
	return sl.value, nil
}

// ProcessStoreSigned applies the Signature update rule: reject an already
// expired value, verify both signature fields, then upsert by
// ttl-monotonicity. Reports whether the stored state changed.
func (s *Storage) ProcessStoreSigned(hash crypto.KeyID, value wire.Value) (bool, error) {
	if value.TTL <= s.now() {
		return false, ErrMalformedValue
	}
	if err := limits.ValidateValueData(value.Data); err != nil {
		return false, ErrMalformedValue
	}
	if err := VerifyValue(value); err != nil {
		return false, err
	}

	sl := s.slotFor(hash, true)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.present {
		sl.value = value
		sl.present = true
		return true, nil
	}
	if sl.value.TTL < value.TTL {
		sl.value = value
		return true, nil
	}
	return false, nil
}

// ProcessStoreOverlayNodes applies the OverlayNodes update rule: both
// signature fields must be empty, and the DHT key must equal
// dht_key_from_key_id(hash_of(overlay_descriptor), "nodes"), where the
// key description's id is taken as the overlay descriptor's key bytes.
// Descriptor kinds are not distinguished, so no separate check that the
// id names an Overlay descriptor is made. The value's
// payload is an overlay-node list; invalid elements are dropped, and an
// empty surviving list rejects the store outright.
func (s *Storage) ProcessStoreOverlayNodes(hash crypto.KeyID, value wire.Value) (bool, error) {
	if len(value.Key.Signature) != 0 || len(value.Signature) != 0 {
		return false, ErrMalformedValue
	}
	if err := limits.ValidateValueData(value.Data); err != nil {
		return false, ErrMalformedValue
	}

	overlayDescriptor := crypto.PublicKeyDescriptor{Ed25519: value.Key.ID}
	overlayShortID := crypto.DeriveKeyID(overlayDescriptor)
	wantKey := DHTKeyFromKeyID(overlayShortID, "nodes")
	if value.Key.Key.ID != wantKey.ID || value.Key.Key.Idx != wantKey.Idx || string(value.Key.Key.Name) != string(wantKey.Name) {
		return false, ErrMalformedValue
	}

	nodes, err := overlay.DecodeList(value.Data)
	if err != nil {
		return false, ErrMalformedValue
	}
	surviving := nodes[:0]
	for _, n := range nodes {
		if s.validator.Validate(overlayShortID, n) {
			surviving = append(surviving, n)
		}
	}
	if len(surviving) == 0 {
		return false, ErrMalformedValue
	}

	sl := s.slotFor(hash, true)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	existing := sl.value
	existingFresh := sl.present && existing.TTL > s.now()
	if existingFresh && existing.TTL > value.TTL {
		return false, nil
	}

	merged := surviving
	if existingFresh {
		existingNodes, err := overlay.DecodeList(existing.Data)
		if err == nil {
			merged, err = mergeOverlayNodes(existingNodes, surviving)
			if err != nil {
				return false, nil
			}
		}
	}

	newValue := value
	newValue.Data = overlay.EncodeList(merged)
	sl.value = newValue
	sl.present = true
	return true, nil
}

// errNoChange signals the short-circuit case of mergeOverlayNodes: an
// incoming node's version is not an improvement over an existing one.
var errNoChange = errors.New("dht: overlay merge produced no change")

// mergeOverlayNodes applies the per-node merge rule: a greater-version
// match replaces the existing node, an equal-or-lesser-version match
// short-circuits the whole store as a no-op, and no match appends.
func mergeOverlayNodes(existing, incoming []overlay.Node) ([]overlay.Node, error) {
	byID := make(map[[32]byte]int, len(existing))
	merged := make([]overlay.Node, len(existing))
	copy(merged, existing)
	for i, n := range merged {
		byID[n.ID] = i
	}

	for _, n := range incoming {
		idx, ok := byID[n.ID]
		if !ok {
			merged = append(merged, n)
			byID[n.ID] = len(merged) - 1
			continue
		}
		if merged[idx].Version >= n.Version {
			return nil, errNoChange
		}
		merged[idx] = n
	}
	return merged, nil
}
