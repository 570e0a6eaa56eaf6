package dht

import (
	"context"
	"sync"
	"time"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
	"github.com/opd-ai/kadht/wire"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// MaxTasks bounds the number of outstanding FindValue requests one
// lookup session holds at a time.
const MaxTasks = 5

// FindNodeK and FindValueK are the fan-out parameters for FindNode and
// FindValue queries respectively.
const (
	FindNodeK  = 10
	FindValueK = 6
)

// AcceptFunc decides whether a candidate value's payload satisfies a
// FindValue caller's search.
type AcceptFunc func(data []byte) bool

// FoundValue is one FindValue result: the signed key description the
// value was stored under, and its payload.
type FoundValue struct {
	Key  wire.KeyDescription
	Data []byte
}

// LookupEngine is the iterative parallel search behind FindValue: a
// bounded pool of outstanding peer queries driven by goroutines, a
// sync.WaitGroup, and a buffered result channel, the idiomatic Go
// equivalent of an async task pool with capped concurrency.
type LookupEngine struct {
	cache     *KnownPeerCache
	adapter   Adapter
	selfQuery func() (wire.Query, error)
	addPeer   func(wire.PeerNode) error

	breakers sync.Map // crypto.KeyID -> *gobreaker.CircuitBreaker
	log      *logrus.Entry
}

// NewLookupEngine constructs a lookup engine over cache and adapter.
// selfQuery produces the sender-identifying envelope prefixed to every
// outbound query; addPeer feeds peer descriptors discovered via
// ValueNotFound replies back into the routing table.
func NewLookupEngine(cache *KnownPeerCache, adapter Adapter, selfQuery func() (wire.Query, error), addPeer func(wire.PeerNode) error) *LookupEngine {
	return &LookupEngine{
		cache:     cache,
		adapter:   adapter,
		selfQuery: selfQuery,
		addPeer:   addPeer,
		log:       logrus.WithField("component", "dht.lookup"),
	}
}

// breakerFor returns the circuit breaker guarding queries to peer,
// creating one on first use. A peer that keeps failing trips its
// breaker, so a lookup session stops wasting a task slot retrying a
// peer that is down.
func (e *LookupEngine) breakerFor(peer crypto.KeyID) *gobreaker.CircuitBreaker {
	if b, ok := e.breakers.Load(peer); ok {
		return b.(*gobreaker.CircuitBreaker)
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        peer.String(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})
	actual, _ := e.breakers.LoadOrStore(peer, b)
	return actual.(*gobreaker.CircuitBreaker)
}

// valueQuery issues one FindValue query against peer and interprets the
// reply: a satisfying ValueFound yields a result, a ValueNotFound seeds
// the caller's routing table via addPeer, and any transport failure or
// unsatisfying reply yields nothing. Never returns an error: timeouts
// and transport errors are simply "absent".
func (e *LookupEngine) valueQuery(ctx context.Context, peer crypto.KeyID, hkey crypto.KeyID, k int32, accept AcceptFunc) *FoundValue {
	query, err := e.selfQuery()
	if err != nil {
		return nil
	}
	frames, err := wire.Bundle(query, wire.FindValue{Key: wire.KeyID(hkey), K: k})
	if err != nil {
		return nil
	}

	breaker := e.breakerFor(peer)
	result, err := breaker.Execute(func() (interface{}, error) {
		return e.adapter.Send(ctx, peer, frames)
	})
	if err != nil {
		return nil
	}
	reply, _ := result.([][]byte)
	if len(reply) == 0 {
		return nil
	}

	_, payload, err := wire.Unmarshal(reply[len(reply)-1])
	if err != nil {
		return nil
	}

	switch msg := payload.(type) {
	case wire.ValueFound:
		if !accept(msg.Value.Data) {
			return nil
		}
		return &FoundValue{Key: msg.Value.Key, Data: msg.Value.Data}
	case wire.ValueNotFound:
		if e.addPeer != nil {
			for _, n := range msg.Nodes.Nodes {
				_ = e.addPeer(n)
			}
		}
		return nil
	default:
		return nil
	}
}

// FindValue locates one or many values satisfying accept. all=false
// returns at the first satisfying value; all=true accumulates up to
// MaxTasks satisfying values before returning. cursor resumes a prior
// call exactly where it stopped; pass nil to start from the cache's
// first entry. The returned cursor is nil once the cache is exhausted.
func (e *LookupEngine) FindValue(ctx context.Context, key wire.Key, accept AcceptFunc, all bool, cursor *Cursor) ([]FoundValue, *Cursor, error) {
	traceID := uuid.NewString()
	hkey := HashKey(key)
	log := e.log.WithField("trace_id", traceID)
	log.Debug("find_value fan-out started")

	var cur Cursor
	var curPeer crypto.KeyID
	var havePeer bool
	if cursor == nil {
		cur, curPeer, havePeer = e.cache.First()
	} else {
		cur = *cursor
		curPeer, havePeer = e.cache.Given(cur)
	}

	resultsCh := make(chan *FoundValue, MaxTasks)
	var wg sync.WaitGroup
	outstanding := 0
	var results []FoundValue

	spawn := func(peer crypto.KeyID) {
		outstanding++
		wg.Add(1)
		go func() {
			defer wg.Done()
			resultsCh <- e.valueQuery(ctx, peer, hkey, FindValueK, accept)
		}()
	}

	for {
		if !havePeer {
			var ok bool
			cur, curPeer, ok = e.cache.Next(cur)
			havePeer = ok
		}
		for havePeer && outstanding < MaxTasks {
			spawn(curPeer)
			var ok bool
			cur, curPeer, ok = e.cache.Next(cur)
			havePeer = ok
		}

		finished := outstanding == 0 && !havePeer
		terminate := (all && len(results) >= MaxTasks) || (!all && len(results) > 0) || finished
		if terminate {
			break
		}

		fv := <-resultsCh
		outstanding--
		if fv != nil {
			results = append(results, *fv)
		}
	}
	wg.Wait()
	log.WithField("results", len(results)).Debug("find_value fan-out finished")

	var outCursor *Cursor
	if havePeer {
		c := cur
		outCursor = &c
	}
	return results, outCursor, nil
}

// storeQuery issues one Store query against peer, discarding the reply;
// the caller learns success only via the subsequent read-back FindValue.
func (e *LookupEngine) storeQuery(ctx context.Context, peer crypto.KeyID, value wire.Value) {
	query, err := e.selfQuery()
	if err != nil {
		return
	}
	frames, err := wire.Bundle(query, wire.Store{Value: value})
	if err != nil {
		return
	}
	breaker := e.breakerFor(peer)
	_, _ = breaker.Execute(func() (interface{}, error) {
		return e.adapter.Send(ctx, peer, frames)
	})
}

// StoreValue applies value locally via applyLocal, then broadcasts a
// Store query to every peer the cache currently knows, then verifies
// propagation by running FindValue and handing the results to verifier.
// If verifier is unsatisfied and the cache has grown since, the
// broadcast-then-verify round repeats; it gives up once the cache stops
// growing. This "store then verify by reading back" loop gives eventual,
// best-effort persistence without positive storage acknowledgments.
func (e *LookupEngine) StoreValue(
	ctx context.Context,
	value wire.Value,
	applyLocal func(wire.Value) (bool, error),
	accept AcceptFunc,
	all bool,
	verifier func([]FoundValue) bool,
) (bool, error) {
	traceID := uuid.NewString()
	log := e.log.WithField("trace_id", traceID)

	if _, err := applyLocal(value); err != nil {
		return false, err
	}

	for round := 1; ; round++ {
		curCount := e.cache.Len()
		if curCount == 0 {
			return false, nil
		}
		log.WithFields(logrus.Fields{"round": round, "peers": curCount}).Debug("store_value broadcast round")

		var wg sync.WaitGroup
		cur, peer, ok := e.cache.First()
		for ok {
			wg.Add(1)
			go func(p crypto.KeyID) {
				defer wg.Done()
				e.storeQuery(ctx, p, value)
			}(peer)
			cur, peer, ok = e.cache.Next(cur)
		}
		wg.Wait()

		results, _, err := e.FindValue(ctx, value.Key.Key, accept, all, nil)
		if err != nil {
			return false, err
		}
		if verifier(results) {
			return true, nil
		}
		if e.cache.Len() <= curCount {
			return false, nil
		}
	}
}
