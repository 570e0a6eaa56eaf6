package dht

import (
	"context"
	"fmt"

	crypto "github.com/opd-ai/kadht/dhtcrypto"

	"github.com/sirupsen/logrus"
)

// SeedPeer is a well-known entry point used to join the network: a
// key-id paired with the address the Transport Adapter should already
// know how to reach (addresses themselves are the transport's concern,
// not the DHT core's).
type SeedPeer struct {
	ID crypto.KeyID
}

// Bootstrap seeds node's routing table and known-peer cache by querying
// every seed for its closest peers: connect to a handful of well-known
// nodes, then grow the table via FindNode, using this package's
// FindDHTNodes facade call. It returns an error only if every seed
// failed to answer.
func Bootstrap(ctx context.Context, node *LocalNode, seeds []SeedPeer) error {
	log := logrus.WithField("component", "dht.bootstrap")

	if len(seeds) == 0 {
		return fmt.Errorf("dht: bootstrap requires at least one seed peer")
	}

	succeeded := 0
	for _, seed := range seeds {
		ok, err := node.FindDHTNodes(ctx, seed.ID)
		if err != nil {
			log.WithError(err).WithField("seed", seed.ID.String()).Warn("bootstrap seed query failed")
			continue
		}
		if ok {
			succeeded++
		}
	}

	if succeeded == 0 {
		return fmt.Errorf("dht: bootstrap failed, no seed peer answered")
	}
	log.WithField("succeeded", succeeded).WithField("total", len(seeds)).Info("bootstrap complete")
	return nil
}
