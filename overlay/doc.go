// Package overlay implements the concrete overlay-membership validation
// collaborator: the routine that decides whether a node listed under a
// dht.store with UpdateRule = OverlayNodes is actually a valid member of
// the overlay that DHT key belongs to.
//
// The DHT core only ever calls Validator.Validate; it never inspects an
// overlay node's internal signature scheme itself, the same arm's-length
// relationship dht keeps with crypto elsewhere (dht/verify.go calls
// crypto.Verify, never touches ed25519 directly).
package overlay
