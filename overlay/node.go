package overlay

// Node is a single member entry of the nested list carried in a DHT
// value stored under UpdateRule = OverlayNodes.
type Node struct {
	ID        [32]byte
	Version   int32
	Signature []byte
}

// Validator is the external overlay-membership validation collaborator.
// Given the overlay's short id (the key-id of its descriptor) and a
// candidate member Node, it decides whether the node is a genuine
// member of that overlay.
type Validator interface {
	Validate(overlayShortID [32]byte, node Node) bool
}
