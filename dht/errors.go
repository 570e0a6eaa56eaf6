package dht

import "errors"

// Error kinds shared across the package. Most operations already return
// one of the more specific sentinels declared alongside the component that
// raises them (ErrSignatureInvalid in verify.go, ErrExpired and
// ErrMalformedValue in storage.go, ErrUnsupportedQuery and
// ErrMalformedBundle in handler.go, ErrZeroLimit in routing.go).
// ErrMalformedMessage covers a reply that isn't shaped like the query
// that produced it. ErrInternal names a downcast that fails after a
// positive type check; no operation in this package returns it.
var (
	// ErrMalformedMessage indicates a bad key length, wrong descriptor
	// variant, or a type mismatch on an expected downcast.
	ErrMalformedMessage = errors.New("dht: malformed message")

	// ErrInternal indicates an invariant was violated in a way the
	// caller cannot recover from: a type-tagged payload failed to
	// downcast after a positive type check.
	ErrInternal = errors.New("dht: internal invariant violated")
)
