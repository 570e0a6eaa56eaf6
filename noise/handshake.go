// Package noise provides Noise Protocol Framework implementation for
// transport-layer handshakes.
//
// This package implements the XX pattern: neither side needs to know the
// other's Noise static key in advance, which matches how DHT peers are
// discovered (by key-id, not by a pre-shared transport key).
package noise

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/flynn/noise"
)

var (
	// ErrHandshakeNotComplete indicates handshake is still in progress
	ErrHandshakeNotComplete = errors.New("handshake not complete")
	// ErrHandshakeComplete indicates handshake is already complete
	ErrHandshakeComplete = errors.New("handshake already complete")
)

// HandshakeRole defines whether we're initiating or responding to handshake
type HandshakeRole uint8

const (
	// Initiator starts the handshake
	Initiator HandshakeRole = iota
	// Responder responds to handshake initiation
	Responder
)

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// XXHandshake drives one Noise-XX session to completion: three messages,
// full mutual authentication of the session's static keys, and a pair of
// cipher states at the end.
type XXHandshake struct {
	role       HandshakeRole
	state      *noise.HandshakeState
	sendCipher *noise.CipherState
	recvCipher *noise.CipherState
	complete   bool
	localPub   [32]byte
}

// NewXXHandshake creates a new XX pattern handshake bound to a local
// static Curve25519 keypair (see GenerateStaticKeypair).
func NewXXHandshake(staticPriv, staticPub [32]byte, role HandshakeRole) (*XXHandshake, error) {
	staticKey := noise.DHKey{
		Private: append([]byte(nil), staticPriv[:]...),
		Public:  append([]byte(nil), staticPub[:]...),
	}

	config := noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     role == Initiator,
		StaticKeypair: staticKey,
	}

	state, err := noise.NewHandshakeState(config)
	if err != nil {
		return nil, fmt.Errorf("noise: create XX handshake state: %w", err)
	}

	return &XXHandshake{role: role, state: state, localPub: staticPub}, nil
}

// WriteMessage produces the next outbound handshake message, optionally
// carrying an authenticated payload once the transport keys have been
// exchanged (messages 2 and 3 encrypt their payload; message 1 does not).
func (xx *XXHandshake) WriteMessage(payload []byte) ([]byte, bool, error) {
	if xx.complete {
		return nil, false, ErrHandshakeComplete
	}
	message, send, recv, err := xx.state.WriteMessage(nil, payload)
	if err != nil {
		return nil, false, fmt.Errorf("noise: XX write failed: %w", err)
	}
	if send != nil && recv != nil {
		xx.setCiphers(send, recv)
	}
	return message, xx.complete, nil
}

// ReadMessage consumes an inbound handshake message and returns any
// payload it carried.
func (xx *XXHandshake) ReadMessage(message []byte) ([]byte, bool, error) {
	if xx.complete {
		return nil, false, ErrHandshakeComplete
	}
	payload, send, recv, err := xx.state.ReadMessage(nil, message)
	if err != nil {
		return nil, false, fmt.Errorf("noise: XX read failed: %w", err)
	}
	if send != nil && recv != nil {
		xx.setCiphers(send, recv)
	}
	return payload, xx.complete, nil
}

// setCiphers records the split cipher states and marks the handshake
// complete. flynn/noise returns them in initiator-to-responder,
// responder-to-initiator order on both ends, so the responder swaps them.
func (xx *XXHandshake) setCiphers(c1, c2 *noise.CipherState) {
	if xx.role == Responder {
		c1, c2 = c2, c1
	}
	xx.sendCipher, xx.recvCipher, xx.complete = c1, c2, true
}

// IsComplete reports whether the handshake has finished.
func (xx *XXHandshake) IsComplete() bool { return xx.complete }

// CipherStates returns the session's send/receive AEAD cipher states.
// Send encrypts what we transmit; Recv decrypts what we receive. The
// pair is asymmetric between the two ends of a session by construction.
func (xx *XXHandshake) CipherStates() (send, recv *noise.CipherState, err error) {
	if !xx.complete {
		return nil, nil, ErrHandshakeNotComplete
	}
	return xx.sendCipher, xx.recvCipher, nil
}

// RemoteStatic returns the peer's Noise static public key, known only
// after the handshake completes.
func (xx *XXHandshake) RemoteStatic() ([32]byte, error) {
	var out [32]byte
	if !xx.complete {
		return out, ErrHandshakeNotComplete
	}
	remote := xx.state.PeerStatic()
	if len(remote) != 32 {
		return out, fmt.Errorf("noise: unexpected remote static key length %d", len(remote))
	}
	copy(out[:], remote)
	return out, nil
}
