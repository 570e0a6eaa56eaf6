// Package limits provides centralized message and value size limits for
// the DHT's wire and storage layers. This ensures consistent validation
// across the protocol handler, storage, and transport components.
package limits

import "errors"

const (
	// MaxEnvelopeFrame is the plaintext budget for a single transport
	// Envelope frame, sized so a handshake-established session's
	// ciphertext still fits comfortably under a conservative UDP
	// datagram size.
	MaxEnvelopeFrame = 1372

	// MaxEncryptedFrame is MaxEnvelopeFrame after Noise's ChaCha20-Poly1305
	// AEAD overhead (16-byte tag).
	MaxEncryptedFrame = MaxEnvelopeFrame + 16

	// MaxValueData bounds a Store query's Value.Data payload. This
	// allows room for a reasonably sized signed payload or overlay-node
	// list while keeping a single stored value well under one datagram's
	// reassembled size.
	MaxValueData = 4096

	// MaxAddressList bounds the number of AddressEntry records a single
	// PeerNode may carry, so a malformed or hostile Nodes reply cannot
	// force unbounded decode work.
	MaxAddressList = 16

	// MaxProcessingBuffer is the absolute maximum for any decoded wire
	// message, preventing memory exhaustion from a corrupt or hostile
	// length-prefixed field.
	MaxProcessingBuffer = 1024 * 1024
)

// ErrMessageEmpty indicates an empty message was provided.
var ErrMessageEmpty = errors.New("empty message")

// ErrMessageTooLarge indicates a message exceeds its maximum size.
var ErrMessageTooLarge = errors.New("message too large")

// ValidateMessageSize validates data against an arbitrary maximum size.
func ValidateMessageSize(data []byte, maxSize int) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if len(data) > maxSize {
		return ErrMessageTooLarge
	}
	return nil
}

// ValidateValueData validates a Store query's value payload.
func ValidateValueData(data []byte) error {
	if len(data) > MaxValueData {
		return ErrMessageTooLarge
	}
	return nil
}

// ValidateEnvelopeFrame validates a single plaintext Envelope frame
// before it is handed to the Noise cipher for encryption.
func ValidateEnvelopeFrame(frame []byte) error {
	if len(frame) > MaxEnvelopeFrame {
		return ErrMessageTooLarge
	}
	return nil
}

// ValidateProcessingBuffer validates an inbound buffer against the
// absolute maximum before it is parsed.
func ValidateProcessingBuffer(data []byte) error {
	if len(data) > MaxProcessingBuffer {
		return ErrMessageTooLarge
	}
	return nil
}
