// Package limits defines the size constants and validation functions
// shared by the DHT's wire, storage, and transport layers.
//
// # Size Hierarchy
//
//   - MaxEnvelopeFrame (1372 bytes): the plaintext budget for a single
//     transport Envelope frame, chosen to keep an encrypted frame under
//     a conservative UDP datagram size.
//
//   - MaxEncryptedFrame (1388 bytes): MaxEnvelopeFrame plus the
//     ChaCha20-Poly1305 AEAD tag Noise appends.
//
//   - MaxValueData (4096 bytes): the maximum payload a Store query's
//     value may carry, whether a signed application value or an
//     encoded overlay-node list.
//
//   - MaxAddressList (16 entries): the maximum address-list length
//     accepted for a single PeerNode.
//
//   - MaxProcessingBuffer (1MB): the absolute maximum for any decoded
//     wire message, guarding against memory exhaustion from a corrupt
//     or hostile length prefix.
//
// # Validation Functions
//
//	if err := limits.ValidateValueData(value.Data); err != nil {
//	    // reject the Store query
//	}
//
// For custom limits, use the generic ValidateMessageSize:
//
//	err := limits.ValidateMessageSize(data, 4096)
package limits
