// Package transport implements packet framing for the Adapter's two wire
// concerns: the three-message Noise-XX handshake, and the encrypted
// request/response envelope that rides atop an established session.
package transport

import (
	"encoding/binary"
	"errors"
)

// Envelope frames one Adapter.Send call's request or its matching
// response: a request id for correlation plus the one-or-two query
// frames dht.ProtocolHandler exchanges over the bundle protocol.
type Envelope struct {
	RequestID uint64
	Frames    [][]byte
}

// SerializeEnvelope encodes an Envelope as [request_id(8)][count(1)]{[len(4)][frame]}*.
func SerializeEnvelope(e *Envelope) []byte {
	size := 8 + 1
	for _, f := range e.Frames {
		size += 4 + len(f)
	}
	out := make([]byte, size)
	binary.BigEndian.PutUint64(out[0:8], e.RequestID)
	out[8] = byte(len(e.Frames))
	offset := 9
	for _, f := range e.Frames {
		binary.BigEndian.PutUint32(out[offset:offset+4], uint32(len(f)))
		offset += 4
		copy(out[offset:offset+len(f)], f)
		offset += len(f)
	}
	return out
}

// ParseEnvelope is the inverse of SerializeEnvelope.
func ParseEnvelope(data []byte) (*Envelope, error) {
	if len(data) < 9 {
		return nil, errors.New("transport: envelope too short")
	}
	e := &Envelope{RequestID: binary.BigEndian.Uint64(data[0:8])}
	count := int(data[8])
	offset := 9
	for i := 0; i < count; i++ {
		if len(data) < offset+4 {
			return nil, errors.New("transport: envelope frame header truncated")
		}
		n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if len(data) < offset+n {
			return nil, errors.New("transport: envelope frame truncated")
		}
		frame := make([]byte, n)
		copy(frame, data[offset:offset+n])
		e.Frames = append(e.Frames, frame)
		offset += n
	}
	return e, nil
}

// HandshakePacket carries one of the Noise-XX pattern's three messages.
// Step distinguishes them (0 = initiator's first message, 1 = responder's
// reply, 2 = initiator's final message) since all three travel as the
// same PacketNoiseHandshake packet type.
type HandshakePacket struct {
	Step          uint8
	HandshakeData []byte
}

// SerializeHandshakePacket encodes a HandshakePacket as
// [step(1)][handshake_len(4)][handshake_data].
func SerializeHandshakePacket(packet *HandshakePacket) []byte {
	out := make([]byte, 5+len(packet.HandshakeData))
	out[0] = packet.Step
	binary.BigEndian.PutUint32(out[1:5], uint32(len(packet.HandshakeData)))
	copy(out[5:], packet.HandshakeData)
	return out
}

// ParseHandshakePacket is the inverse of SerializeHandshakePacket.
func ParseHandshakePacket(data []byte) (*HandshakePacket, error) {
	if len(data) < 5 {
		return nil, errors.New("transport: handshake packet too short")
	}
	n := int(binary.BigEndian.Uint32(data[1:5]))
	if len(data) < 5+n {
		return nil, errors.New("transport: handshake packet truncated")
	}
	hsData := make([]byte, n)
	copy(hsData, data[5:5+n])
	return &HandshakePacket{Step: data[0], HandshakeData: hsData}, nil
}
