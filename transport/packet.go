// Package transport implements the datagram transport layer for the DHT.
// This file defines packet structures, types, and serialization functions
// for the lowest framing layer: a single type byte followed by a payload.
//
// Every Adapter exchange rides one of the two Noise protocol packet
// types: a handshake step, or an encrypted request/response envelope.
//
// Example usage:
//
//	// Parse a received packet and dispatch on its type
//	received, _ := ParsePacket(networkData)
//	switch received.PacketType {
//	case PacketNoiseHandshake:
//	    // feed into the Noise-XX handshake state machine
//	case PacketNoiseMessage:
//	    // decrypt as an Envelope
//	}

package transport

import (
	"errors"
)

// PacketType identifies the kind of payload a Packet carries.
type PacketType byte

const (
	PacketNoiseHandshake PacketType = iota + 1 // one of the XX pattern's 3 messages
	PacketNoiseMessage                         // encrypted request/response envelope
)

// Packet is the fundamental unit of transport: a type byte and payload.
type Packet struct {
	PacketType PacketType
	Data       []byte
}

// Serialize encodes a packet as [packet_type(1)][data(variable)].
func (p *Packet) Serialize() ([]byte, error) {
	if p.Data == nil {
		return nil, errors.New("packet data is nil")
	}

	result := make([]byte, 1+len(p.Data))
	result[0] = byte(p.PacketType)
	copy(result[1:], p.Data)

	return result, nil
}

// ParsePacket is the inverse of Packet.Serialize.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < 1 {
		return nil, errors.New("packet too short")
	}

	packetType := PacketType(data[0])
	packet := &Packet{
		PacketType: packetType,
		Data:       make([]byte, len(data)-1),
	}

	copy(packet.Data, data[1:])

	return packet, nil
}
