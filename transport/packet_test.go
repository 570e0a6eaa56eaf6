package transport

import (
	"bytes"
	"testing"
)

// TestPacketSerialize tests the Packet.Serialize method.
func TestPacketSerialize(t *testing.T) {
	tests := []struct {
		name    string
		packet  *Packet
		wantErr bool
	}{
		{
			name: "valid packet",
			packet: &Packet{
				PacketType: PacketNoiseHandshake,
				Data:       []byte{1, 2, 3, 4},
			},
			wantErr: false,
		},
		{
			name: "empty data",
			packet: &Packet{
				PacketType: PacketNoiseHandshake,
				Data:       []byte{},
			},
			wantErr: false,
		},
		{
			name: "nil data",
			packet: &Packet{
				PacketType: PacketNoiseHandshake,
				Data:       nil,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.packet.Serialize()
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			// Verify format: [packet type (1 byte)][data]
			if len(result) != 1+len(tt.packet.Data) {
				t.Errorf("Expected length %d, got %d", 1+len(tt.packet.Data), len(result))
			}
			if result[0] != byte(tt.packet.PacketType) {
				t.Errorf("Expected packet type %d, got %d", tt.packet.PacketType, result[0])
			}
			if len(tt.packet.Data) > 0 && !bytes.Equal(result[1:], tt.packet.Data) {
				t.Error("Data mismatch")
			}
		})
	}
}

// TestParsePacket tests the ParsePacket function.
func TestParsePacket(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantType PacketType
		wantData []byte
		wantErr  bool
	}{
		{
			name:     "valid packet",
			data:     []byte{byte(PacketNoiseHandshake), 1, 2, 3, 4},
			wantType: PacketNoiseHandshake,
			wantData: []byte{1, 2, 3, 4},
			wantErr:  false,
		},
		{
			name:     "packet with only type",
			data:     []byte{byte(PacketNoiseMessage)},
			wantType: PacketNoiseMessage,
			wantData: []byte{},
			wantErr:  false,
		},
		{
			name:    "empty data",
			data:    []byte{},
			wantErr: true,
		},
		{
			name:    "nil data",
			data:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet, err := ParsePacket(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if packet.PacketType != tt.wantType {
				t.Errorf("Expected packet type %d, got %d", tt.wantType, packet.PacketType)
			}
			if !bytes.Equal(packet.Data, tt.wantData) {
				t.Errorf("Expected data %v, got %v", tt.wantData, packet.Data)
			}
		})
	}
}

// TestPacketSerializeRoundTrip tests that serialize and parse are inverse operations.
func TestPacketSerializeRoundTrip(t *testing.T) {
	original := &Packet{
		PacketType: PacketNoiseMessage,
		Data:       []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}

	serialized, err := original.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	parsed, err := ParsePacket(serialized)
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}

	if parsed.PacketType != original.PacketType {
		t.Errorf("PacketType mismatch: got %d, want %d", parsed.PacketType, original.PacketType)
	}

	if !bytes.Equal(parsed.Data, original.Data) {
		t.Errorf("Data mismatch: got %v, want %v", parsed.Data, original.Data)
	}
}
