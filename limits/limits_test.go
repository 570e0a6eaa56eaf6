package limits

import (
	"crypto/rand"
	"errors"
	"testing"
)

// TestMaxEncryptedFrameCalculation verifies MaxEncryptedFrame is
// MaxEnvelopeFrame plus the Noise AEAD tag overhead.
func TestMaxEncryptedFrameCalculation(t *testing.T) {
	const noiseTagOverhead = 16
	expected := MaxEnvelopeFrame + noiseTagOverhead
	if MaxEncryptedFrame != expected {
		t.Errorf("MaxEncryptedFrame = %d, want %d", MaxEncryptedFrame, expected)
	}
}

func TestValidateEnvelopeFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		wantErr error
	}{
		{name: "empty frame", frame: []byte{}, wantErr: nil},
		{name: "small frame", frame: []byte("hello"), wantErr: nil},
		{name: "max-size frame", frame: make([]byte, MaxEnvelopeFrame), wantErr: nil},
		{name: "too large", frame: make([]byte, MaxEnvelopeFrame+1), wantErr: ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnvelopeFrame(tt.frame)
			if err != tt.wantErr {
				t.Errorf("ValidateEnvelopeFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateValueData(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty value", data: []byte{}, wantErr: nil},
		{name: "valid small value", data: []byte("overlay descriptor"), wantErr: nil},
		{name: "valid max-size value", data: make([]byte, MaxValueData), wantErr: nil},
		{name: "value too large", data: make([]byte, MaxValueData+1), wantErr: ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateValueData(tt.data)
			if err != tt.wantErr {
				t.Errorf("ValidateValueData() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConstantConsistency(t *testing.T) {
	if MaxEncryptedFrame <= MaxEnvelopeFrame {
		t.Errorf("MaxEncryptedFrame (%d) should be > MaxEnvelopeFrame (%d)", MaxEncryptedFrame, MaxEnvelopeFrame)
	}
	if MaxProcessingBuffer <= MaxValueData {
		t.Errorf("MaxProcessingBuffer (%d) should be > MaxValueData (%d)", MaxProcessingBuffer, MaxValueData)
	}
	if MaxAddressList <= 0 {
		t.Errorf("MaxAddressList must be positive, got %d", MaxAddressList)
	}
}

func TestValidateMessageSize(t *testing.T) {
	tests := []struct {
		name      string
		message   []byte
		maxSize   int
		wantErr   error
		checkWrap bool
	}{
		{
			name:    "empty message",
			message: []byte{},
			maxSize: 100,
			wantErr: ErrMessageEmpty,
		},
		{
			name:    "valid message within limit",
			message: make([]byte, 50),
			maxSize: 100,
			wantErr: nil,
		},
		{
			name:    "message at exact limit",
			message: make([]byte, 100),
			maxSize: 100,
			wantErr: nil,
		},
		{
			name:      "message exceeds limit",
			message:   make([]byte, 101),
			maxSize:   100,
			wantErr:   ErrMessageTooLarge,
			checkWrap: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageSize(tt.message, tt.maxSize)
			if tt.checkWrap {
				if err == nil || !errors.Is(err, tt.wantErr) {
					t.Errorf("ValidateMessageSize() error = %v, should wrap %v", err, tt.wantErr)
				}
			} else if err != tt.wantErr {
				t.Errorf("ValidateMessageSize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateProcessingBuffer(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty data", data: []byte{}, wantErr: nil},
		{name: "valid small buffer", data: make([]byte, 100), wantErr: nil},
		{name: "valid medium buffer", data: make([]byte, 65536), wantErr: nil},
		{name: "valid max-size buffer", data: make([]byte, MaxProcessingBuffer), wantErr: nil},
		{name: "buffer exceeds limit", data: make([]byte, MaxProcessingBuffer+1), wantErr: ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProcessingBuffer(tt.data)
			if err != tt.wantErr {
				t.Errorf("ValidateProcessingBuffer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func BenchmarkValidateEnvelopeFrame(b *testing.B) {
	frame := make([]byte, MaxEnvelopeFrame)
	rand.Read(frame)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidateEnvelopeFrame(frame)
	}
}

func BenchmarkValidateProcessingBuffer(b *testing.B) {
	data := make([]byte, MaxProcessingBuffer)
	rand.Read(data)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidateProcessingBuffer(data)
	}
}
