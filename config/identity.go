package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	dhtcrypto "github.com/opd-ai/kadht/dhtcrypto"
)

// LoadOrCreateKeyPair reads a hex-encoded Ed25519 seed from path, or
// generates a fresh one and writes it there if the file does not yet
// exist. The file is created with owner-only permissions since it holds
// private key material.
func LoadOrCreateKeyPair(path string) (*dhtcrypto.KeyPair, error) {
	if fileExists(path) {
		return loadKeyPair(path)
	}
	return createKeyPair(path)
}

func loadKeyPair(path string) (*dhtcrypto.KeyPair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read key file %s: %w", path, err)
	}
	seedBytes, err := hex.DecodeString(string(trimNewline(raw)))
	if err != nil {
		return nil, fmt.Errorf("config: decode key file %s: %w", path, err)
	}
	if len(seedBytes) != 32 {
		return nil, fmt.Errorf("config: key file %s: expected 32-byte seed, got %d", path, len(seedBytes))
	}
	var seed [32]byte
	copy(seed[:], seedBytes)
	return dhtcrypto.FromSeed(seed)
}

func createKeyPair(path string) (*dhtcrypto.KeyPair, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("config: generate seed: %w", err)
	}
	kp, err := dhtcrypto.FromSeed(seed)
	if err != nil {
		return nil, err
	}
	encoded := hex.EncodeToString(seed[:]) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("config: write key file %s: %w", path, err)
	}
	return kp, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
