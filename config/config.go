// Package config loads a node's on-disk TOML configuration: its listen
// address, identity seed file, log level, and bootstrap seed peers.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// SeedPeer is one bootstrap entry: the address the transport adapter
// should dial, and the hex-encoded Ed25519 public key identifying the
// peer expected there.
type SeedPeer struct {
	Address   string `toml:"address"`
	PublicKey string `toml:"public_key"`
}

// NodeConfig is the root of a node's TOML configuration file.
type NodeConfig struct {
	ListenAddr string     `toml:"listen_addr"`
	KeyFile    string     `toml:"key_file"`
	LogLevel   string     `toml:"log_level"`
	Seeds      []SeedPeer `toml:"seeds"`
}

// defaults fills in the zero-value fields a freshly decoded config might
// be missing.
func (c *NodeConfig) defaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "0.0.0.0:33445"
	}
	if c.KeyFile == "" {
		c.KeyFile = "kadht.key"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load decodes a NodeConfig from the TOML file at path, applying defaults
// for any field the file leaves unset.
func Load(path string) (*NodeConfig, error) {
	var cfg NodeConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.defaults()
	return &cfg, nil
}

// DecodePublicKey parses a seed's hex-encoded public key into its raw
// 32-byte form.
func (s SeedPeer) DecodePublicKey() ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s.PublicKey)
	if err != nil {
		return out, fmt.Errorf("config: seed %q: bad public_key: %w", s.Address, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("config: seed %q: public_key must be 32 bytes, got %d", s.Address, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// fileExists reports whether path exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
