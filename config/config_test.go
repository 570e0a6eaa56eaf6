package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kadht.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "debug"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:33445", cfg.ListenAddr)
	require.Equal(t, "kadht.key", cfg.KeyFile)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadParsesSeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kadht.toml")
	content := `
listen_addr = "127.0.0.1:9000"

[[seeds]]
address = "127.0.0.1:9001"
public_key = "0000000000000000000000000000000000000000000000000000000000000000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Seeds, 1)
	require.Equal(t, "127.0.0.1:9001", cfg.Seeds[0].Address)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestSeedPeerDecodePublicKey(t *testing.T) {
	s := SeedPeer{PublicKey: "0000000000000000000000000000000000000000000000000000000000000000"}
	_, err := s.DecodePublicKey()
	require.NoError(t, err)
}

func TestSeedPeerDecodePublicKeyWrongLength(t *testing.T) {
	s := SeedPeer{PublicKey: "ab"}
	_, err := s.DecodePublicKey()
	require.Error(t, err)
}

func TestSeedPeerDecodePublicKeyInvalidHex(t *testing.T) {
	s := SeedPeer{PublicKey: "not-hex"}
	_, err := s.DecodePublicKey()
	require.Error(t, err)
}
