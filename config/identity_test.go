package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateKeyPairCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")
	require.False(t, fileExists(path), "key file should not exist yet")

	kp, err := LoadOrCreateKeyPair(path)
	require.NoError(t, err)
	require.True(t, fileExists(path), "expected a key file to be written")
	require.NotEqual(t, [32]byte{}, kp.Public.Ed25519)
}

func TestLoadOrCreateKeyPairIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")

	first, err := LoadOrCreateKeyPair(path)
	require.NoError(t, err)
	second, err := LoadOrCreateKeyPair(path)
	require.NoError(t, err)
	require.Equal(t, first.Public.Ed25519, second.Public.Ed25519)
}
