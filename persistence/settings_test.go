package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRawBlob(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func corruptFile(path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	blob[len(blob)-1] ^= 0xFF
	return os.WriteFile(path, blob, 0o600)
}

func testIdentityKey() [32]byte {
	var key [32]byte
	copy(key[:], []byte("identity-key-for-settings-tests!"))
	return key
}

func TestSaveThenLoadSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.enc")
	key := testIdentityKey()

	want := Settings{TrustedPeerIDs: []string{"peer-1", "peer-2"}}
	require.NoError(t, SaveSettings(path, key, want))

	got, err := LoadSettings(path, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.enc")
	got, err := LoadSettings(path, testIdentityKey())
	require.NoError(t, err)
	assert.Equal(t, Settings{}, got)
}

func TestLoadSettingsCorruptFileReturnsDefaultsAndError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.enc")
	key := testIdentityKey()
	require.NoError(t, SaveSettings(path, key, Settings{TrustedPeerIDs: []string{"peer-1"}}))

	corrupt, err := filepath.Abs(path)
	require.NoError(t, err)
	require.NoError(t, corruptFile(corrupt))

	got, err := LoadSettings(path, key)
	assert.Error(t, err)
	assert.Equal(t, Settings{}, got)
}

func TestSaveSettingsUsesDistinctNoncesAcrossSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.enc")
	key := testIdentityKey()

	require.NoError(t, SaveSettings(path, key, Settings{TrustedPeerIDs: []string{"a"}}))
	first, err := readRawBlob(path)
	require.NoError(t, err)

	require.NoError(t, SaveSettings(path, key, Settings{TrustedPeerIDs: []string{"a"}}))
	second, err := readRawBlob(path)
	require.NoError(t, err)

	assert.NotEqual(t, first[:12], second[:12], "nonce must differ between saves of identical plaintext")
}
