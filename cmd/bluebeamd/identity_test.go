package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateDeviceKeyGeneratesOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	key, err := loadOrCreateDeviceKey(dir)
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, key)

	info, err := os.Stat(filepath.Join(dir, identityFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrCreateDeviceKeyReusesExistingKey(t *testing.T) {
	dir := t.TempDir()

	first, err := loadOrCreateDeviceKey(dir)
	require.NoError(t, err)

	second, err := loadOrCreateDeviceKey(dir)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadOrCreateDeviceKeyRejectsWrongLength(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, identityFileName), []byte("too short"), 0o600))

	_, err := loadOrCreateDeviceKey(dir)
	assert.Error(t, err)
}
