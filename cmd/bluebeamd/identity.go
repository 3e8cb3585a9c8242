package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

const identityFileName = "identity.key"

// loadOrCreateDeviceKey reads the 32-byte device key from dir/identity.key,
// generating and persisting a fresh random one on first run. serve
// passes it to persistence.Open as the store's PRAGMA key, which the
// bundled SQLite does not act on (see persistence.Open).
func loadOrCreateDeviceKey(dir string) ([32]byte, error) {
	var key [32]byte
	path := filepath.Join(dir, identityFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != 32 {
			return key, fmt.Errorf("identity key at %s is %d bytes, want 32", path, len(data))
		}
		copy(key[:], data)
		return key, nil
	}
	if !os.IsNotExist(err) {
		return key, fmt.Errorf("read identity key: %w", err)
	}

	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("generate identity key: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return key, fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(path, key[:], 0o600); err != nil {
		return key, fmt.Errorf("write identity key: %w", err)
	}
	return key, nil
}
