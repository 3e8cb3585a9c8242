package persistence

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"

	"github.com/bluebeam/bluebeam/internal/errs"
)

const settingsFileName = "settings.enc"

// settingsKey derives the 32-byte AES-256 key used to encrypt the
// settings blob from the device's long-term identity key, via
// HKDF-SHA256 with a fixed info string. This derivation keeps the
// settings key distinct from the identity key itself and from any key
// used on the wire.
func settingsKey(identityKey [32]byte) ([32]byte, error) {
	var out [32]byte
	kdf := hkdf.New(sha256.New, identityKey[:], nil, []byte("bluebeam-settings-v1"))
	if _, err := io.ReadFull(kdf, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// SaveSettings encrypts settings under a key derived from
// identityKey and writes it atomically to path (write-temp-then-
// rename), using a fresh random 12-byte nonce prepended to the
// ciphertext rather than a fixed nonce, since reusing a nonce across
// saves under the same key would let an attacker recover the
// plaintext of two ciphertexts by XORing them.
func SaveSettings(path string, identityKey [32]byte, settings Settings) error {
	key, err := settingsKey(identityKey)
	if err != nil {
		return errs.Settings(errs.CodeSettingsSaveFailed, err)
	}

	plaintext, err := json.Marshal(settings)
	if err != nil {
		return errs.Settings(errs.CodeSettingsSaveFailed, fmt.Errorf("marshal settings: %w", err))
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return errs.Settings(errs.CodeSettingsSaveFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return errs.Settings(errs.CodeSettingsSaveFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return errs.Settings(errs.CodeSettingsSaveFailed, fmt.Errorf("generate nonce: %w", err))
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	blob := append(nonce, ciphertext...)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errs.Settings(errs.CodeSettingsSaveFailed, fmt.Errorf("create settings dir: %w", err))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return errs.Settings(errs.CodeSettingsSaveFailed, fmt.Errorf("write temp settings: %w", err))
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Settings(errs.CodeSettingsSaveFailed, fmt.Errorf("rename settings into place: %w", err))
	}
	return nil
}

// LoadSettings decrypts the settings blob at path. A missing file, a
// corrupt blob, or a decryption failure all yield the zero-value
// Settings. A missing file returns a nil error; for the other cases the
// accompanying error records why defaults were used.
func LoadSettings(path string, identityKey [32]byte) (Settings, error) {
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, errs.Settings(errs.CodeSettingsLoadFailed, err)
	}

	key, err := settingsKey(identityKey)
	if err != nil {
		return Settings{}, errs.Settings(errs.CodeSettingsLoadFailed, err)
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return Settings{}, errs.Settings(errs.CodeSettingsLoadFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Settings{}, errs.Settings(errs.CodeSettingsLoadFailed, err)
	}

	if len(blob) < gcm.NonceSize() {
		return Settings{}, errs.Settings(errs.CodeSettingsCorrupt, fmt.Errorf("settings blob too short"))
	}
	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Settings{}, errs.Settings(errs.CodeSettingsCorrupt, fmt.Errorf("decrypt settings: %w", err))
	}

	var settings Settings
	if err := json.Unmarshal(plaintext, &settings); err != nil {
		return Settings{}, errs.Settings(errs.CodeSettingsCorrupt, fmt.Errorf("unmarshal settings: %w", err))
	}
	return settings, nil
}
