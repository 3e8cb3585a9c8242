// Package crypto implements the pairing and envelope cryptography: X25519
// key agreement, fingerprint/PIN derivation, and AES-256-GCM sealing.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bluebeam/bluebeam/internal/metrics"
)

// KeyPair is an ephemeral X25519 key pair used for one pairing attempt.
type KeyPair struct {
	Private *ecdh.PrivateKey
	Public  [32]byte
}

// GenerateKeypair produces a new ephemeral X25519 key pair from an
// OS-seeded CSPRNG.
func GenerateKeypair() (*KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate x25519 key: %w", err)
	}
	kp := &KeyPair{Private: priv}
	copy(kp.Public[:], priv.PublicKey().Bytes())
	return kp, nil
}

// SharedSecret computes the raw 32-byte X25519 Diffie-Hellman output
// between our private key and a peer's 32-byte public key.
//
// The result is used directly as an AES-256 key with no HKDF expansion,
// matching the pairing protocol's shared-secret contract. This is
// weaker than a properly context-bound key derivation and is a known
// limitation carried forward rather than fixed silently.
func SharedSecret(priv *ecdh.PrivateKey, remotePublic [32]byte) ([32]byte, error) {
	start := time.Now()
	var secret [32]byte
	peerKey, err := ecdh.X25519().NewPublicKey(remotePublic[:])
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("dh").Inc()
		return secret, fmt.Errorf("parse peer public key: %w", err)
	}
	raw, err := priv.ECDH(peerKey)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("dh").Inc()
		return secret, fmt.Errorf("compute shared secret: %w", err)
	}
	copy(secret[:], raw)
	metrics.CryptoOperations.WithLabelValues("dh", "x25519").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("dh", "x25519").Observe(time.Since(start).Seconds())
	return secret, nil
}

// Fingerprint returns the short human-comparable digest of a public key:
// the first 8 bytes of SHA-256 over the 32-byte public key, standard
// base64-encoded (12 characters including padding).
func Fingerprint(public [32]byte) string {
	start := time.Now()
	sum := sha256.Sum256(public[:])
	fp := base64.StdEncoding.EncodeToString(sum[:8])
	metrics.CryptoOperations.WithLabelValues("fingerprint", "sha-256").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("fingerprint", "sha-256").Observe(time.Since(start).Seconds())
	return fp
}

// PinFromFingerprint derives a 6-digit decimal PIN from a fingerprint
// string. For i in 0..6, the i-th character of the fingerprint (default
// 'A' if the fingerprint is shorter than 6 characters) is reduced mod 10
// and emitted as an ASCII digit.
func PinFromFingerprint(fingerprint string) string {
	runes := []rune(fingerprint)
	digits := make([]byte, 6)
	for i := 0; i < 6; i++ {
		c := rune('A')
		if i < len(runes) {
			c = runes[i]
		}
		digits[i] = byte('0' + (int(c) % 10))
	}
	return string(digits)
}

// AeadSeal encrypts plaintext with AES-256-GCM under key and nonce,
// authenticating aad. The returned ciphertext carries the 16-byte GCM
// tag appended to the end.
func AeadSeal(key [32]byte, nonce []byte, aad, plaintext []byte) ([]byte, error) {
	start := time.Now()
	aead, err := newGCM(key)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("seal").Inc()
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		metrics.CryptoErrors.WithLabelValues("seal").Inc()
		return nil, fmt.Errorf("aead seal: nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	out := aead.Seal(nil, nonce, plaintext, aad)
	metrics.CryptoOperations.WithLabelValues("seal", "aes-256-gcm").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("seal", "aes-256-gcm").Observe(time.Since(start).Seconds())
	return out, nil
}

// AeadOpen decrypts ciphertext produced by AeadSeal, verifying aad.
// It fails on any tag mismatch.
func AeadOpen(key [32]byte, nonce []byte, aad, ciphertext []byte) ([]byte, error) {
	start := time.Now()
	aead, err := newGCM(key)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("open").Inc()
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		metrics.CryptoErrors.WithLabelValues("open").Inc()
		return nil, fmt.Errorf("aead open: nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	out, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("open").Inc()
		return nil, err
	}
	metrics.CryptoOperations.WithLabelValues("open", "aes-256-gcm").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("open", "aes-256-gcm").Observe(time.Since(start).Seconds())
	return out, nil
}

func newGCM(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Checksum returns the hex-encoded SHA-256 digest of data, used to
// verify file-transfer integrity once all chunks are reassembled.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PacketNonce derives the deterministic per-packet AES-GCM nonce as the
// first 12 bytes of SHA-256("sessionID‖counter"), where counter is the
// packet's big-endian 8-byte strictly-increasing sequence number.
func PacketNonce(sessionID string, counter uint64) []byte {
	buf := make([]byte, len(sessionID)+8)
	copy(buf, sessionID)
	for i := 0; i < 8; i++ {
		buf[len(sessionID)+i] = byte(counter >> (8 * (7 - i)))
	}
	sum := sha256.Sum256(buf)
	return sum[:12]
}
