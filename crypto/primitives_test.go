package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	assert.NotNil(t, kp.Private)
	assert.NotEqual(t, [32]byte{}, kp.Public)
}

func TestSharedSecretAgreement(t *testing.T) {
	a, err := GenerateKeypair()
	require.NoError(t, err)
	b, err := GenerateKeypair()
	require.NoError(t, err)

	s1, err := SharedSecret(a.Private, b.Public)
	require.NoError(t, err)
	s2, err := SharedSecret(b.Private, a.Public)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
}

func TestFingerprintAndPinTestVector(t *testing.T) {
	var zero [32]byte
	fp := Fingerprint(zero)
	assert.Equal(t, "Zmh6rfhivXc=", fp)
	assert.Equal(t, "094442", PinFromFingerprint(fp))
}

func TestPinFromFingerprintShortInput(t *testing.T) {
	// Fewer than 6 characters: missing positions default to 'A' (mod 10 = 5).
	assert.Equal(t, "555555", PinFromFingerprint(""))
}

func TestAeadSealOpenRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], bytes.Repeat([]byte{0x42}, 32))
	nonce := PacketNonce("session-a", 1)
	aad := []byte("header")
	plaintext := []byte("hello bluebeam")

	ciphertext, err := AeadSeal(key, nonce, aad, plaintext)
	require.NoError(t, err)

	recovered, err := AeadOpen(key, nonce, aad, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestAeadOpenRejectsTampering(t *testing.T) {
	var key [32]byte
	copy(key[:], bytes.Repeat([]byte{0x11}, 32))
	nonce := PacketNonce("session-b", 0)
	ciphertext, err := AeadSeal(key, nonce, []byte("aad"), []byte("payload"))
	require.NoError(t, err)

	tampered := append([]byte{}, ciphertext...)
	tampered[0] ^= 0xff
	_, err = AeadOpen(key, nonce, []byte("aad"), tampered)
	assert.Error(t, err)

	_, err = AeadOpen(key, nonce, []byte("wrong-aad"), ciphertext)
	assert.Error(t, err)

	var wrongKey [32]byte
	copy(wrongKey[:], bytes.Repeat([]byte{0x22}, 32))
	_, err = AeadOpen(wrongKey, nonce, []byte("aad"), ciphertext)
	assert.Error(t, err)
}

func TestPacketNonceDeterministicAndDistinct(t *testing.T) {
	n1 := PacketNonce("session", 1)
	n2 := PacketNonce("session", 1)
	n3 := PacketNonce("session", 2)
	n4 := PacketNonce("other-session", 1)

	assert.Equal(t, n1, n2)
	assert.NotEqual(t, n1, n3)
	assert.NotEqual(t, n1, n4)
	assert.Len(t, n1, 12)
}

func TestChecksum(t *testing.T) {
	sum := Checksum([]byte("file contents"))
	assert.Len(t, sum, 64)
	assert.Equal(t, sum, Checksum([]byte("file contents")))
	assert.NotEqual(t, sum, Checksum([]byte("different contents")))
}
