package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() [32]byte {
	var key [32]byte
	copy(key[:], []byte("framing-test-key-0123456789abcd!"))
	return key
}

func TestSealThenOpenFrameRoundTrip(t *testing.T) {
	key := testKey()
	frame, err := sealFrame(key, "session-a", tagMessage, 1, []byte("hello"))
	require.NoError(t, err)

	opened, err := openFrame(key, "session-a", frame)
	require.NoError(t, err)
	assert.Equal(t, tagMessage, opened.tag)
	assert.Equal(t, uint64(1), opened.counter)
	assert.Equal(t, []byte("hello"), opened.plaintext)
}

func TestOpenFrameRejectsWrongSessionID(t *testing.T) {
	key := testKey()
	frame, err := sealFrame(key, "session-a", tagMessage, 1, []byte("hello"))
	require.NoError(t, err)

	_, err = openFrame(key, "session-b", frame)
	assert.Error(t, err, "nonce is bound to the session id, so a mismatched session must fail to decrypt")
}

func TestOpenFrameRejectsTamperedCiphertext(t *testing.T) {
	key := testKey()
	frame, err := sealFrame(key, "session-a", tagMessage, 1, []byte("hello"))
	require.NoError(t, err)
	frame[len(frame)-1] ^= 0xFF

	_, err = openFrame(key, "session-a", frame)
	assert.Error(t, err)
}

func TestOpenFrameRejectsTooShortInput(t *testing.T) {
	_, err := openFrame(testKey(), "session-a", []byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestSealFrameDistinctCountersProduceDistinctFrames(t *testing.T) {
	key := testKey()
	f1, err := sealFrame(key, "session-a", tagMessage, 1, []byte("hello"))
	require.NoError(t, err)
	f2, err := sealFrame(key, "session-a", tagMessage, 2, []byte("hello"))
	require.NoError(t, err)
	assert.NotEqual(t, f1, f2)
}

func TestAcceptCounterEnforcesStrictMonotonicity(t *testing.T) {
	s := &sessionState{}
	assert.True(t, s.acceptCounter(1))
	assert.True(t, s.acceptCounter(2))
	assert.False(t, s.acceptCounter(2), "repeated counter must be rejected")
	assert.True(t, s.acceptCounter(10), "gaps are permitted")
	assert.False(t, s.acceptCounter(5), "out-of-order counter must be rejected")
}
