package core

import (
	"encoding/binary"
	"fmt"

	"github.com/bluebeam/bluebeam/crypto"
)

// Packet tags, per the on-wire framing contract.
const (
	tagMessage    byte = 0x01
	tagFileChunk  byte = 0x02
	tagFileHeader byte = 0x03
	tagFileAck    byte = 0x04
)

// chunkSize is the fixed size of file chunks, except the last.
const chunkSize = 64 * 1024

// ackEveryNChunks is how often the receiver acknowledges progress.
const ackEveryNChunks = 16

// abortOffset signals transfer cancellation in a file-ack packet.
const abortOffset = ^uint64(0)

// sealFrame encrypts plaintext under key for sessionID/counter/tag and
// returns the full wire frame: tag, counter, aad length, aad,
// ciphertext.
func sealFrame(key [32]byte, sessionID string, tag byte, counter uint64, plaintext []byte) ([]byte, error) {
	aad := frameAAD(tag, counter)
	nonce := crypto.PacketNonce(sessionID, counter)
	ciphertext, err := crypto.AeadSeal(key, nonce, aad, plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal frame: %w", err)
	}

	buf := make([]byte, 0, 1+8+2+len(aad)+len(ciphertext))
	buf = append(buf, tag)
	var counterBuf [8]byte
	binary.BigEndian.PutUint64(counterBuf[:], counter)
	buf = append(buf, counterBuf[:]...)
	var aadLenBuf [2]byte
	binary.BigEndian.PutUint16(aadLenBuf[:], uint16(len(aad)))
	buf = append(buf, aadLenBuf[:]...)
	buf = append(buf, aad...)
	buf = append(buf, ciphertext...)
	return buf, nil
}

// frameAAD reconstructs the AAD region (tag || counter) a frame binds
// its ciphertext to.
func frameAAD(tag byte, counter uint64) []byte {
	aad := make([]byte, 9)
	aad[0] = tag
	binary.BigEndian.PutUint64(aad[1:], counter)
	return aad
}

// openedFrame is a frame after parsing and successful decryption.
type openedFrame struct {
	tag        byte
	counter    uint64
	plaintext  []byte
}

// openFrame parses raw and decrypts its ciphertext under key and
// sessionID, verifying the AAD binds tag and counter as the wire
// layout requires.
func openFrame(key [32]byte, sessionID string, raw []byte) (*openedFrame, error) {
	if len(raw) < 1+8+2 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(raw))
	}
	tag := raw[0]
	counter := binary.BigEndian.Uint64(raw[1:9])
	aadLen := binary.BigEndian.Uint16(raw[9:11])
	if len(raw) < 11+int(aadLen) {
		return nil, fmt.Errorf("frame aad truncated")
	}
	aad := raw[11 : 11+int(aadLen)]
	ciphertext := raw[11+int(aadLen):]

	expectedAAD := frameAAD(tag, counter)
	if string(aad) != string(expectedAAD) {
		return nil, fmt.Errorf("frame aad does not match tag/counter header")
	}

	nonce := crypto.PacketNonce(sessionID, counter)
	plaintext, err := crypto.AeadOpen(key, nonce, aad, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	return &openedFrame{tag: tag, counter: counter, plaintext: plaintext}, nil
}
