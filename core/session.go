package core

import (
	"context"

	"github.com/bluebeam/bluebeam/persistence"
	"github.com/bluebeam/bluebeam/transport"
)

// sessionPhase is the lifecycle state of a session, per the pairing-
// to-active-to-closed contract.
type sessionPhase int

const (
	sessionPairing sessionPhase = iota
	sessionActive
	sessionClosed
)

// sessionState is the core's authoritative record of one live session.
// All fields are only ever touched from the worker goroutine.
type sessionState struct {
	id     string
	peerID string
	conn   transport.Connection
	tr     transport.Transport

	sharedKey [32]byte
	phase     sessionPhase

	sendCounter  uint64
	lastRecv     uint64
	hasRecvSeen  bool

	cancelRecv context.CancelFunc
}

// nextSendCounter returns the next strictly-increasing counter to use
// for an outbound packet on this session.
func (s *sessionState) nextSendCounter() uint64 {
	s.sendCounter++
	return s.sendCounter
}

// acceptCounter enforces the strict-monotonic inbound counter rule: a
// gap is permitted, but the counter must never fail to increase.
func (s *sessionState) acceptCounter(counter uint64) bool {
	if s.hasRecvSeen && counter <= s.lastRecv {
		return false
	}
	s.lastRecv = counter
	s.hasRecvSeen = true
	return true
}

// fileHeaderRecord is the payload of a 0x03 file-header packet.
type fileHeaderRecord struct {
	TransferID string `json:"transfer_id"`
	Filename   string `json:"filename"`
	TotalSize  int64  `json:"total_size"`
	Checksum   string `json:"checksum"`
}

// fileChunkRecord is the payload of a 0x02 file-chunk packet.
type fileChunkRecord struct {
	TransferID string `json:"transfer_id"`
	Offset     int64  `json:"offset"`
	Chunk      []byte `json:"chunk"`
}

// fileAckRecord is the payload of a 0x04 file-ack packet. Offset
// abortOffset signals the sender aborted the transfer.
type fileAckRecord struct {
	TransferID string `json:"transfer_id"`
	Offset     uint64 `json:"offset"`
}

// outgoingTransfer tracks a file-send in progress. data holds the
// whole file read once at SendFile time, so each sendNextChunk event
// only slices it rather than re-reading the file per chunk.
type outgoingTransfer struct {
	id         string
	sessionID  string
	path       string
	filename   string
	data       []byte
	totalSize  int64
	sentSize   int64
	chunksSent int
	cancelled  bool
}

// incomingTransfer tracks a file-receive in progress.
type incomingTransfer struct {
	id            string
	sessionID     string
	filename      string
	totalSize     int64
	checksum      string
	received      []byte
	chunksRecv    int
	highestOffset int64
}

// toPeer converts a persisted peer record into a DiscoveredPeer, the
// shape transport.BluetoothManager operates on.
func toPeer(p persistence.Peer) transport.DiscoveredPeer {
	return transport.DiscoveredPeer{ID: p.ID, Name: p.DisplayName, Address: p.Address}
}
