// Package pairing implements the device-pairing handshake: ephemeral
// X25519 key exchange over a Transport, fingerprint/PIN derivation for
// out-of-band human verification, and a completion handshake, modeled
// as an explicit state machine.
package pairing

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bluebeam/bluebeam/crypto"
	"github.com/bluebeam/bluebeam/internal/errs"
	"github.com/bluebeam/bluebeam/internal/metrics"
	"github.com/bluebeam/bluebeam/transport"
)

// State is one stage of the pairing state machine. Transitions only
// move forward, or to Failed from any non-terminal state.
type State int

const (
	Idle State = iota
	AwaitingKeys
	AwaitingPinConfirm
	AwaitingCompleteAck
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingKeys:
		return "awaiting_keys"
	case AwaitingPinConfirm:
		return "awaiting_pin_confirm"
	case AwaitingCompleteAck:
		return "awaiting_complete_ack"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var completeMessage = []byte("PAIRING_COMPLETE")

// Session drives one pairing attempt against a single peer, over one
// Transport obtained for the well-known pairing service UUID.
type Session struct {
	mu sync.Mutex

	peer       transport.DiscoveredPeer
	conn       transport.Connection
	tr         transport.Transport
	initiator  bool
	state      State
	local      *crypto.KeyPair
	remote     [32]byte
	sharedKey  [32]byte
	fingerprint string
	pin        string
}

// Initiate connects to peer via manager, opens the pairing transport,
// and generates this side's ephemeral key pair. It does not exchange
// any bytes yet; call ExchangeKeys next.
func Initiate(ctx context.Context, peer transport.DiscoveredPeer, manager transport.BluetoothManager) (*Session, error) {
	start := time.Now()
	metrics.PairingsInitiated.WithLabelValues("initiator").Inc()

	conn, err := manager.Connect(ctx, peer)
	if err != nil {
		metrics.PairingsFailed.WithLabelValues("transport").Inc()
		return nil, errs.Bluetooth(errs.CodeConnectFailed, fmt.Errorf("connect to %s: %w", peer.ID, err))
	}
	tr, err := conn.CreateTransport(ctx, transport.PairingServiceUUID)
	if err != nil {
		_ = conn.Disconnect()
		metrics.PairingsFailed.WithLabelValues("transport").Inc()
		return nil, errs.Bluetooth(errs.CodeConnectFailed, fmt.Errorf("open pairing transport: %w", err))
	}

	local, err := crypto.GenerateKeypair()
	if err != nil {
		_ = conn.Disconnect()
		return nil, errs.Crypto(errs.CodeEncryptionFailed, fmt.Errorf("generate keypair: %w", err))
	}

	metrics.PairingStageDuration.WithLabelValues("initiate").Observe(time.Since(start).Seconds())

	return &Session{
		peer:      peer,
		conn:      conn,
		tr:        tr,
		initiator: true,
		state:     AwaitingKeys,
		local:     local,
	}, nil
}

// Accept builds a Session on the responder side of an already-
// established Connection, for an already-created pairing Transport
// (typically handed to the responder by its listener/accept loop).
func Accept(peer transport.DiscoveredPeer, conn transport.Connection, tr transport.Transport) (*Session, error) {
	metrics.PairingsInitiated.WithLabelValues("responder").Inc()
	local, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, errs.Crypto(errs.CodeEncryptionFailed, fmt.Errorf("generate keypair: %w", err))
	}
	return &Session{
		peer:  peer,
		conn:  conn,
		tr:    tr,
		state: AwaitingKeys,
		local: local,
	}, nil
}

// ExchangeKeys sends the local public key and receives the peer's,
// computing the shared secret, fingerprint, and PIN. The returned
// fingerprint is over the peer's public key; the PIN on both sides is
// derived from the fingerprint of the responder's public key, so the
// two sides display the same PIN. It advances the session from
// AwaitingKeys to AwaitingPinConfirm.
func (s *Session) ExchangeKeys(ctx context.Context) (fingerprint, pin string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingKeys {
		return "", "", s.failLocked(fmt.Errorf("exchange_keys: invalid state %s", s.state))
	}

	start := time.Now()
	if err := s.tr.Send(ctx, s.local.Public[:]); err != nil {
		return "", "", s.failLocked(fmt.Errorf("send public key: %w", err))
	}

	raw, err := s.tr.Recv(ctx)
	if err != nil {
		return "", "", s.failLocked(fmt.Errorf("receive public key: %w", err))
	}
	if len(raw) != 32 {
		return "", "", s.failLocked(fmt.Errorf("peer public key: expected 32 bytes, got %d", len(raw)))
	}
	copy(s.remote[:], raw)

	sharedKey, err := crypto.SharedSecret(s.local.Private, s.remote)
	if err != nil {
		return "", "", s.failLocked(fmt.Errorf("compute shared secret: %w", err))
	}
	s.sharedKey = sharedKey
	s.fingerprint = crypto.Fingerprint(s.remote)
	responderPublic := s.remote
	if !s.initiator {
		responderPublic = s.local.Public
	}
	s.pin = crypto.PinFromFingerprint(crypto.Fingerprint(responderPublic))
	s.state = AwaitingPinConfirm

	metrics.PairingStageDuration.WithLabelValues("exchange_keys").Observe(time.Since(start).Seconds())
	return s.fingerprint, s.pin, nil
}

// Fingerprint returns the remote peer's fingerprint, valid once
// ExchangeKeys has completed.
func (s *Session) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fingerprint
}

// PIN returns the derived PIN for out-of-band display/comparison,
// valid once ExchangeKeys has completed.
func (s *Session) PIN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pin
}

// VerifyPIN compares userPIN, as entered by the human operator, against
// the PIN derived during ExchangeKeys. On a match it advances to
// AwaitingCompleteAck; on a mismatch it fails the session, since a
// mismatched PIN indicates a possible man-in-the-middle.
func (s *Session) VerifyPIN(userPIN string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingPinConfirm {
		return s.failLocked(fmt.Errorf("verify_pin: invalid state %s", s.state))
	}
	start := time.Now()
	if userPIN != s.pin {
		metrics.PairingsFailed.WithLabelValues("pin_mismatch").Inc()
		return s.failLocked(fmt.Errorf("pin mismatch"))
	}
	s.state = AwaitingCompleteAck
	metrics.PairingStageDuration.WithLabelValues("verify_pin").Observe(time.Since(start).Seconds())
	return nil
}

// CompletePairing exchanges a final confirmation message over the
// transport and, on success, advances the session to Done. The
// session's SharedKey becomes usable as a session key only after this
// returns without error.
func (s *Session) CompletePairing(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingCompleteAck {
		return s.failLocked(fmt.Errorf("complete_pairing: invalid state %s", s.state))
	}

	start := time.Now()
	if err := s.tr.Send(ctx, completeMessage); err != nil {
		return s.failLocked(fmt.Errorf("send completion: %w", err))
	}
	ack, err := s.tr.Recv(ctx)
	if err != nil {
		return s.failLocked(fmt.Errorf("receive completion ack: %w", err))
	}
	if !bytes.Equal(ack, completeMessage) {
		return s.failLocked(fmt.Errorf("unexpected completion ack"))
	}

	s.state = Done
	metrics.PairingStageDuration.WithLabelValues("complete_pairing").Observe(time.Since(start).Seconds())
	metrics.PairingsCompleted.WithLabelValues("success").Inc()
	return nil
}

// SharedKey returns the raw X25519 shared secret to use as the
// session's AES-256-GCM key, valid only once State is Done.
func (s *Session) SharedKey() [32]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sharedKey
}

// State reports the session's current stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Peer returns the device this session is pairing with.
func (s *Session) Peer() transport.DiscoveredPeer {
	return s.peer
}

// Transport returns the pairing Transport, for reuse as the session's
// ongoing message/file-transfer channel once pairing completes.
func (s *Session) Transport() transport.Transport {
	return s.tr
}

// Connection returns the underlying Connection, for reuse once
// pairing completes.
func (s *Session) Connection() transport.Connection {
	return s.conn
}

// Close releases the underlying connection. Safe to call after any
// outcome, terminal or not.
func (s *Session) Close() error {
	return s.conn.Disconnect()
}

// failLocked transitions to Failed and wraps err as the returned
// pairing error. Caller must hold s.mu.
func (s *Session) failLocked(err error) error {
	if s.state != Done {
		s.state = Failed
	}
	metrics.PairingsCompleted.WithLabelValues("failure").Inc()
	return errs.Bluetooth(errs.CodeConnectFailed, err)
}
