package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bluebeam/bluebeam/transport"
	"github.com/bluebeam/bluebeam/transport/ws"
)

// wsManager is the transport.BluetoothManager stand-in used by bluebeamd:
// "discovery" is simply the set of peers the operator has registered by
// address (there is no real radio to scan), and "connect" dials that
// address over transport/ws.
type wsManager struct {
	mu          sync.Mutex
	dialTimeout time.Duration
	devices     map[string]transport.DiscoveredPeer
}

func newWSManager(dialTimeout time.Duration) *wsManager {
	return &wsManager{
		dialTimeout: dialTimeout,
		devices:     make(map[string]transport.DiscoveredPeer),
	}
}

// Register makes peer known to a later Connect call by ID.
func (m *wsManager) Register(peer transport.DiscoveredPeer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[peer.ID] = peer
}

// StartDiscovery implements transport.BluetoothManager. There is no
// radio to scan; registered peers are already "discovered".
func (m *wsManager) StartDiscovery(_ context.Context) error { return nil }

// StopDiscovery implements transport.BluetoothManager.
func (m *wsManager) StopDiscovery() error { return nil }

// DiscoveredDevices implements transport.BluetoothManager.
func (m *wsManager) DiscoveredDevices() []transport.DiscoveredPeer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transport.DiscoveredPeer, 0, len(m.devices))
	for _, p := range m.devices {
		out = append(out, p)
	}
	return out
}

// Connect implements transport.BluetoothManager by dialing peer.Address
// as a transport/ws listener address.
func (m *wsManager) Connect(ctx context.Context, peer transport.DiscoveredPeer) (transport.Connection, error) {
	if peer.Address == "" {
		return nil, fmt.Errorf("wsmanager: peer %s has no address to dial", peer.ID)
	}
	dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	defer cancel()
	return ws.Dial(dialCtx, peer.Address, m.dialTimeout)
}

var _ transport.BluetoothManager = (*wsManager)(nil)
