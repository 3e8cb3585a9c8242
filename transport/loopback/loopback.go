// Package loopback implements transport.Transport/Connection/
// BluetoothManager entirely in-process, standing in for a real
// Bluetooth radio in tests, within a single process and over no network
// at all. Adapted from the teacher's channel-backed mock transport.
package loopback

import (
	"context"
	"fmt"
	"sync"

	"github.com/bluebeam/bluebeam/transport"
)

// pipe is one direction of an in-process link.
type pipe struct {
	ch        chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newPipe() *pipe {
	return &pipe{ch: make(chan []byte, 32), closed: make(chan struct{})}
}

func (p *pipe) close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

// Link is one end of an in-process Transport pair.
type Link struct {
	send *pipe
	recv *pipe
}

// NewPair returns two linked Transports: data sent on one arrives on
// the other's Recv, and vice versa.
func NewPair() (*Link, *Link) {
	a := newPipe()
	b := newPipe()
	return &Link{send: a, recv: b}, &Link{send: b, recv: a}
}

// Send implements transport.Transport.
func (l *Link) Send(ctx context.Context, data []byte) error {
	packet := append([]byte(nil), data...)
	select {
	case <-l.send.closed:
		return fmt.Errorf("loopback: link closed")
	default:
	}
	select {
	case l.send.ch <- packet:
		return nil
	case <-l.send.closed:
		return fmt.Errorf("loopback: link closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv implements transport.Transport.
func (l *Link) Recv(ctx context.Context) ([]byte, error) {
	select {
	case packet, ok := <-l.recv.ch:
		if !ok {
			return nil, fmt.Errorf("loopback: link closed")
		}
		return packet, nil
	case <-l.recv.closed:
		return nil, fmt.Errorf("loopback: link closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements transport.Transport. It closes both directions of
// the link, so Send and Recv fail on both ends; a peer's Recv may fail
// before packets still buffered for it have been delivered.
func (l *Link) Close() error {
	l.send.close()
	l.recv.close()
	return nil
}

var _ transport.Transport = (*Link)(nil)

// Connection wraps an established peer link and hands out Transports
// scoped by service UUID on demand. Loopback has exactly one physical
// channel pair per Connection, reused across CreateTransport calls.
type Connection struct {
	mu        sync.Mutex
	local     *Link
	connected bool
}

// NewConnection wraps a Link as an already-connected Connection.
func NewConnection(link *Link) *Connection {
	return &Connection{local: link, connected: true}
}

// CreateTransport implements transport.Connection.
func (c *Connection) CreateTransport(_ context.Context, _ string) (transport.Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, fmt.Errorf("loopback: connection closed")
	}
	return c.local, nil
}

// Disconnect implements transport.Connection.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return c.local.Close()
}

// IsConnected implements transport.Connection.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

var _ transport.Connection = (*Connection)(nil)

// Manager is a BluetoothManager backed by a fixed, pre-registered set
// of peers and pre-wired Links, simulating discovery without any real
// radio. Tests register the counterpart side of each Link before
// Connect is called.
type Manager struct {
	mu        sync.Mutex
	devices   map[string]transport.DiscoveredPeer
	links     map[string]*Link
	scanning  bool
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		devices: make(map[string]transport.DiscoveredPeer),
		links:   make(map[string]*Link),
	}
}

// Register makes a peer discoverable and binds the Link Connect will
// hand back for it.
func (m *Manager) Register(peer transport.DiscoveredPeer, link *Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[peer.ID] = peer
	m.links[peer.ID] = link
}

// StartDiscovery implements transport.BluetoothManager.
func (m *Manager) StartDiscovery(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanning = true
	return nil
}

// StopDiscovery implements transport.BluetoothManager.
func (m *Manager) StopDiscovery() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanning = false
	return nil
}

// DiscoveredDevices implements transport.BluetoothManager.
func (m *Manager) DiscoveredDevices() []transport.DiscoveredPeer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transport.DiscoveredPeer, 0, len(m.devices))
	for _, p := range m.devices {
		out = append(out, p)
	}
	return out
}

// Connect implements transport.BluetoothManager.
func (m *Manager) Connect(_ context.Context, peer transport.DiscoveredPeer) (transport.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[peer.ID]
	if !ok {
		return nil, fmt.Errorf("loopback: no link registered for peer %q", peer.ID)
	}
	return NewConnection(link), nil
}

var _ transport.BluetoothManager = (*Manager)(nil)
