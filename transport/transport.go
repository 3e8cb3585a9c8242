// Package transport defines the capability interfaces the event core
// consumes in place of a real platform Bluetooth stack (BlueZ /
// CoreBluetooth / Windows.Devices.Bluetooth). Implementations live in
// subpackages: transport/loopback for tests, transport/ws for a real
// network stand-in used by cmd/bluebeamd.
package transport

import "context"

// DiscoveredPeer describes a device found during discovery, before any
// connection attempt.
type DiscoveredPeer struct {
	ID      string
	Name    string
	Address string
}

// Transport is a packet-oriented, FIFO-preserving capability over one
// wireless link to one peer. Packets are preserved as whole units — no
// stream re-chunking is performed by the core or by implementations.
type Transport interface {
	// Send transmits data as a single packet. It may block the caller
	// for the duration of one packet; callers that cannot tolerate this
	// must run it off the event loop's own goroutine.
	Send(ctx context.Context, data []byte) error

	// Recv blocks until the next whole packet arrives, or ctx is done.
	Recv(ctx context.Context) ([]byte, error)

	// Close releases the underlying link. Idempotent.
	Close() error
}

// Connection represents an established link to a peer, capable of
// creating one or more logical Transports over it (each identified by a
// service UUID, mirroring BLE GATT service / RFCOMM channel selection).
type Connection interface {
	CreateTransport(ctx context.Context, serviceUUID string) (Transport, error)
	Disconnect() error
	IsConnected() bool
}

// BluetoothManager is the platform-level capability: discovery and
// connection establishment. Three platform variants (Linux, macOS,
// Windows) would each implement this interface and be selected once at
// process startup; the core never sees per-platform types.
type BluetoothManager interface {
	StartDiscovery(ctx context.Context) error
	StopDiscovery() error
	DiscoveredDevices() []DiscoveredPeer
	Connect(ctx context.Context, peer DiscoveredPeer) (Connection, error)
}

// PairingServiceUUID is the well-known service identifier pairing
// requests a Transport for, per the pairing protocol contract.
const PairingServiceUUID = "00001101-0000-1000-8000-00805f9b34fb"
