package core

import "github.com/bluebeam/bluebeam/transport"

// Event is the closed vocabulary the core's worker consumes from its
// inbound channel: commands issued by the application layer, and
// callbacks delivered by a transport as it observes the outside world.
type Event interface{ isEvent() }

// Commands.

type StartDiscovery struct{}

type StopDiscovery struct{}

type PairWithDevice struct{ PeerID string }

type SendMessage struct {
	SessionID string
	Text      string
}

type SendFile struct {
	SessionID string
	Path      string
}

type CancelTransfer struct{ TransferID string }

type Shutdown struct{}

// Transport callbacks.

type DeviceDiscovered struct {
	ID   string
	Name string
}

type DeviceConnected struct{ ID string }

type DeviceDisconnected struct{ ID string }

type DataReceived struct {
	SessionID string
	Data      []byte
}

// SessionEstablished reports a session whose pairing handshake was
// already driven to completion outside the core (the responder side of
// an inbound pairing attempt has no command to trigger it from, since
// PairWithDevice only covers the local, outgoing side). The CLI's
// accept loop submits this once pairing.Accept/ExchangeKeys/
// CompletePairing finish, handing the resulting session off for the
// core to own from that point on.
type SessionEstablished struct {
	PeerID      string
	DisplayName string
	Address     string
	Fingerprint string
	Conn        transport.Connection
	Tr          transport.Transport
	SharedKey   [32]byte
}

// sendNextChunk drives one chunk of an in-progress outgoing transfer.
// handleSendFile enqueues the first one; each handler run enqueues the
// next, so the transfer advances one event at a time through the same
// worker loop as everything else, giving a CancelTransfer submitted
// mid-transfer an actual turn to run instead of racing a loop that
// sends the whole file before the worker reads anything else.
type sendNextChunk struct{ TransferID string }

func (StartDiscovery) isEvent()      {}
func (StopDiscovery) isEvent()       {}
func (PairWithDevice) isEvent()      {}
func (SendMessage) isEvent()         {}
func (SendFile) isEvent()            {}
func (CancelTransfer) isEvent()      {}
func (Shutdown) isEvent()            {}
func (DeviceDiscovered) isEvent()    {}
func (DeviceConnected) isEvent()     {}
func (DeviceDisconnected) isEvent()  {}
func (DataReceived) isEvent()        {}
func (SessionEstablished) isEvent()  {}
func (sendNextChunk) isEvent()       {}

// Update is the closed vocabulary the core emits on its outbound
// channel, the sole observable output of the core beyond persistence.
type Update interface{ isUpdate() }

type DiscoveryStarted struct{}

type DiscoveryStopped struct{}

type DeviceFound struct {
	ID   string
	Name string
}

type DevicePaired struct{ ID string }

type MessageReceived struct {
	SessionID string
	Message   string
	Timestamp int64
}

type FileTransferProgress struct {
	TransferID string
	Progress   float64
}

type FileReceived struct {
	SessionID string
	Path      string
}

type ErrorUpdate struct {
	Code    int
	Message string
}

func (DiscoveryStarted) isUpdate()     {}
func (DiscoveryStopped) isUpdate()     {}
func (DeviceFound) isUpdate()          {}
func (DevicePaired) isUpdate()         {}
func (MessageReceived) isUpdate()      {}
func (FileTransferProgress) isUpdate() {}
func (FileReceived) isUpdate()         {}
func (ErrorUpdate) isUpdate()          {}
