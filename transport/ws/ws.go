// Package ws implements transport.Transport/Connection over a real
// network link using gorilla/websocket, standing in for Bluetooth
// Classic SPP / BLE GATT during local development and demos. One
// WebSocket binary message is exactly one Transport packet — no
// JSON-RPC envelope, no request/response pairing, matching the "whole
// units, FIFO per transport" contract the core requires.
package ws

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bluebeam/bluebeam/transport"
)

const packetQueueDepth = 64

// Conn is a transport.Transport backed by one WebSocket connection.
type Conn struct {
	ws *websocket.Conn

	writeMu      sync.Mutex
	writeTimeout time.Duration

	inbound   chan []byte
	readErr   chan error
	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(wsConn *websocket.Conn, writeTimeout time.Duration) *Conn {
	c := &Conn{
		ws:           wsConn,
		writeTimeout: writeTimeout,
		inbound:      make(chan []byte, packetQueueDepth),
		readErr:      make(chan error, 1),
		closed:       make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// readLoop continuously pulls binary frames off the socket so Recv can
// be combined with context cancellation without gorilla's blocking
// ReadMessage call leaking a goroutine per call.
func (c *Conn) readLoop() {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case c.readErr <- err:
			default:
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		select {
		case c.inbound <- data:
		case <-c.closed:
			return
		}
	}
}

// Send implements transport.Transport.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("ws: set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("ws: write packet: %w", err)
	}
	return nil
}

// Recv implements transport.Transport.
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.readErr:
		return nil, fmt.Errorf("ws: read packet: %w", err)
	case <-c.closed:
		return nil, fmt.Errorf("ws: connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements transport.Transport.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.ws.Close()
	})
	return err
}

var _ transport.Transport = (*Conn)(nil)

// Connection wraps a dialed or accepted Conn as a transport.Connection.
// Because one WebSocket link carries exactly one logical channel,
// CreateTransport ignores the service UUID and returns the same Conn
// on every call.
type Connection struct {
	conn *Conn
}

// NewConnection wraps an established Conn.
func NewConnection(conn *Conn) *Connection {
	return &Connection{conn: conn}
}

// CreateTransport implements transport.Connection.
func (c *Connection) CreateTransport(_ context.Context, _ string) (transport.Transport, error) {
	return c.conn, nil
}

// Disconnect implements transport.Connection.
func (c *Connection) Disconnect() error {
	return c.conn.Close()
}

// IsConnected implements transport.Connection.
func (c *Connection) IsConnected() bool {
	select {
	case <-c.conn.closed:
		return false
	default:
		return true
	}
}

var _ transport.Connection = (*Connection)(nil)

// Dial opens a WebSocket connection to addr (host:port, scheme-less —
// "ws://" is prepended) and wraps it as a Connection.
func Dial(ctx context.Context, addr string, dialTimeout time.Duration) (*Connection, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: dialTimeout}
	url := "ws://" + addr + "/bluebeam"
	wsConn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws: dial %s failed (HTTP %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("ws: dial %s failed: %w", url, err)
	}
	return NewConnection(newConn(wsConn, dialTimeout)), nil
}

// Listener accepts inbound WebSocket connections on an HTTP server and
// hands each one off as an accepted Connection.
type Listener struct {
	upgrader websocket.Upgrader
	server   *http.Server
	accepted chan *Connection
	addr     net.Addr
}

// Listen starts an HTTP server on addr upgrading every request on
// /bluebeam to a WebSocket. Call Accept to retrieve incoming
// Connections and Close to shut the listener down.
func Listen(addr string) (*Listener, error) {
	l := &Listener{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		accepted: make(chan *Connection, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bluebeam", l.handleUpgrade)
	l.server = &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ws: listen %s: %w", addr, err)
	}
	l.addr = ln.Addr()
	go func() { _ = l.server.Serve(ln) }()
	return l, nil
}

// Addr returns the listener's bound network address, useful when addr
// was passed as "host:0" to select an ephemeral port.
func (l *Listener) Addr() net.Addr {
	return l.addr
}

func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	wsConn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := NewConnection(newConn(wsConn, 30*time.Second))
	l.accepted <- conn
}

// Accept blocks until a peer connects or ctx is done.
func (l *Listener) Accept(ctx context.Context) (*Connection, error) {
	select {
	case conn := <-l.accepted:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the listener's HTTP server down.
func (l *Listener) Close() error {
	return l.server.Close()
}
