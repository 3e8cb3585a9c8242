package ws

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newInProcessWebsocketPair starts a local httptest server that
// upgrades one connection and dials it, returning the client and
// server ends of the same WebSocket.
func newInProcessWebsocketPair(t *testing.T) (client, server *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	serverCh := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverCh <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + srv.URL[len("http"):]
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return clientConn, <-serverCh
}

func TestDialAndListenRoundTrip(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	clientConn, err := Dial(ctx, ln.Addr().(*net.TCPAddr).String(), time.Second)
	require.NoError(t, err)
	defer clientConn.Disconnect()

	serverConn, err := ln.Accept(ctx)
	require.NoError(t, err)
	defer serverConn.Disconnect()

	clientTransport, err := clientConn.CreateTransport(ctx, "svc")
	require.NoError(t, err)
	serverTransport, err := serverConn.CreateTransport(ctx, "svc")
	require.NoError(t, err)

	require.NoError(t, clientTransport.Send(ctx, []byte("hello over the wire")))
	got, err := serverTransport.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello over the wire"), got)
}

func TestConnSendRecvRoundTrip(t *testing.T) {
	clientWS, serverWS := newInProcessWebsocketPair(t)
	client := newConn(clientWS, 2*time.Second)
	server := newConn(serverWS, 2*time.Second)
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, client.Send(ctx, []byte("ping")))
	got, err := server.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), got)
}

func TestConnCloseEndsRecv(t *testing.T) {
	clientWS, serverWS := newInProcessWebsocketPair(t)
	client := newConn(clientWS, 2*time.Second)
	server := newConn(serverWS, 2*time.Second)
	defer server.Close()

	require.NoError(t, client.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := server.Recv(ctx)
	assert.Error(t, err)
}
