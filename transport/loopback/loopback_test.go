package loopback

import (
	"context"
	"testing"
	"time"

	"github.com/bluebeam/bluebeam/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkSendRecvRoundTrip(t *testing.T) {
	a, b := NewPair()
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, []byte("hello")))
	got, err := b.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, b.Send(ctx, []byte("world")))
	got, err = a.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)
}

func TestLinkCloseFailsFurtherIO(t *testing.T) {
	a, b := NewPair()
	ctx := context.Background()

	require.NoError(t, a.Close())

	err := a.Send(ctx, []byte("x"))
	assert.Error(t, err)

	_, err = b.Recv(ctx)
	assert.Error(t, err)
}

func TestLinkRecvRespectsContextCancellation(t *testing.T) {
	a, _ := NewPair()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManagerDiscoveryAndConnect(t *testing.T) {
	mgr := NewManager()
	initiator, responder := NewPair()
	peer := transport.DiscoveredPeer{ID: "peer-1", Name: "Responder"}
	mgr.Register(peer, initiator)

	ctx := context.Background()
	require.NoError(t, mgr.StartDiscovery(ctx))

	found := mgr.DiscoveredDevices()
	require.Len(t, found, 1)
	assert.Equal(t, "peer-1", found[0].ID)

	conn, err := mgr.Connect(ctx, peer)
	require.NoError(t, err)
	assert.True(t, conn.IsConnected())

	tr, err := conn.CreateTransport(ctx, transport.PairingServiceUUID)
	require.NoError(t, err)

	require.NoError(t, tr.Send(ctx, []byte("ping")))
	got, err := responder.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), got)

	require.NoError(t, conn.Disconnect())
	assert.False(t, conn.IsConnected())
}

func TestConnectUnknownPeerFails(t *testing.T) {
	mgr := NewManager()
	_, err := mgr.Connect(context.Background(), transport.DiscoveredPeer{ID: "missing"})
	assert.Error(t, err)
}
