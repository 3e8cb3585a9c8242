package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluebeam/bluebeam/transport"
)

func TestWSManagerRegisterAndDiscover(t *testing.T) {
	m := newWSManager(time.Second)
	assert.Empty(t, m.DiscoveredDevices())

	m.Register(transport.DiscoveredPeer{ID: "peer-1", Name: "Peer One", Address: "127.0.0.1:9000"})
	m.Register(transport.DiscoveredPeer{ID: "peer-2", Name: "Peer Two", Address: "127.0.0.1:9001"})

	devices := m.DiscoveredDevices()
	assert.Len(t, devices, 2)

	require.NoError(t, m.StartDiscovery(context.Background()))
	require.NoError(t, m.StopDiscovery())
}

func TestWSManagerConnectRejectsPeerWithoutAddress(t *testing.T) {
	m := newWSManager(time.Second)
	_, err := m.Connect(context.Background(), transport.DiscoveredPeer{ID: "no-address"})
	assert.Error(t, err)
}
