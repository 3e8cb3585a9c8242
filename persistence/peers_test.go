package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPeerThenGetPeers(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AddPeer(Peer{ID: "peer-1", DisplayName: "Alice", LastSeen: time.Now().Add(-time.Hour)}))
	require.NoError(t, store.AddPeer(Peer{ID: "peer-2", DisplayName: "Bob", LastSeen: time.Now()}))

	peers, err := store.GetPeers()
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.Equal(t, "peer-2", peers[0].ID, "most recently seen peer should sort first")
}

func TestAddPeerUpsertsExisting(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AddPeer(Peer{ID: "peer-1", DisplayName: "Alice"}))
	require.NoError(t, store.AddPeer(Peer{ID: "peer-1", DisplayName: "Alice Renamed"}))

	peers, err := store.GetPeers()
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "Alice Renamed", peers[0].DisplayName)
}

func TestSetTrusted(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddPeer(Peer{ID: "peer-1", Trusted: false}))

	require.NoError(t, store.SetTrusted("peer-1", true))

	peer, err := store.GetPeer("peer-1")
	require.NoError(t, err)
	assert.True(t, peer.Trusted)
}

func TestGetPeerUnknownReturnsError(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetPeer("does-not-exist")
	assert.Error(t, err)
}
