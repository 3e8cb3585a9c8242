package core

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluebeam/bluebeam/persistence"
	"github.com/bluebeam/bluebeam/transport/loopback"
)

// newLinkedCores wires two Core instances together over a loopback pair,
// each driving SessionEstablished so both sides get a live, recv-pumped
// session under the same session id, the way two paired devices would.
func newLinkedCores(t *testing.T) (sender, receiver *Core, senderStore, receiverStore *persistence.Store) {
	t.Helper()
	localTr, remoteTr, sharedKey := newHandshakenSessions(t)

	senderStore = newTestCoreStore(t)
	receiverStore = newTestCoreStore(t)
	sender = New(senderStore, loopback.NewManager(), t.TempDir())
	receiver = New(receiverStore, loopback.NewManager(), t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go sender.Run(ctx)
	go receiver.Run(ctx)

	require.NoError(t, sender.Submit(ctx, SessionEstablished{PeerID: "peer-remote", Tr: localTr, SharedKey: sharedKey}))
	awaitUpdate(t, sender.Updates(), 2*time.Second, func(u Update) bool {
		p, ok := u.(DevicePaired)
		return ok && p.ID == "peer-remote"
	})

	require.NoError(t, receiver.Submit(ctx, SessionEstablished{PeerID: "peer-remote", Tr: remoteTr, SharedKey: sharedKey}))
	awaitUpdate(t, receiver.Updates(), 2*time.Second, func(u Update) bool {
		p, ok := u.(DevicePaired)
		return ok && p.ID == "peer-remote"
	})

	return sender, receiver, senderStore, receiverStore
}

// TestSendFileRoundTripCompletesOnBothSides drives a 200 KiB file (4
// chunks at the fixed 64 KiB chunk size, last one 8 KiB) from one Core
// to another over a loopback link and checks both sides land on
// status=Complete with the bytes intact, per spec.md §8 scenario 5.
func TestSendFileRoundTripCompletesOnBothSides(t *testing.T) {
	sender, receiver, senderStore, receiverStore := newLinkedCores(t)

	payload := make([]byte, 200*1024)
	_, err := rand.Read(payload)
	require.NoError(t, err)
	srcPath := filepath.Join(t.TempDir(), "photo.bin")
	require.NoError(t, os.WriteFile(srcPath, payload, 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sender.Submit(ctx, SendFile{SessionID: "peer-remote", Path: srcPath}))

	received := awaitUpdate(t, receiver.Updates(), 3*time.Second, func(u Update) bool {
		_, ok := u.(FileReceived)
		return ok
	}).(FileReceived)

	gotBytes, err := os.ReadFile(received.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, gotBytes)
	assert.Equal(t, "photo.bin", filepath.Base(received.Path))

	require.Eventually(t, func() bool {
		files, err := senderStore.GetFiles()
		return err == nil && len(files) == 1 && files[0].Status == persistence.FileComplete
	}, 2*time.Second, 10*time.Millisecond, "sender side never reached status=complete")

	require.Eventually(t, func() bool {
		files, err := receiverStore.GetFiles()
		return err == nil && len(files) == 1 && files[0].Status == persistence.FileComplete
	}, 2*time.Second, 10*time.Millisecond, "receiver side never reached status=complete")

	senderFiles, err := senderStore.GetFiles()
	require.NoError(t, err)
	require.Len(t, senderFiles, 1)
	assert.Equal(t, int64(len(payload)), senderFiles[0].SentSize)
}

// TestCancelTransferHaltsMidSendAndFailsBothSides starts a send large
// enough to span several chunks, cancels it after the first chunk has
// gone out, and checks no further chunks arrive and both sides record
// status=Failed, per spec.md §8 scenario 6.
func TestCancelTransferHaltsMidSendAndFailsBothSides(t *testing.T) {
	sender, receiver, senderStore, receiverStore := newLinkedCores(t)

	payload := make([]byte, 10*chunkSize)
	_, err := rand.Read(payload)
	require.NoError(t, err)
	srcPath := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(srcPath, payload, 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sender.Submit(ctx, SendFile{SessionID: "peer-remote", Path: srcPath}))

	progress := awaitUpdate(t, sender.Updates(), 3*time.Second, func(u Update) bool {
		_, ok := u.(FileTransferProgress)
		return ok
	}).(FileTransferProgress)
	transferID := progress.TransferID
	require.NotEmpty(t, transferID)

	require.NoError(t, sender.Submit(ctx, CancelTransfer{TransferID: transferID}))

	require.Eventually(t, func() bool {
		files, err := senderStore.GetFiles()
		return err == nil && len(files) == 1 && files[0].Status == persistence.FileFailed
	}, 2*time.Second, 10*time.Millisecond, "sender side never reached status=failed")

	require.Eventually(t, func() bool {
		files, err := receiverStore.GetFiles()
		return err == nil && len(files) == 1 && files[0].Status == persistence.FileFailed
	}, 2*time.Second, 10*time.Millisecond, "receiver side never reached status=failed")

	senderFiles, err := senderStore.GetFiles()
	require.NoError(t, err)
	require.Len(t, senderFiles, 1)
	assert.Less(t, senderFiles[0].SentSize, int64(len(payload)), "transfer should have been cut short")
}
