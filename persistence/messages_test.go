package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMessageThenGetMessagesOrdered(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().Add(-time.Minute)

	require.NoError(t, store.AddMessage(Message{ID: "m2", ConversationID: "conv-1", Timestamp: base.Add(time.Second)}))
	require.NoError(t, store.AddMessage(Message{ID: "m1", ConversationID: "conv-1", Timestamp: base}))
	require.NoError(t, store.AddMessage(Message{ID: "m3", ConversationID: "conv-2", Timestamp: base}))

	messages, err := store.GetMessages("conv-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m2", messages[1].ID)
}

func TestAddMessageDefaultsStatusToSent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddMessage(Message{ID: "m1", ConversationID: "conv-1"}))

	messages, err := store.GetMessages("conv-1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, MessageSent, messages[0].Status)
}

func TestUpdateMessageStatusAdvances(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddMessage(Message{ID: "m1", ConversationID: "conv-1"}))

	require.NoError(t, store.UpdateMessageStatus("m1", MessageDelivered))
	require.NoError(t, store.UpdateMessageStatus("m1", MessageRead))

	messages, err := store.GetMessages("conv-1")
	require.NoError(t, err)
	assert.Equal(t, MessageRead, messages[0].Status)
}

func TestUpdateMessageStatusRejectsRegression(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddMessage(Message{ID: "m1", ConversationID: "conv-1", Status: MessageRead}))

	err := store.UpdateMessageStatus("m1", MessageSent)
	assert.Error(t, err)
}
