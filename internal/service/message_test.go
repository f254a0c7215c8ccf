package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/internal/domain/model"
	"github.com/termchat/termchat/wire"
)

type messageFixture struct {
	svc     *MessageService
	friends *memFriendRepo
	history *memHistory
	sink    *memSink
	push    *PushService
}

func newMessageFixture(t *testing.T, friendPairs ...[2]uint64) *messageFixture {
	t.Helper()
	friends := newMemFriendRepo()
	ctx := context.Background()
	for _, p := range friendPairs {
		reqID, err := friends.AddFriend(ctx, p[0], p[1], "")
		require.NoError(t, err)
		require.NoError(t, friends.HandleFriend(ctx, reqID, p[0], p[1], model.FriendAccepted))
	}
	history := &memHistory{}
	sink := &memSink{}
	push := NewPushService(testLogger())
	return &messageFixture{
		svc:     NewMessageService(friends, history, sink, push, testLogger()),
		friends: friends,
		history: history,
		sink:    sink,
		push:    push,
	}
}

func TestSendP2PPersistsAndPushes(t *testing.T) {
	f := newMessageFixture(t, [2]uint64{1, 2})
	bob := &fakeSession{id: "c2", userID: 2}
	f.push.Register(bob)

	req := &wire.P2PMessage{MsgID: 42, ReceiverID: 2, Content: []byte("hello"), Timestamp: uint64(time.Now().Unix())}
	ack := f.svc.SendP2P(context.Background(), 1, req, 7)
	require.True(t, ack.Success, ack.ErrorMsg)
	assert.Equal(t, uint64(7), ack.RefSeq)
	assert.Equal(t, uint64(42), ack.MsgID, "ack must echo the client-assigned msg_id")

	stored := f.sink.all()
	require.Len(t, stored, 1)
	assert.Equal(t, uint64(42), stored[0].ID)
	assert.Equal(t, "1_2", stored[0].ConversationID)
	assert.Equal(t, model.ContentText, stored[0].ContentType)

	envs := bob.envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, wire.CmdP2PMsgPush, envs[0].Cmd)
	assert.Equal(t, uint64(42), envs[0].P2PMsgPush.MsgID)
	assert.True(t, bytes.Equal([]byte("hello"), envs[0].P2PMsgPush.Content))

	// Pushed timestamps are unix seconds, not the stored milliseconds.
	now := uint64(time.Now().Unix())
	assert.InDelta(t, now, envs[0].P2PMsgPush.Timestamp, 5)
}

func TestSendP2POfflineReceiverStillPersisted(t *testing.T) {
	f := newMessageFixture(t, [2]uint64{1, 2})
	ack := f.svc.SendP2P(context.Background(), 1, validP2P(2, "hi"), 1)
	require.True(t, ack.Success)
	assert.Len(t, f.sink.all(), 1, "offline delivery relies on the persisted inbox")
}

func validP2P(receiverID uint64, content string) *wire.P2PMessage {
	return &wire.P2PMessage{
		MsgID:      model.NewID(),
		ReceiverID: receiverID,
		Content:    []byte(content),
		Timestamp:  uint64(time.Now().Unix()),
	}
}

func TestSendP2PRejections(t *testing.T) {
	f := newMessageFixture(t, [2]uint64{1, 2})
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*wire.P2PMessage)
	}{
		{"zero msg id", func(m *wire.P2PMessage) { m.MsgID = 0 }},
		{"self", func(m *wire.P2PMessage) { m.ReceiverID = 1 }},
		{"zero receiver", func(m *wire.P2PMessage) { m.ReceiverID = 0 }},
		{"zero timestamp", func(m *wire.P2PMessage) { m.Timestamp = 0 }},
		{"empty content", func(m *wire.P2PMessage) { m.Content = nil }},
		{"oversized", func(m *wire.P2PMessage) { m.Content = make([]byte, maxContentBytes+1) }},
		{"not friends", func(m *wire.P2PMessage) { m.ReceiverID = 9 }},
	}
	for _, tc := range cases {
		msg := validP2P(2, "x")
		tc.mutate(msg)
		ack := f.svc.SendP2P(ctx, 1, msg, 1)
		assert.False(t, ack.Success, tc.name)
		assert.NotEmpty(t, ack.ErrorMsg, tc.name)
	}
	assert.Empty(t, f.sink.all())
}

func TestSyncMessages(t *testing.T) {
	f := newMessageFixture(t)
	f.history.msgs = []*model.Message{
		{ID: 2, SenderID: 1, ReceiverID: 2, Content: []byte("second"), CreatedAt: 2000},
		{ID: 1, SenderID: 1, ReceiverID: 2, Content: []byte("first"), CreatedAt: 1000},
	}

	res := f.svc.SyncMessages(context.Background(), 2)
	require.True(t, res.Success)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, uint64(2), res.Messages[0].MsgID, "inbox is newest first")
	assert.Equal(t, uint64(2), res.Messages[0].Timestamp, "stored milliseconds surface as unix seconds")
}

// Concurrent senders fanning in to one receiver: every message is delivered
// exactly once and per-sender order is preserved.
func TestFanInPreservesPerSenderOrder(t *testing.T) {
	const senders = 8
	const perSender = 50

	pairs := make([][2]uint64, senders)
	for i := range pairs {
		pairs[i] = [2]uint64{uint64(i + 1), 100}
	}
	f := newMessageFixture(t, pairs...)
	receiver := &fakeSession{id: "c100", userID: 100}
	f.push.Register(receiver)

	var wg sync.WaitGroup
	for s := 1; s <= senders; s++ {
		wg.Add(1)
		go func(senderID uint64) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				msg := validP2P(100, fmt.Sprintf("%d:%d", senderID, i))
				ack := f.svc.SendP2P(context.Background(), senderID, msg, uint64(i))
				assert.True(t, ack.Success)
			}
		}(uint64(s))
	}
	wg.Wait()

	envs := receiver.envelopes()
	require.Len(t, envs, senders*perSender)

	next := make(map[uint64]int)
	for _, e := range envs {
		require.Equal(t, wire.CmdP2PMsgPush, e.Cmd)
		var senderID uint64
		var seq int
		_, err := fmt.Sscanf(string(e.P2PMsgPush.Content), "%d:%d", &senderID, &seq)
		require.NoError(t, err)
		assert.Equal(t, next[senderID], seq, "sender %d out of order", senderID)
		next[senderID]++
	}
	assert.Len(t, f.sink.all(), senders*perSender)
}
