package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/wire"
)

func TestPushToOfflineUserReturnsFalse(t *testing.T) {
	p := NewPushService(testLogger())
	assert.False(t, p.PushP2PMessage(5, &wire.P2PMessage{MsgID: 1}))
	assert.False(t, p.Online(5))
}

func TestSecondLoginReplacesSession(t *testing.T) {
	p := NewPushService(testLogger())
	first := &fakeSession{id: "c1", userID: 7}
	second := &fakeSession{id: "c2", userID: 7}
	p.Register(first)
	p.Register(second)

	require.True(t, p.PushP2PMessage(7, &wire.P2PMessage{MsgID: 1}))
	assert.Empty(t, first.envelopes(), "replaced session receives nothing")
	assert.Len(t, second.envelopes(), 1)
}

func TestUnregisterOnlyDropsOwnSession(t *testing.T) {
	p := NewPushService(testLogger())
	first := &fakeSession{id: "c1", userID: 7}
	second := &fakeSession{id: "c2", userID: 7}
	p.Register(first)
	p.Register(second)

	// The old connection tears down after being replaced.
	p.Unregister(7, "c1")
	assert.True(t, p.Online(7), "replacement session must survive")

	p.Unregister(7, "c2")
	assert.False(t, p.Online(7))
}

func TestPushToDeadSession(t *testing.T) {
	p := NewPushService(testLogger())
	s := &fakeSession{id: "c1", userID: 7, dead: true}
	p.Register(s)
	assert.False(t, p.PushP2PMessage(7, &wire.P2PMessage{MsgID: 1}))
}
