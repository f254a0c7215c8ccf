package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/internal/domain/model"
	"github.com/termchat/termchat/wire"
)

type friendFixture struct {
	svc     *FriendService
	friends *memFriendRepo
	users   *memUserRepo
	push    *PushService
}

func newFriendFixture(t *testing.T) *friendFixture {
	t.Helper()
	users := newMemUserRepo()
	for id, name := range map[uint64]string{1: "alice", 2: "bob", 3: "carol"} {
		require.NoError(t, users.Insert(context.Background(), &model.User{ID: id, Username: name}))
	}
	friends := newMemFriendRepo()
	push := NewPushService(testLogger())
	return &friendFixture{
		svc:     NewFriendService(friends, users, push, testLogger()),
		friends: friends,
		users:   users,
		push:    push,
	}
}

func (f *friendFixture) online(userID uint64) *fakeSession {
	s := &fakeSession{id: "conn", userID: userID}
	f.push.Register(s)
	return s
}

func TestAddFriendPushesToOnlineReceiver(t *testing.T) {
	f := newFriendFixture(t)
	bob := f.online(2)

	res := f.svc.AddFriend(context.Background(), 1, &wire.AddFriendReq{ReceiverID: 2, VerifyMsg: "hi"})
	require.True(t, res.Success, res.ErrorMsg)

	envs := bob.envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, wire.CmdFriendReqPush, envs[0].Cmd)
	assert.Equal(t, uint64(1), envs[0].FriendReqPush.SenderID)
	assert.Equal(t, "alice", envs[0].FriendReqPush.SenderName)
	assert.Equal(t, "hi", envs[0].FriendReqPush.VerifyMsg)
}

func TestAddFriendRejections(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	assert.False(t, f.svc.AddFriend(ctx, 1, &wire.AddFriendReq{ReceiverID: 1}).Success)
	assert.False(t, f.svc.AddFriend(ctx, 1, &wire.AddFriendReq{ReceiverID: 99}).Success)

	require.True(t, f.svc.AddFriend(ctx, 1, &wire.AddFriendReq{ReceiverID: 2}).Success)
	dup := f.svc.AddFriend(ctx, 1, &wire.AddFriendReq{ReceiverID: 2})
	assert.False(t, dup.Success, "duplicate pending request must be rejected")
}

// Accepting a request must make the friendship visible from both sides.
func TestAcceptMakesFriendshipSymmetric(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()
	alice := f.online(1)

	require.True(t, f.svc.AddFriend(ctx, 1, &wire.AddFriendReq{ReceiverID: 2}).Success)
	res := f.svc.HandleFriend(ctx, 2, &wire.HandleFriendReq{ReqID: 1, SenderID: 1, Action: wire.ActionAccept})
	require.True(t, res.Success, res.ErrorMsg)

	ab, _ := f.friends.AreFriends(ctx, 1, 2)
	ba, _ := f.friends.AreFriends(ctx, 2, 1)
	assert.True(t, ab)
	assert.True(t, ba)

	envs := alice.envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, wire.CmdFriendStatusPush, envs[0].Cmd)
	assert.Equal(t, wire.ActionAccept, envs[0].FriendStatusPush.Action)
	assert.Equal(t, "bob", envs[0].FriendStatusPush.ReceiverName)
}

func TestRejectDoesNotCreateFriendship(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	require.True(t, f.svc.AddFriend(ctx, 1, &wire.AddFriendReq{ReceiverID: 2}).Success)
	res := f.svc.HandleFriend(ctx, 2, &wire.HandleFriendReq{ReqID: 1, SenderID: 1, Action: wire.ActionReject})
	require.True(t, res.Success)

	ab, _ := f.friends.AreFriends(ctx, 1, 2)
	assert.False(t, ab)

	// A rejected edge can be re-requested.
	again := f.svc.AddFriend(ctx, 1, &wire.AddFriendReq{ReceiverID: 2, VerifyMsg: "please"})
	assert.True(t, again.Success, again.ErrorMsg)
}

func TestHandleFriendUnknownRequest(t *testing.T) {
	f := newFriendFixture(t)
	res := f.svc.HandleFriend(context.Background(), 2, &wire.HandleFriendReq{ReqID: 77, SenderID: 1, Action: wire.ActionAccept})
	assert.False(t, res.Success)
}

func TestFriendListReportsPresence(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	require.True(t, f.svc.AddFriend(ctx, 1, &wire.AddFriendReq{ReceiverID: 2}).Success)
	require.True(t, f.svc.HandleFriend(ctx, 2, &wire.HandleFriendReq{ReqID: 1, SenderID: 1, Action: wire.ActionAccept}).Success)
	f.online(2)

	res := f.svc.FriendList(ctx, 1)
	require.True(t, res.Success)
	require.Len(t, res.Friends, 1)
	assert.Equal(t, uint64(2), res.Friends[0].UserID)
	assert.Equal(t, wire.UserStatusOnline, res.Friends[0].Status)

	res2 := f.svc.FriendList(ctx, 2)
	require.Len(t, res2.Friends, 1)
	assert.Equal(t, wire.UserStatusOffline, res2.Friends[0].Status, "alice has no session")
}

// Requests that arrived while offline are replayed oldest first at login.
func TestReplayPendingInOrder(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	require.True(t, f.svc.AddFriend(ctx, 1, &wire.AddFriendReq{ReceiverID: 3, VerifyMsg: "from alice"}).Success)
	require.True(t, f.svc.AddFriend(ctx, 2, &wire.AddFriendReq{ReceiverID: 3, VerifyMsg: "from bob"}).Success)

	carol := f.online(3)
	f.svc.ReplayPending(ctx, 3)

	envs := carol.envelopes()
	require.Len(t, envs, 2)
	assert.Equal(t, uint64(1), envs[0].FriendReqPush.SenderID)
	assert.Equal(t, uint64(2), envs[1].FriendReqPush.SenderID)
}
