package service

import (
	"context"

	"github.com/termchat/termchat/internal/domain/model"
)

// Repository slices the services depend on. The MySQL and Scylla stores
// satisfy these; tests substitute in-memory fakes.

type UserRepo interface {
	Insert(ctx context.Context, u *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id uint64) (*model.User, error)
}

type FriendRepo interface {
	AddFriend(ctx context.Context, senderID, receiverID uint64, verifyMsg string) (uint64, error)
	HandleFriend(ctx context.Context, reqID, senderID, receiverID uint64, action model.FriendStatus) error
	ListAccepted(ctx context.Context, userID uint64) ([]*model.User, error)
	PendingRequests(ctx context.Context, userID uint64) ([]*model.FriendRequest, error)
	AreFriends(ctx context.Context, a, b uint64) (bool, error)
}

type HistoryRepo interface {
	FetchInbox(ctx context.Context, userID uint64) ([]*model.Message, error)
}

// MessageSink receives messages for asynchronous persistence.
type MessageSink interface {
	Enqueue(m *model.Message)
}
