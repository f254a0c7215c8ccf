package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/termchat/termchat/internal/domain/model"
	"github.com/termchat/termchat/wire"
)

const userCacheSize = 4096

// FriendService owns the friend graph: requests, verdicts and the list.
type FriendService struct {
	friends FriendRepo
	users   UserRepo
	push    *PushService
	cache   *lru.Cache[uint64, *model.User]
	log     *slog.Logger
}

func NewFriendService(friends FriendRepo, users UserRepo, push *PushService, log *slog.Logger) *FriendService {
	cache, _ := lru.New[uint64, *model.User](userCacheSize)
	return &FriendService{
		friends: friends,
		users:   users,
		push:    push,
		cache:   cache,
		log:     log.With(slog.String("service", "friend")),
	}
}

// userByID goes through the LRU first; usernames are immutable so cached
// entries never go stale.
func (s *FriendService) userByID(ctx context.Context, id uint64) (*model.User, error) {
	if u, ok := s.cache.Get(id); ok {
		return u, nil
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, u)
	return u, nil
}

// AddFriend records the request and pushes it to the receiver when online.
func (s *FriendService) AddFriend(ctx context.Context, senderID uint64, req *wire.AddFriendReq) *wire.AddFriendRes {
	if req.ReceiverID == senderID {
		return &wire.AddFriendRes{ErrorMsg: "cannot add yourself"}
	}
	sender, err := s.userByID(ctx, senderID)
	if err != nil {
		s.log.Error("add friend: sender lookup", slog.Uint64("user_id", senderID), slog.Any("error", err))
		return &wire.AddFriendRes{ErrorMsg: "internal error"}
	}
	if _, err := s.userByID(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return &wire.AddFriendRes{ErrorMsg: "no such user"}
		}
		s.log.Error("add friend: receiver lookup", slog.Uint64("user_id", req.ReceiverID), slog.Any("error", err))
		return &wire.AddFriendRes{ErrorMsg: "internal error"}
	}

	reqID, err := s.friends.AddFriend(ctx, senderID, req.ReceiverID, req.VerifyMsg)
	if errors.Is(err, model.ErrAlreadyExists) {
		return &wire.AddFriendRes{ErrorMsg: "request already exists"}
	}
	if err != nil {
		s.log.Error("add friend", slog.Uint64("sender", senderID), slog.Uint64("receiver", req.ReceiverID), slog.Any("error", err))
		return &wire.AddFriendRes{ErrorMsg: "internal error"}
	}

	s.push.PushFriendReq(req.ReceiverID, &wire.FriendReqPush{
		ReqID:      reqID,
		SenderID:   senderID,
		SenderName: sender.Username,
		VerifyMsg:  req.VerifyMsg,
		Timestamp:  uint64(time.Now().Unix()),
	})
	return &wire.AddFriendRes{Success: true}
}

// HandleFriend settles a pending request and notifies the requester.
func (s *FriendService) HandleFriend(ctx context.Context, userID uint64, req *wire.HandleFriendReq) *wire.HandleFriendRes {
	var status model.FriendStatus
	switch req.Action {
	case wire.ActionAccept:
		status = model.FriendAccepted
	case wire.ActionReject:
		status = model.FriendRejected
	default:
		return &wire.HandleFriendRes{SenderID: req.SenderID, ErrorMsg: "unknown action"}
	}

	err := s.friends.HandleFriend(ctx, req.ReqID, req.SenderID, userID, status)
	if errors.Is(err, model.ErrNotFound) {
		return &wire.HandleFriendRes{SenderID: req.SenderID, ErrorMsg: "no such pending request"}
	}
	if err != nil {
		s.log.Error("handle friend", slog.Uint64("req_id", req.ReqID), slog.Any("error", err))
		return &wire.HandleFriendRes{SenderID: req.SenderID, ErrorMsg: "internal error"}
	}

	receiver, err := s.userByID(ctx, userID)
	if err == nil {
		s.push.PushFriendStatus(req.SenderID, &wire.FriendStatusPush{
			ReceiverID:   userID,
			ReceiverName: receiver.Username,
			Action:       req.Action,
			Timestamp:    uint64(time.Now().Unix()),
		})
	}
	return &wire.HandleFriendRes{Success: true, SenderID: req.SenderID}
}

// FriendList returns accepted friends with live presence.
func (s *FriendService) FriendList(ctx context.Context, userID uint64) *wire.GetFriendListRes {
	friends, err := s.friends.ListAccepted(ctx, userID)
	if err != nil {
		s.log.Error("friend list", slog.Uint64("user_id", userID), slog.Any("error", err))
		return &wire.GetFriendListRes{ErrorMsg: "internal error"}
	}
	res := &wire.GetFriendListRes{Success: true}
	for _, f := range friends {
		status := wire.UserStatusOffline
		if s.push.Online(f.ID) {
			status = wire.UserStatusOnline
		}
		res.Friends = append(res.Friends, &wire.UserInfo{
			UserID:   f.ID,
			Username: f.Username,
			Status:   status,
		})
	}
	return res
}

// ReplayPending pushes requests that arrived while the user was offline.
// Called after a successful login, oldest request first.
func (s *FriendService) ReplayPending(ctx context.Context, userID uint64) {
	pending, err := s.friends.PendingRequests(ctx, userID)
	if err != nil {
		s.log.Error("replay pending", slog.Uint64("user_id", userID), slog.Any("error", err))
		return
	}
	for _, r := range pending {
		s.push.PushFriendReq(userID, &wire.FriendReqPush{
			ReqID:      r.ReqID,
			SenderID:   r.SenderID,
			SenderName: r.SenderName,
			VerifyMsg:  r.VerifyMsg,
			Timestamp:  uint64(r.CreatedAt / 1000),
		})
	}
}
