package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/termchat/termchat/wire"
)

// [SESSION] SLICE OF A LIVE CONNECTION THE SERVICES CAN PUSH TO
type Session interface {
	// ID is the connection id, distinct from the user id.
	ID() string
	UserID() uint64
	// Bind associates the connection with an authenticated user.
	Bind(userID uint64)
	// Push enqueues one already-framed message for asynchronous delivery.
	// Returns false when the connection is gone.
	Push(frame []byte) bool
}

// PushService maps online users to their sessions and delivers
// server-initiated envelopes. Frames are encoded once at enqueue time, so a
// slow receiver never holds an envelope in a half-serialized state.
type PushService struct {
	mu       sync.RWMutex
	sessions map[uint64]Session
	log      *slog.Logger
}

func NewPushService(log *slog.Logger) *PushService {
	return &PushService{
		sessions: make(map[uint64]Session),
		log:      log.With(slog.String("service", "push")),
	}
}

// Register makes the session reachable under its bound user id. A second
// login replaces the previous session; the old connection keeps draining
// but receives no further pushes.
func (p *PushService) Register(s Session) {
	p.mu.Lock()
	old, had := p.sessions[s.UserID()]
	p.sessions[s.UserID()] = s
	p.mu.Unlock()
	if had && old.ID() != s.ID() {
		p.log.Info("session replaced",
			slog.Uint64("user_id", s.UserID()),
			slog.String("old_conn", old.ID()),
			slog.String("new_conn", s.ID()))
	}
}

// Unregister drops the mapping, but only if it still points at this exact
// session; a replacement login must not be knocked out by the old
// connection's teardown.
func (p *PushService) Unregister(userID uint64, connID string) {
	p.mu.Lock()
	if cur, ok := p.sessions[userID]; ok && cur.ID() == connID {
		delete(p.sessions, userID)
	}
	p.mu.Unlock()
}

// Online reports whether the user has a registered session.
func (p *PushService) Online(userID uint64) bool {
	p.mu.RLock()
	_, ok := p.sessions[userID]
	p.mu.RUnlock()
	return ok
}

func (p *PushService) push(userID uint64, env *wire.Envelope) bool {
	p.mu.RLock()
	s, ok := p.sessions[userID]
	p.mu.RUnlock()
	if !ok {
		return false
	}
	frame, err := wire.EncodeFrame(env)
	if err != nil {
		p.log.Error("encode push", slog.String("cmd", env.Cmd.String()), slog.Any("error", err))
		return false
	}
	if !s.Push(frame) {
		p.log.Debug("push to dead session", slog.Uint64("user_id", userID))
		return false
	}
	return true
}

// PushFriendReq notifies the receiver of a new friend request.
func (p *PushService) PushFriendReq(receiverID uint64, body *wire.FriendReqPush) bool {
	return p.push(receiverID, &wire.Envelope{
		Cmd:           wire.CmdFriendReqPush,
		Timestamp:     uint64(time.Now().Unix()),
		FriendReqPush: body,
	})
}

// PushFriendStatus notifies the original requester of the verdict.
func (p *PushService) PushFriendStatus(senderID uint64, body *wire.FriendStatusPush) bool {
	return p.push(senderID, &wire.Envelope{
		Cmd:              wire.CmdFriendStatusPush,
		Timestamp:        uint64(time.Now().Unix()),
		FriendStatusPush: body,
	})
}

// PushP2PMessage delivers a chat message to an online receiver.
func (p *PushService) PushP2PMessage(receiverID uint64, body *wire.P2PMessage) bool {
	return p.push(receiverID, &wire.Envelope{
		Cmd:        wire.CmdP2PMsgPush,
		Timestamp:  uint64(time.Now().Unix()),
		P2PMsgPush: body,
	})
}
