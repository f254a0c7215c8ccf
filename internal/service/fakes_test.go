package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/termchat/termchat/internal/domain/model"
	"github.com/termchat/termchat/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memUserRepo is an in-memory UserRepo.
type memUserRepo struct {
	mu      sync.Mutex
	byID    map[uint64]*model.User
	byName  map[string]*model.User
	failIDs int // force this many id collisions before accepting
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[uint64]*model.User{}, byName: map[string]*model.User{}}
}

func (r *memUserRepo) Insert(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[u.Username]; ok {
		return model.ErrAlreadyExists
	}
	if r.failIDs > 0 {
		r.failIDs--
		return model.ErrAlreadyExists
	}
	if _, ok := r.byID[u.ID]; ok {
		return model.ErrAlreadyExists
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.byName[u.Username] = &cp
	return nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byName[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, model.ErrNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id uint64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, model.ErrNotFound
}

// memFriendRepo mirrors the MySQL store's two-edge semantics.
type memFriendRepo struct {
	mu    sync.Mutex
	next  uint64
	edges map[string]*model.Friend // "user_friend" -> edge
}

func newMemFriendRepo() *memFriendRepo {
	return &memFriendRepo{next: 1, edges: map[string]*model.Friend{}}
}

func edgeKey(a, b uint64) string { return fmt.Sprintf("%d_%d", a, b) }

func (r *memFriendRepo) AddFriend(_ context.Context, senderID, receiverID uint64, verifyMsg string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.edges[edgeKey(senderID, receiverID)]; ok {
		if e.Status != model.FriendRejected {
			return 0, model.ErrAlreadyExists
		}
		e.Status = model.FriendPending
		e.VerifyMsg = verifyMsg
		return e.ID, nil
	}
	e := &model.Friend{ID: r.next, UserID: senderID, FriendID: receiverID, Status: model.FriendPending, VerifyMsg: verifyMsg}
	r.next++
	r.edges[edgeKey(senderID, receiverID)] = e
	return e.ID, nil
}

func (r *memFriendRepo) HandleFriend(_ context.Context, reqID, senderID, receiverID uint64, action model.FriendStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.edges[edgeKey(senderID, receiverID)]
	if !ok || e.ID != reqID || e.Status != model.FriendPending {
		return model.ErrNotFound
	}
	e.Status = action
	if action == model.FriendAccepted {
		rev, ok := r.edges[edgeKey(receiverID, senderID)]
		if !ok {
			rev = &model.Friend{ID: r.next, UserID: receiverID, FriendID: senderID}
			r.next++
			r.edges[edgeKey(receiverID, senderID)] = rev
		}
		rev.Status = model.FriendAccepted
	}
	return nil
}

func (r *memFriendRepo) ListAccepted(_ context.Context, userID uint64) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, e := range r.edges {
		if e.UserID == userID && e.Status == model.FriendAccepted {
			out = append(out, &model.User{ID: e.FriendID, Username: fmt.Sprintf("user%d", e.FriendID)})
		}
	}
	return out, nil
}

func (r *memFriendRepo) PendingRequests(_ context.Context, userID uint64) ([]*model.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.FriendRequest
	for i := uint64(1); i < r.next; i++ {
		for _, e := range r.edges {
			if e.ID == i && e.FriendID == userID && e.Status == model.FriendPending {
				out = append(out, &model.FriendRequest{
					ReqID:      e.ID,
					SenderID:   e.UserID,
					SenderName: fmt.Sprintf("user%d", e.UserID),
					VerifyMsg:  e.VerifyMsg,
				})
			}
		}
	}
	return out, nil
}

func (r *memFriendRepo) AreFriends(_ context.Context, a, b uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.edges[edgeKey(a, b)]
	return ok && e.Status == model.FriendAccepted, nil
}

// memHistory is a canned HistoryRepo.
type memHistory struct {
	msgs []*model.Message
}

func (h *memHistory) FetchInbox(context.Context, uint64) ([]*model.Message, error) {
	return h.msgs, nil
}

// memSink records enqueued messages.
type memSink struct {
	mu   sync.Mutex
	msgs []*model.Message
}

func (s *memSink) Enqueue(m *model.Message) {
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
}

func (s *memSink) all() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Message(nil), s.msgs...)
}

// fakeSession records pushed frames.
type fakeSession struct {
	mu     sync.Mutex
	id     string
	userID uint64
	frames [][]byte
	dead   bool
}

func (s *fakeSession) ID() string        { return s.id }
func (s *fakeSession) UserID() uint64    { return s.userID }
func (s *fakeSession) Bind(userID uint64) { s.userID = userID }

func (s *fakeSession) Push(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

// envelopes decodes everything pushed so far.
func (s *fakeSession) envelopes() []*wire.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*wire.Envelope
	for _, f := range s.frames {
		e, err := wire.Unmarshal(f[wire.FrameHeaderSize:])
		if err != nil {
			panic(err)
		}
		out = append(out, e)
	}
	return out
}
