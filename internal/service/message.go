package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/termchat/termchat/internal/domain/model"
	"github.com/termchat/termchat/wire"
)

// maxContentBytes caps a single message body well under the frame limit,
// leaving room for the envelope around it.
const maxContentBytes = 64 * 1024

// MessageService validates, persists and fans out chat messages.
// Persistence is asynchronous: the ack confirms acceptance, not a committed
// Scylla write.
type MessageService struct {
	friends FriendRepo
	history HistoryRepo
	sink    MessageSink
	push    *PushService
	log     *slog.Logger
}

func NewMessageService(friends FriendRepo, history HistoryRepo, sink MessageSink, push *PushService, log *slog.Logger) *MessageService {
	return &MessageService{
		friends: friends,
		history: history,
		sink:    sink,
		push:    push,
		log:     log.With(slog.String("service", "message")),
	}
}

// SendP2P accepts one message from senderID. RefSeq ties the ack back to
// the request envelope.
func (s *MessageService) SendP2P(ctx context.Context, senderID uint64, req *wire.P2PMessage, seq uint64) *wire.MessageAck {
	ack := &wire.MessageAck{RefSeq: seq, MsgID: req.MsgID}
	switch {
	case req.MsgID == 0:
		ack.ErrorMsg = "invalid message id"
		return ack
	case req.ReceiverID == 0 || req.ReceiverID == senderID:
		ack.ErrorMsg = "invalid receiver"
		return ack
	case req.Timestamp == 0:
		ack.ErrorMsg = "invalid timestamp"
		return ack
	case len(req.Content) == 0:
		ack.ErrorMsg = "empty message"
		return ack
	case len(req.Content) > maxContentBytes:
		ack.ErrorMsg = "message too large"
		return ack
	}

	ok, err := s.friends.AreFriends(ctx, senderID, req.ReceiverID)
	if err != nil {
		s.log.Error("send: friendship check", slog.Uint64("sender", senderID), slog.Any("error", err))
		ack.ErrorMsg = "internal error"
		return ack
	}
	if !ok {
		ack.ErrorMsg = model.ErrNotFriends.Error()
		return ack
	}

	// msg_id is assigned by the client and echoed everywhere downstream.
	m := &model.Message{
		ID:             req.MsgID,
		ConversationID: model.ConversationID(senderID, req.ReceiverID),
		SenderID:       senderID,
		ReceiverID:     req.ReceiverID,
		ContentType:    model.ContentType(req.ContentType),
		Content:        req.Content,
		CreatedAt:      time.Now().UnixMilli(),
	}
	if m.ContentType == 0 {
		m.ContentType = model.ContentText
	}
	s.sink.Enqueue(m)

	s.push.PushP2PMessage(req.ReceiverID, &wire.P2PMessage{
		MsgID:       m.ID,
		SenderID:    senderID,
		ReceiverID:  req.ReceiverID,
		ContentType: uint32(m.ContentType),
		Content:     req.Content,
		Timestamp:   uint64(m.CreatedAt / 1000),
	})

	ack.Success = true
	return ack
}

// SyncMessages returns the caller's recent inbox, newest first.
func (s *MessageService) SyncMessages(ctx context.Context, userID uint64) *wire.SyncMessagesRes {
	msgs, err := s.history.FetchInbox(ctx, userID)
	if err != nil {
		s.log.Error("sync", slog.Uint64("user_id", userID), slog.Any("error", err))
		return &wire.SyncMessagesRes{ErrorMsg: "internal error"}
	}
	res := &wire.SyncMessagesRes{Success: true}
	for _, m := range msgs {
		res.Messages = append(res.Messages, &wire.P2PMessage{
			MsgID:       m.ID,
			SenderID:    m.SenderID,
			ReceiverID:  m.ReceiverID,
			ContentType: uint32(m.ContentType),
			Content:     m.Content,
			Timestamp:   uint64(m.CreatedAt / 1000),
		})
	}
	return res
}
