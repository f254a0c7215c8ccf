package scylla

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocql/gocql"
	"github.com/sony/gobreaker"

	"github.com/termchat/termchat/internal/domain/model"
)

const inboxLimit = 500

// MessageStore writes and reads chat history. All cluster calls go through
// a circuit breaker so a sick Scylla fails fast instead of piling up worker
// goroutines behind timeouts.
type MessageStore struct {
	sess *gocql.Session
	cb   *gobreaker.CircuitBreaker
	log  *slog.Logger
}

func NewMessageStore(sess *gocql.Session, log *slog.Logger) *MessageStore {
	log = log.With(slog.String("store", "message"))
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "scylla",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})
	return &MessageStore{sess: sess, cb: cb, log: log}
}

// InsertBatch persists the messages in one logged batch. Each message costs
// three inserts: the conversation row and one inbox row per participant.
func (s *MessageStore) InsertBatch(ctx context.Context, msgs []*model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := s.sess.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, m := range msgs {
		batch.Query(
			`INSERT INTO messages (conversation_id, created_at, msg_id, sender_id, receiver_id, content_type, content)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ConversationID, m.CreatedAt, int64(m.ID), int64(m.SenderID), int64(m.ReceiverID), int(m.ContentType), m.Content)
		for _, owner := range []uint64{m.SenderID, m.ReceiverID} {
			batch.Query(
				`INSERT INTO user_messages (user_id, created_at, msg_id, sender_id, receiver_id, content_type, content)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				int64(owner), m.CreatedAt, int64(m.ID), int64(m.SenderID), int64(m.ReceiverID), int(m.ContentType), m.Content)
		}
	}
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.sess.ExecuteBatch(batch)
	})
	if err != nil {
		return fmt.Errorf("scylla: insert batch of %d: %w", len(msgs), err)
	}
	return nil
}

// FetchInbox returns the user's most recent messages, newest first.
func (s *MessageStore) FetchInbox(ctx context.Context, userID uint64) ([]*model.Message, error) {
	res, err := s.cb.Execute(func() (any, error) {
		iter := s.sess.Query(
			`SELECT msg_id, sender_id, receiver_id, content_type, content, created_at
			 FROM user_messages WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
			int64(userID), inboxLimit).WithContext(ctx).Iter()

		var out []*model.Message
		var msgID, senderID, receiverID, createdAt int64
		var contentType int
		var content []byte
		for iter.Scan(&msgID, &senderID, &receiverID, &contentType, &content, &createdAt) {
			out = append(out, &model.Message{
				ID:          uint64(msgID),
				SenderID:    uint64(senderID),
				ReceiverID:  uint64(receiverID),
				ContentType: model.ContentType(contentType),
				Content:     append([]byte(nil), content...),
				CreatedAt:   createdAt,
			})
			content = nil
		}
		if err := iter.Close(); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scylla: fetch inbox %d: %w", userID, err)
	}
	return res.([]*model.Message), nil
}
