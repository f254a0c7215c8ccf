package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/termchat/termchat/internal/domain/model"
)

// FriendStore persists the friend graph in im_friend. Edges are directed;
// an accepted friendship occupies two rows, one per direction, kept in sync
// inside one transaction.
type FriendStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewFriendStore(db *sql.DB, log *slog.Logger) *FriendStore {
	return &FriendStore{db: db, log: log.With(slog.String("store", "friend"))}
}

// AddFriend records a pending request from sender to receiver and returns
// the request id. A second request over a live edge (pending or accepted)
// maps to model.ErrAlreadyExists; a previously rejected edge is reopened.
func (s *FriendStore) AddFriend(ctx context.Context, senderID, receiverID uint64, verifyMsg string) (uint64, error) {
	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO im_friend (user_id, friend_id, status, verify_msg, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		senderID, receiverID, model.FriendPending, verifyMsg, now, now)
	if isDuplicate(err) {
		return s.reopenRejected(ctx, senderID, receiverID, verifyMsg, now)
	}
	if err != nil {
		return 0, fmt.Errorf("add friend: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add friend id: %w", err)
	}
	return uint64(id), nil
}

func (s *FriendStore) reopenRejected(ctx context.Context, senderID, receiverID uint64, verifyMsg string, now int64) (uint64, error) {
	var id uint64
	var status model.FriendStatus
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status FROM im_friend WHERE user_id = ? AND friend_id = ?`,
		senderID, receiverID).Scan(&id, &status)
	if err != nil {
		return 0, scanErr(err)
	}
	if status != model.FriendRejected {
		return 0, model.ErrAlreadyExists
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE im_friend SET status = ?, verify_msg = ?, updated_at = ? WHERE id = ?`,
		model.FriendPending, verifyMsg, now, id)
	if err != nil {
		return 0, fmt.Errorf("reopen friend request: %w", err)
	}
	return id, nil
}

// HandleFriend settles the pending edge identified by reqID. Accepting also
// upserts the reverse edge so the friendship reads symmetric.
func (s *FriendStore) HandleFriend(ctx context.Context, reqID, senderID, receiverID uint64, action model.FriendStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("handle friend: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	res, err := tx.ExecContext(ctx,
		`UPDATE im_friend SET status = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND friend_id = ? AND status = ?`,
		action, now, reqID, senderID, receiverID, model.FriendPending)
	if err != nil {
		return fmt.Errorf("handle friend: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}

	if action == model.FriendAccepted {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO im_friend (user_id, friend_id, status, verify_msg, created_at, updated_at)
			 VALUES (?, ?, ?, '', ?, ?)
			 ON DUPLICATE KEY UPDATE status = VALUES(status), updated_at = VALUES(updated_at)`,
			receiverID, senderID, model.FriendAccepted, now, now)
		if err != nil {
			return fmt.Errorf("handle friend: reverse edge: %w", err)
		}
	}
	return tx.Commit()
}

// ListAccepted returns the user's accepted friends joined with their account
// rows.
func (s *FriendStore) ListAccepted(ctx context.Context, userID uint64) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username
		 FROM im_friend f JOIN im_user u ON u.id = f.friend_id
		 WHERE f.user_id = ? AND f.status = ?
		 ORDER BY u.username`,
		userID, model.FriendAccepted)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, fmt.Errorf("list friends: scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// PendingRequests returns requests awaiting the user's verdict, oldest
// first, for replay at login.
func (s *FriendStore) PendingRequests(ctx context.Context, userID uint64) ([]*model.FriendRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.user_id, u.username, f.verify_msg, f.created_at
		 FROM im_friend f JOIN im_user u ON u.id = f.user_id
		 WHERE f.friend_id = ? AND f.status = ?
		 ORDER BY f.id ASC`,
		userID, model.FriendPending)
	if err != nil {
		return nil, fmt.Errorf("pending requests: %w", err)
	}
	defer rows.Close()

	var out []*model.FriendRequest
	for rows.Next() {
		r := &model.FriendRequest{}
		if err := rows.Scan(&r.ReqID, &r.SenderID, &r.SenderName, &r.VerifyMsg, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("pending requests: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AreFriends reports whether an accepted edge exists from a to b.
func (s *FriendStore) AreFriends(ctx context.Context, a, b uint64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM im_friend WHERE user_id = ? AND friend_id = ? AND status = ?`,
		a, b, model.FriendAccepted).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("are friends: %w", err)
	}
	return true, nil
}
