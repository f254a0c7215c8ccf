package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/termchat/termchat/internal/domain/model"
)

// UserStore persists accounts in im_user.
type UserStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewUserStore(db *sql.DB, log *slog.Logger) *UserStore {
	return &UserStore{db: db, log: log.With(slog.String("store", "user"))}
}

// Insert creates the account row. A taken username or a colliding id maps
// to model.ErrAlreadyExists.
func (s *UserStore) Insert(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO im_user (id, username, password, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.Password, u.CreatedAt)
	if isDuplicate(err) {
		return model.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password, created_at FROM im_user WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
	if err != nil {
		return nil, scanErr(err)
	}
	return u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	u := &model.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password, created_at FROM im_user WHERE id = ?`,
		id).Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
	if err != nil {
		return nil, scanErr(err)
	}
	return u, nil
}

func (s *UserStore) Exists(ctx context.Context, username string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM im_user WHERE username = ?`, username).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return true, nil
}
