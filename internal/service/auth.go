package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/termchat/termchat/internal/domain/model"
	"github.com/termchat/termchat/wire"
)

// AuthService owns registration and login.
type AuthService struct {
	users  UserRepo
	tokens *TokenManager
	push   *PushService
	log    *slog.Logger
}

func NewAuthService(users UserRepo, tokens *TokenManager, push *PushService, log *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		push:   push,
		log:    log.With(slog.String("service", "auth")),
	}
}

// Register creates the account. The response never exposes which internal
// step failed beyond the username being taken.
func (s *AuthService) Register(ctx context.Context, req *wire.RegisterReq) *wire.RegisterRes {
	if msg := validateCredentials(req.Username, req.Password); msg != "" {
		return &wire.RegisterRes{ErrorMsg: msg}
	}

	u := &model.User{
		ID:        model.NewID(),
		Username:  req.Username,
		Password:  req.Password,
		CreatedAt: time.Now().UnixMilli(),
	}
	err := s.users.Insert(ctx, u)
	if errors.Is(err, model.ErrAlreadyExists) {
		// The unique key that fired could be the username or a colliding
		// id. Disambiguate, then retry the id once.
		if _, ferr := s.users.FindByUsername(ctx, req.Username); ferr == nil {
			return &wire.RegisterRes{ErrorMsg: "Username already exists"}
		}
		u.ID = model.NewID()
		err = s.users.Insert(ctx, u)
		if errors.Is(err, model.ErrAlreadyExists) {
			return &wire.RegisterRes{ErrorMsg: "Username already exists"}
		}
	}
	if err != nil {
		s.log.Error("register", slog.String("username", req.Username), slog.Any("error", err))
		return &wire.RegisterRes{ErrorMsg: "internal error"}
	}

	s.log.Info("user registered", slog.Uint64("user_id", u.ID), slog.String("username", u.Username))
	return &wire.RegisterRes{Success: true, UserID: u.ID}
}

// Login verifies credentials, binds the session to the user and registers
// it for pushes. Callers replay pending friend requests after a success.
func (s *AuthService) Login(ctx context.Context, req *wire.LoginReq, sess Session) *wire.LoginRes {
	u, err := s.users.FindByUsername(ctx, req.Username)
	if errors.Is(err, model.ErrNotFound) {
		return &wire.LoginRes{ErrorMsg: model.ErrBadCredential.Error()}
	}
	if err != nil {
		s.log.Error("login lookup", slog.String("username", req.Username), slog.Any("error", err))
		return &wire.LoginRes{ErrorMsg: "internal error"}
	}
	if u.Password != req.Password {
		return &wire.LoginRes{ErrorMsg: model.ErrBadCredential.Error()}
	}

	token, err := s.tokens.Generate(u.ID, u.Username)
	if err != nil {
		s.log.Error("login token", slog.Uint64("user_id", u.ID), slog.Any("error", err))
		return &wire.LoginRes{ErrorMsg: "internal error"}
	}

	sess.Bind(u.ID)
	s.push.Register(sess)
	s.log.Info("user logged in",
		slog.Uint64("user_id", u.ID),
		slog.String("username", u.Username),
		slog.String("conn", sess.ID()))

	return &wire.LoginRes{
		Success: true,
		Token:   token,
		UserInfo: &wire.UserInfo{
			UserID:   u.ID,
			Username: u.Username,
			Status:   wire.UserStatusOnline,
		},
	}
}

// VerifyPassword backs the HTTP form login, which has no session to bind.
func (s *AuthService) VerifyPassword(ctx context.Context, username, password string) bool {
	u, err := s.users.FindByUsername(ctx, username)
	return err == nil && u.Password == password
}

// RegisterForm backs the HTTP registration form.
func (s *AuthService) RegisterForm(ctx context.Context, username, password string) bool {
	res := s.Register(ctx, &wire.RegisterReq{Username: username, Password: password})
	return res.Success
}

// validateCredentials rejects only empty input. Anything stricter (length
// rules, password policy) belongs to whatever backs UserRepo, not here.
func validateCredentials(username, password string) string {
	if username == "" {
		return "username cannot be empty"
	}
	if password == "" {
		return "password cannot be empty"
	}
	return ""
}
