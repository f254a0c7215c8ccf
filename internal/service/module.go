package service

import (
	"go.uber.org/fx"

	"github.com/termchat/termchat/config"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		func(cfg *config.Config) *TokenManager { return NewTokenManager(cfg.Auth) },
		NewPushService,
		NewAuthService,
		NewFriendService,
		NewMessageService,
	),
)
