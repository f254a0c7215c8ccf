package tcp

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/termchat/termchat/config"
)

var Module = fx.Module(
	"tcp_server",

	fx.Provide(
		func(cfg *config.Config, f Factories, onClose DisconnectFunc, log *slog.Logger) *Server {
			return NewServer(cfg.Server, f, onClose, log)
		},
	),

	// [LIFECYCLE] The event loop starts with the app and drains on shutdown
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return s.Start() },
			OnStop: func(ctx context.Context) error {
				s.Stop()
				return nil
			},
		})
	}),
)
