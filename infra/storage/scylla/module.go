package scylla

import (
	"context"
	"log/slog"

	"github.com/gocql/gocql"
	"go.uber.org/fx"

	"github.com/termchat/termchat/config"
)

var Module = fx.Module(
	"storage_scylla",

	fx.Provide(
		NewMessageStore,
		func(store *MessageStore, cfg *config.Config, log *slog.Logger) *Writer {
			return NewWriter(store, cfg.Writer, log)
		},
	),

	// [LIFECYCLE] Flush the writer queue before dropping the session
	fx.Invoke(func(lc fx.Lifecycle, w *Writer, sess *gocql.Session) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				w.Stop()
				sess.Close()
				return nil
			},
		})
	}),
)
