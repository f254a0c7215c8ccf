package cmd

import (
	"database/sql"
	"log/slog"

	"github.com/gocql/gocql"
	"go.uber.org/fx"

	"github.com/termchat/termchat/config"
	"github.com/termchat/termchat/infra/server/tcp"
	"github.com/termchat/termchat/infra/storage/mysql"
	"github.com/termchat/termchat/infra/storage/scylla"
	"github.com/termchat/termchat/internal/handler/binary"
	"github.com/termchat/termchat/internal/handler/httpx"
	"github.com/termchat/termchat/internal/service"
)

func NewApp(cfg *config.Config, noLog bool) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger(noLog),

			func(cfg *config.Config) (*sql.DB, error) { return mysql.Open(cfg.MySQL) },
			func(cfg *config.Config) (*gocql.Session, error) { return scylla.NewSession(cfg.Scylla) },

			// Store to repository interface bindings
			func(s *mysql.UserStore) service.UserRepo { return s },
			func(s *mysql.FriendStore) service.FriendRepo { return s },
			func(s *scylla.MessageStore) service.HistoryRepo { return s },
			func(w *scylla.Writer) service.MessageSink { return w },
			func(a *service.AuthService) httpx.Accounts { return a },

			provideFactories,
			func(push *service.PushService) tcp.DisconnectFunc {
				return func(sess service.Session) {
					push.Unregister(sess.UserID(), sess.ID())
				}
			},
		),
		mysql.Module,
		scylla.Module,
		service.Module,
		tcp.Module,
	)
}

// provideFactories wires the per-connection protocol handlers. The event
// loop picks one after sniffing the first bytes of each connection.
func provideFactories(
	cfg *config.Config,
	auth *service.AuthService,
	friends *service.FriendService,
	msgs *service.MessageService,
	accounts httpx.Accounts,
	log *slog.Logger,
) tcp.Factories {
	bf := binary.NewFactory(auth, friends, msgs, log)
	hf := httpx.NewHandlerFactory(cfg.Web.StaticDir, accounts, log)
	return tcp.Factories{
		HTTP:   func(sess service.Session) tcp.Handler { return hf.New(sess.ID()) },
		Binary: func(sess service.Session) tcp.Handler { return bf.New(sess) },
	}
}
