package mysql

import (
	"context"
	"database/sql"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"storage_mysql",

	fx.Provide(
		NewUserStore,
		NewFriendStore,
	),

	// [LIFECYCLE] Close the connection pool on app shutdown
	fx.Invoke(func(lc fx.Lifecycle, db *sql.DB) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return db.Close()
			},
		})
	}),
)
