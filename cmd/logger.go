package cmd

import (
	"context"
	"io"
	"log/slog"

	"go.uber.org/fx"

	"github.com/termchat/termchat/config"
	"github.com/termchat/termchat/infra/logger"
)

// ProvideLogger builds the process-wide slog logger. File output goes
// through the asynchronous rolling sink; with noLog the handler writes
// to io.Discard and no files are touched.
func ProvideLogger(noLog bool) func(lc fx.Lifecycle, cfg *config.Config) (*slog.Logger, error) {
	return func(lc fx.Lifecycle, cfg *config.Config) (*slog.Logger, error) {
		opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}

		if noLog {
			return slog.New(slog.NewTextHandler(io.Discard, opts)), nil
		}

		sink, err := logger.New(logger.Options{
			Dir:       cfg.Log.Dir,
			Suffix:    cfg.Log.Suffix,
			QueueSize: cfg.Log.QueueSize,
			MaxLines:  cfg.Log.MaxLines,
		})
		if err != nil {
			return nil, err
		}

		// [LIFECYCLE] Drain buffered log lines before the process exits
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return sink.Close()
			},
		})

		log := slog.New(slog.NewTextHandler(sink, opts))
		slog.SetDefault(log)
		return log, nil
	}
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
