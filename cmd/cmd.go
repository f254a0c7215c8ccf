package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/termchat/termchat/config"
	"github.com/termchat/termchat/internal/client"
)

const ServiceName = "termchat"

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Instant messaging server and terminal client",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
			clientCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the chat server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
			&cli.BoolFlag{
				Name:    "no-log",
				Aliases: []string{"l"},
				Usage:   "Disable file logging",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config_file"))
			if err != nil {
				return err
			}
			app := NewApp(cfg, c.Bool("no-log"))

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}

func clientCmd() *cli.Command {
	return &cli.Command{
		Name:    "client",
		Aliases: []string{"c"},
		Usage:   "Run the terminal client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Value:   "127.0.0.1:1316",
				Usage:   "Server address",
			},
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Required: true,
				Usage:    "Username",
			},
			&cli.StringFlag{
				Name:     "pass",
				Aliases:  []string{"p"},
				Required: true,
				Usage:    "Password",
			},
			&cli.BoolFlag{
				Name:  "register",
				Usage: "Create the account before logging in",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return client.RunUI(ctx, c.String("addr"), c.String("user"), c.String("pass"), c.Bool("register"))
		},
	}
}
