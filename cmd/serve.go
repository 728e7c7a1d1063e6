package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"campushub/auth"
	"campushub/config"
	"campushub/db"
	"campushub/feed"
	"campushub/notify"
	"campushub/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a TOML config file (optional, flags override it)",
			EnvVars: []string{"CAMPUSHUB_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "hostname",
			Usage:   "The hostname the server is reachable on",
			EnvVars: []string{"CAMPUSHUB_HOSTNAME"},
			Value:   "localhost",
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "HTTP server port",
			EnvVars: []string{"CAMPUSHUB_PORT"},
			Value:   8080,
		},
		&cli.StringFlag{
			Name:    "cors-origins",
			Usage:   "Allowed CORS origins",
			EnvVars: []string{"CAMPUSHUB_CORS_ORIGINS"},
			Value:   "http://localhost:3001",
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "Secret used to sign access tokens",
			EnvVars: []string{"CAMPUSHUB_JWT_SECRET"},
		},
		&cli.IntFlag{
			Name:    "token-ttl-hours",
			Usage:   "Access token lifetime in hours",
			EnvVars: []string{"CAMPUSHUB_TOKEN_TTL_HOURS"},
			Value:   24,
		},
		&cli.IntFlag{
			Name:    "notify-workers",
			Usage:   "Number of notification dispatch workers",
			EnvVars: []string{"CAMPUSHUB_NOTIFY_WORKERS"},
			Value:   4,
		},
	}
	flags = append(flags, dbFlags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the campushub API",
		Description: `Starts the campushub HTTP server.

Serves the community API: accounts, equipment sharing, carpool trips,
posts, notifications and the combined activity feed.`,
		Flags: flags,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadServeConfig(ctx)
			if err != nil {
				return err
			}

			fmt.Println("Starting campushub...")

			database, err := db.NewDB(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
			if err != nil {
				return err
			}

			aggregator := feed.NewAggregator(feed.Sources{
				Equipment: database,
				Carpools:  database,
				Posts:     database,
			})

			broadcaster := notify.NewBroadcaster()
			dispatcher := notify.NewDispatcher(context.Background(),
				cfg.NotifyWorkers, cfg.NotifyQueueSize, database, broadcaster)
			dispatcher.Start()

			app := server.Server(&server.ServerConfig{
				Cfg:         cfg,
				DB:          database,
				Auth:        auth.New(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour),
				Aggregator:  aggregator,
				Broadcaster: broadcaster,
				Dispatcher:  dispatcher,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			var wg sync.WaitGroup
			wg.Add(1)

			go func() {
				defer wg.Done()
				<-c
				fmt.Println("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.Error("Error shutting down server", err)
				}
				dispatcher.Shutdown()
				if err := database.Close(); err != nil {
					log.Error("Error closing database", err)
				}
			}()

			go func() {
				fmt.Println("Starting server...")
				if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
					log.Panic(err)
				}
			}()

			wg.Wait()

			fmt.Println("Done!")
			return nil
		},
	}
}

// loadServeConfig layers CLI flags and env vars over an optional TOML file.
func loadServeConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()

	if path := ctx.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if ctx.IsSet("hostname") {
		cfg.Hostname = ctx.String("hostname")
	}
	if ctx.IsSet("port") {
		cfg.Port = ctx.Int("port")
	}
	if ctx.IsSet("cors-origins") {
		cfg.CORSOrigins = ctx.String("cors-origins")
	}
	if ctx.IsSet("db-host") {
		cfg.DBHost = ctx.String("db-host")
	}
	if ctx.IsSet("db-port") {
		cfg.DBPort = ctx.Int("db-port")
	}
	if ctx.IsSet("db-user") {
		cfg.DBUser = ctx.String("db-user")
	}
	if ctx.IsSet("db-password") {
		cfg.DBPassword = ctx.String("db-password")
	}
	if ctx.IsSet("db-name") {
		cfg.DBName = ctx.String("db-name")
	}
	if ctx.IsSet("jwt-secret") {
		cfg.JWTSecret = ctx.String("jwt-secret")
	}
	if ctx.IsSet("token-ttl-hours") {
		cfg.TokenTTLHours = ctx.Int("token-ttl-hours")
	}
	if ctx.IsSet("notify-workers") {
		cfg.NotifyWorkers = ctx.Int("notify-workers")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("a JWT secret is required, set --jwt-secret or CAMPUSHUB_JWT_SECRET")
	}

	return cfg, nil
}
