package cmd

import (
	"fmt"
	"sync"
	"time"

	"threadfeed/auth"
	"threadfeed/db"
	"threadfeed/feeds"
	"threadfeed/markdown"
	"threadfeed/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the RSS feeds",
		Description: `Starts the threadfeed HTTP server.

Serves community, user, front page, inbox and instance wide listing feeds
read from the SQLite database. When a ranking interval is configured the
post ranks are refreshed in the background.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Usage:   "Host to listen on, overrides the config file",
				EnvVars: []string{"THREADFEED_HOST"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on, overrides the config file",
				EnvVars: []string{"THREADFEED_PORT"},
			},
			&cli.DurationFlag{
				Name:    "rank-interval",
				Usage:   "How often to refresh post ranks, overrides the config file",
				EnvVars: []string{"THREADFEED_RANK_INTERVAL"},
			},
			&cli.DurationFlag{
				Name:  "wait-for-database",
				Value: 30 * time.Second,
				Usage: "How long to wait for the migrated database at startup",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if host := ctx.String("host"); host != "" {
				cfg.Server.Host = host
			}
			if ctx.IsSet("port") {
				cfg.Server.Port = ctx.Int("port")
			}
			if ctx.IsSet("rank-interval") {
				cfg.Ranking.Interval.Duration = ctx.Duration("rank-interval")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if err := db.WaitForDatabase(ctx.Context, cfg.Database, ctx.Duration("wait-for-database")); err != nil {
				return err
			}

			reader, err := db.NewReader(cfg.Database)
			if err != nil {
				return err
			}
			defer reader.Close()

			tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Site.Hostname, cfg.Auth.TokenTTL.Duration)
			service := feeds.NewService(
				reader,
				auth.NewResolver(tokens, reader),
				feeds.PrivateInstancePolicy{},
				markdown.New(),
				feeds.NewLinks(cfg.ProtocolAndHostname()),
			)

			app := server.Server(&server.ServerConfig{
				Feeds:       service,
				Limits:      feeds.Limits{Default: cfg.Feeds.DefaultLimit, Max: cfg.Feeds.MaxLimit},
				CorsOrigins: cfg.Server.CorsOrigins,
				Health:      reader,
			})

			var wg sync.WaitGroup

			if interval := cfg.Ranking.Interval.Duration; interval > 0 {
				writer, err := db.NewWriter(cfg.Database)
				if err != nil {
					return err
				}
				defer writer.Close()

				wg.Add(1)
				go func() {
					defer wg.Done()
					log.WithField("interval", interval).Info("Refreshing ranks in the background")
					writer.RunRanker(ctx.Context, interval)
				}()
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				<-ctx.Context.Done()
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.WithError(err).Error("Error shutting down server")
				}
			}()

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			log.WithFields(log.Fields{
				"addr":     addr,
				"hostname": cfg.Site.Hostname,
				"database": cfg.Database,
			}).Info("Starting server")

			if err := app.Listen(addr); err != nil {
				return err
			}
			wg.Wait()
			return nil
		},
	}
}
