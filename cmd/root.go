package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"threadfeed/config"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "threadfeed",
		Usage: "RSS feeds for a link aggregator instance",
		Description: `Serves RSS 2.0 feeds for the communities, users and listings of a
		link aggregator instance, plus personal front page and inbox feeds
		authenticated by a token in the URL.

		Flags can generally be set via environment variables, e.g.:

		--database => THREADFEED_DATABASE=feed.db
		--config => THREADFEED_CONFIG=config/threadfeed.toml
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/threadfeed.toml",
				Usage:   "Path to the TOML configuration file, defaults are used if it does not exist",
				EnvVars: []string{"THREADFEED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "SQLite database file location, overrides the config file",
				EnvVars: []string{"THREADFEED_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"THREADFEED_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Log as JSON instead of text",
				EnvVars: []string{"THREADFEED_LOG_JSON"},
			},
		},
		Before: func(ctx *cli.Context) error {
			return setupLogging(ctx.String("log-level"), ctx.Bool("log-json"))
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			rankCmd(),
			tidyCmd(),
			seedCmd(),
			passwdCmd(),
			tokenCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// Execute runs the app until it returns or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootApp().RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Error("Command failed")
		stop()
		os.Exit(1)
	}
}

func setupLogging(level string, json bool) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(parsed)
	if json {
		log.SetFormatter(&log.JSONFormatter{})
	}
	return nil
}

// loadConfig reads the configuration file and applies flag overrides
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg, err := config.LoadConfigOrDefault(ctx.String("config"))
	if err != nil {
		return nil, err
	}
	if database := ctx.String("database"); database != "" {
		cfg.Database = database
	}
	if secret := os.Getenv("THREADFEED_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	return cfg, nil
}
