package cmd

import (
	"fmt"

	"threadfeed/db"

	"github.com/urfave/cli/v2"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured database. Will create the database if it does not exist.`,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Database configured: ", cfg.Database)
			return db.Migrate(cfg.Database)
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migration",
		Description: `Rolls back the last database migrations`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "steps",
				Value: 1,
				Usage: "Number of migrations to roll back",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Database configured: ", cfg.Database)
			return db.Rollback(cfg.Database, ctx.Int("steps"))
		},
	}
}
