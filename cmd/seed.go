package cmd

import (
	"fmt"
	"os"

	"threadfeed/db"

	"github.com/urfave/cli/v2"
)

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load SQL data into the database",
		Description: `Executes a SQL script against the migrated database in one transaction.

Without --file a small demo instance is loaded: a site, a handful of users,
communities, posts, comments and inbox notifications.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "SQL file to execute instead of the demo data",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			script := db.DemoSeed
			if file := ctx.String("file"); file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("could not read seed file: %w", err)
				}
				script = string(data)
			}

			writer, err := db.NewWriter(cfg.Database)
			if err != nil {
				return err
			}
			defer writer.Close()

			if err := writer.ExecScript(ctx.Context, script); err != nil {
				return err
			}
			fmt.Println("Seeded database: ", cfg.Database)
			return nil
		},
	}
}
