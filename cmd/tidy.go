package cmd

import (
	"fmt"
	"time"

	"threadfeed/db"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing login tokens that have expired.

		Expired tokens are already rejected when a feed is requested, this only
		keeps the table small.`,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Database configured: ", cfg.Database)
			deleted, err := db.Tidy(ctx.Context, cfg.Database)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d expired login tokens\n", deleted)
			return nil
		},
	}
}

func rankCmd() *cli.Command {
	return &cli.Command{
		Name:  "rank",
		Usage: "Recompute post ranks",
		Description: `Recomputes the hot, active, controversy and scaled ranks of every post.

		Posts older than a week decay to a rank of zero. serve does this
		periodically when [ranking] interval is set.`,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			writer, err := db.NewWriter(cfg.Database)
			if err != nil {
				return err
			}
			defer writer.Close()

			updated, err := writer.RefreshRanks(ctx.Context, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Ranked %d posts\n", updated)
			return nil
		},
	}
}
