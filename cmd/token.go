package cmd

import (
	"errors"
	"fmt"

	"threadfeed/auth"
	"threadfeed/db"
	"threadfeed/feeds"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/urfave/cli/v2"
)

func passwdCmd() *cli.Command {
	return &cli.Command{
		Name:      "passwd",
		Usage:     "Set the password of a local user",
		ArgsUsage: "<username>",
		Description: `Prompts for a new password and stores its bcrypt hash.

A user needs a password before a feed token can be issued for them.`,
		Action: func(ctx *cli.Context) error {
			name := ctx.Args().First()
			if name == "" {
				return errors.New("please specify a username")
			}

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			reader, err := db.NewReader(cfg.Database)
			if err != nil {
				return err
			}
			defer reader.Close()

			user, err := reader.LocalUserByName(ctx.Context, name)
			if err != nil {
				return fmt.Errorf("could not find local user %s: %w", name, err)
			}

			password, err := prompt.New().Ask("New password:").Input("", input.WithEchoMode(input.EchoNone))
			if err != nil {
				return err
			}
			confirm, err := prompt.New().Ask("Repeat password:").Input("", input.WithEchoMode(input.EchoNone))
			if err != nil {
				return err
			}
			if password == "" || password != confirm {
				return errors.New("passwords are empty or do not match")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			writer, err := db.NewWriter(cfg.Database)
			if err != nil {
				return err
			}
			defer writer.Close()

			if err := writer.SetPassword(ctx.Context, user.LocalUser.Id, hash); err != nil {
				return err
			}
			fmt.Println("Password updated for", user.Person.Name)
			return nil
		},
	}
}

func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a personal feed token",
		Description: `Issues a token for the front page and inbox feeds of a local user.

Prompts for the username and password of the user. The token is part of the
feed URL, anyone with the URL can read the feeds until the token expires or
is revoked with --revoke.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "revoke",
				Usage: "Revoke every token of the user instead of issuing a new one",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			name, err := prompt.New().Ask("Username:").Input("")
			if err != nil {
				return err
			}
			password, err := prompt.New().Ask("Password:").Input("", input.WithEchoMode(input.EchoNone))
			if err != nil {
				return err
			}

			reader, err := db.NewReader(cfg.Database)
			if err != nil {
				return err
			}
			defer reader.Close()

			user, err := reader.LocalUserByName(ctx.Context, name)
			if err != nil {
				return fmt.Errorf("could not find local user %s: %w", name, err)
			}
			if err := auth.CheckPassword(user.LocalUser.PasswordEncrypted, password); err != nil {
				return err
			}

			writer, err := db.NewWriter(cfg.Database)
			if err != nil {
				return err
			}
			defer writer.Close()

			if ctx.Bool("revoke") {
				revoked, err := writer.RevokeLoginTokens(ctx.Context, user.LocalUser.Id)
				if err != nil {
					return err
				}
				fmt.Printf("Revoked %d tokens for %s\n", revoked, user.Person.Name)
				return nil
			}

			tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Site.Hostname, cfg.Auth.TokenTTL.Duration)
			token, err := tokens.Issue(ctx.Context, writer, *user)
			if err != nil {
				return fmt.Errorf("could not issue token: %w", err)
			}

			links := feeds.NewLinks(cfg.ProtocolAndHostname())
			fmt.Println("Front page:", links.Base()+"/feeds/front/"+token+".xml")
			fmt.Println("Inbox:     ", links.Base()+"/feeds/inbox/"+token+".xml")
			return nil
		},
	}
}
