// submodule cmd contains command definitions
package main

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/refreshgen/internal/shared"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

// app builds the root command. Running it without a subcommand performs the authorization flow.
//
// Root flags are inherited by every subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "refreshgen",
		Usage:   "Obtain a Spotify refresh token through the OAuth2 authorization code flow",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (optional)",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file providing CLIENT_ID and CLIENT_SECRET (optional)",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the token response as JSON",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser redirect (default from config, 2m)",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Before:   r.before,
		Action:   r.Authorize,
		Commands: r.register(),
	}
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// authorizeCommand runs the full flow
func authorizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "authorize",
		Aliases: []string{"auth"},
		Usage:   "Authorize in the browser and print the refresh token",
		Action:  r.Authorize,
	}
}

// urlCommand prints the authorization URL
func urlCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "url",
		Usage:  "Print the authorization URL",
		Action: r.AuthURL,
	}
}

// exchangeCommand exchanges a code obtained by hand
func exchangeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "exchange",
		Usage: "Exchange an authorization code for a refresh token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "code",
				Usage:    "Authorization code from the redirect",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "redirect-uri",
				Usage: "Redirect URI the code was issued for (default from config)",
			},
		},
		Action: r.Exchange,
	}
}

// configCommand handles configuration file operations
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write the default configuration to --config",
				Action: r.ConfigInit,
			},
		},
	}
}
