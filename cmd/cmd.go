// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

const version = "0.3.0"

// command builds the root command. Running it without a subcommand performs an export.
func (r *Runner) command() *cli.Command {
	return &cli.Command{
		Name:      "scrapify",
		Usage:     "Export Spotify playlists, tracks and audio features to CSV",
		ArgsUsage: "[user ...]",
		Version:   version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
			&cli.StringSliceFlag{
				Name:    "users",
				Aliases: []string{"u"},
				Usage:   "User IDs to export (required; extra arguments are added to the list)",
			},
			&cli.BoolFlag{
				Name:    "features",
				Aliases: []string{"f"},
				Usage:   "Export audio features to <prefix>_features.csv",
				Local:   true,
			},
			&cli.BoolFlag{
				Name:    "tracks",
				Aliases: []string{"t"},
				Usage:   "Export tracks to <prefix>_tracks.csv",
				Local:   true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (overrides export.output_dir)",
				Local:   true,
			},
		},
		Before:   r.Init,
		Action:   r.Export,
		Commands: r.register(),
	}
}

// authCommand runs the authorization code flow and stores the tokens
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify and save tokens to the config file",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the callback",
				Value: authTimeout,
			},
		},
		Action: r.Auth,
	}
}

// setupCommand writes a config file and initializes the export ledger
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing and run database migrations",
		Action: r.Setup,
	}
}

// historyCommand lists recorded exports
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded exports, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of exports to show",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Only show exports for this user ID",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show exports with this status (running, completed, failed)",
			},
		},
		Action: r.History,
	}
}
