// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the web application
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the course site",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the site in the default browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand prepares configuration and storage
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write config.toml from the bundled example with a fresh session key",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
			{
				Name:   "keygen",
				Usage:  "Print a new session key",
				Action: r.SetupKeygen,
			},
		},
	}
}

// catalogCommand inspects and exports the lesson catalog
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Inspect the lesson catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List lessons",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Full-text search over titles, descriptions and part titles",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of search results (0 for all)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.CatalogList,
			},
			{
				Name:  "show",
				Usage: "Show a lesson and its parts",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id", UsageText: "Lesson id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "page",
						Usage: "Part to highlight (out of range values are clamped)",
						Value: "1",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.CatalogShow,
			},
			{
				Name:  "validate",
				Usage: "Validate a catalog fixture and report invalid records",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Fixture to validate (defaults to the configured catalog)",
					},
				},
				Action: r.CatalogValidate,
			},
			{
				Name:  "embed",
				Usage: "Print the player embed URL for a lesson part",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id", UsageText: "Lesson id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "page",
						Usage: "Part number",
						Value: "1",
					},
					&cli.BoolFlag{
						Name:  "autoplay",
						Usage: "Start playback automatically",
					},
					&cli.BoolFlag{
						Name:  "muted",
						Usage: "Start muted",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "iframe",
						Usage: "Print a complete iframe element",
					},
				},
				Action: r.CatalogEmbed,
			},
			{
				Name:  "export",
				Usage: "Export a lesson outline",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id", UsageText: "Lesson id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv, markdown or txt",
						Value: "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (stdout when empty)",
					},
					&cli.BoolFlag{
						Name:  "download-cover",
						Usage: "Save the cover image next to a markdown export",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every lesson into the --output directory",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent exports with --all",
						Value: 4,
					},
				},
				Action: r.CatalogExport,
			},
		},
	}
}

// sessionsCommand maintains stored sessions
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Manage sign-in sessions",
		Commands: []*cli.Command{
			{
				Name:   "prune",
				Usage:  "Delete expired and revoked sessions",
				Action: r.SessionsPrune,
			},
			{
				Name:  "list",
				Usage: "List live sessions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "Only sessions of this user id",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SessionsList,
			},
		},
	}
}

// tuiCommand launches the terminal catalog browser
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse lessons in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "tmp/peai-tui.log",
			},
		},
		Action: r.TUI,
	}
}
