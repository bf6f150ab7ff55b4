// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles configuration and ledger database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config file, initialize the ledger database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// syncCommand handles sync pass operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Catalog-driven sync operations",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one bounded sync pass against the catalog",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of new files to migrate this pass (0 = unlimited)",
						Value: 10,
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
				Action: r.SyncRun,
			},
			{
				Name:  "status",
				Usage: "Show ledger contents and sync progress",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.StringFlag{
						Name:    "csv",
						Aliases: []string{"o"},
						Usage:   "Export ledger records as CSV to the given path",
					},
				},
				Action: r.SyncStatus,
			},
		},
	}
}

// migrateCommand handles the one-shot batch migration of the full backlog.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate the entire backlog, thumbnails first, committing after every file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "state",
				Usage: "Path to the JSON migration state file",
			},
			&cli.StringFlag{
				Name:  "thumbs-dir",
				Usage: "Local directory of exported {id}.jpg thumbnails to reuse",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would be migrated without transferring anything",
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
		Action: r.Migrate,
	}
}

// serveCommand runs the HTTP trigger surface with the interval scheduler.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sync trigger API and run scheduled passes",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (default from config)",
			},
			&cli.IntFlag{
				Name:  "interval",
				Usage: "Minutes between scheduled passes (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-schedule",
				Usage: "Disable the interval scheduler, serve HTTP triggers only",
			},
		},
		Action: r.Serve,
	}
}
