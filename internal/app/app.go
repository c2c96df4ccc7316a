package app

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Run bootstraps the SawaFlix backend application.
func Run(ctx context.Context, args []string) error {
	return newCommand().Run(ctx, args)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "sawaflix",
		Usage: "SawaFlix backend service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to an optional TOML configuration file",
				Sources: cli.EnvVars("SAWAFLIX_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations",
				Action: migrateUp,
				Commands: []*cli.Command{
					{Name: "up", Usage: "Apply pending migrations", Action: migrateUp},
					{Name: "status", Usage: "List applied and pending migrations", Action: migrateStatus},
				},
			},
			{
				Name:      "seed",
				Usage:     "Load a seed file into the database",
				ArgsUsage: "<name>",
				Action:    runSeed,
			},
		},
	}
}
