package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "campushub",
		Usage: "Campus community backend",
		Description: `A campus community backend serving user accounts, equipment
		sharing, carpool trips, discussion posts and a combined ranked
		activity feed over an HTTP API.

		Flags can generally be set via environment variables, e.g.:

		--port => CAMPUSHUB_PORT=8080
		--db-host => CAMPUSHUB_DB_HOST=localhost
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			seedCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
