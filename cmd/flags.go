package cmd

import (
	"github.com/urfave/cli/v2"
)

// dbFlags are shared by every command that talks to the database.
func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db-host",
			Usage:   "PostgreSQL host",
			EnvVars: []string{"CAMPUSHUB_DB_HOST"},
			Value:   "localhost",
		},
		&cli.IntFlag{
			Name:    "db-port",
			Usage:   "PostgreSQL port",
			EnvVars: []string{"CAMPUSHUB_DB_PORT"},
			Value:   5432,
		},
		&cli.StringFlag{
			Name:    "db-user",
			Usage:   "PostgreSQL user",
			EnvVars: []string{"CAMPUSHUB_DB_USER"},
			Value:   "campushub",
		},
		&cli.StringFlag{
			Name:    "db-password",
			Usage:   "PostgreSQL password",
			EnvVars: []string{"CAMPUSHUB_DB_PASSWORD"},
			Value:   "campushub",
		},
		&cli.StringFlag{
			Name:    "db-name",
			Usage:   "PostgreSQL database name",
			EnvVars: []string{"CAMPUSHUB_DB_NAME"},
			Value:   "campushub",
		},
	}
}
