package db

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var fs embed.FS

func migrateInstance(host string, port int, user, password, dbname string) (*migrate.Migrate, error) {
	// Create a new source instance using the embedded migrations
	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		user, password, host, port, dbname)

	return migrate.NewWithSourceInstance("iofs", d, url)
}

// Migrate runs the database migrations using golang-migrate
func Migrate(host string, port int, user, password, dbname string) error {
	m, err := migrateInstance(host, port, user, password, dbname)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

// Rollback rolls back the last migration
func Rollback(host string, port int, user, password, dbname string) error {
	m, err := migrateInstance(host, port, user, password, dbname)
	if err != nil {
		return err
	}

	return m.Steps(-1)
}
