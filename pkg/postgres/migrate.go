package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate"
	_ "github.com/golang-migrate/migrate/database/postgres"
	_ "github.com/golang-migrate/migrate/source/file"
)

// Migrate applies every pending migration found under dir.
func Migrate(dsn, dir string) error {
	const op = "postgres.Migrate"

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return fmt.Errorf("%s: init: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: up: %w", op, err)
	}
	return nil
}
