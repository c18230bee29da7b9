// README: Embedded schema migrations applied with golang-migrate over the pgx/v5 driver.
package infra

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate brings the schema up to the latest embedded version.
func Migrate(dsn string, log *slog.Logger) error {
	m, err := newMigrator(dsn, log)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}
	log.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// MigrateDown rolls back the given number of versions.
func MigrateDown(dsn string, steps int, log *slog.Logger) error {
	m, err := newMigrator(dsn, log)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied version; ok is false on a fresh database.
func MigrationVersion(dsn string, log *slog.Logger) (version uint, dirty, ok bool, err error) {
	m, err := newMigrator(dsn, log)
	if err != nil {
		return 0, false, false, err
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("migrate version: %w", err)
	}
	return version, dirty, true, nil
}

func newMigrator(dsn string, log *slog.Logger) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, pgxMigrateURL(dsn))
	if err != nil {
		return nil, fmt.Errorf("migration init: %w", err)
	}
	m.Log = migrateLogger{log: log}
	return m, nil
}

// pgxMigrateURL rewrites a postgres:// DSN to the scheme the pgx/v5 driver registers.
func pgxMigrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

type migrateLogger struct {
	log *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool { return false }
