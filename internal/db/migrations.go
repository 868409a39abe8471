package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
)

// LatestMigrationVersion is the latest migration version of the database.
// This is used to implement downgrade protection for the daemon.
//
// NOTE: This MUST be updated when a new migration is added.
const LatestMigrationVersion uint = 1

// ErrMigrationDowngrade is returned when a database downgrade is detected.
var ErrMigrationDowngrade = errors.New("database downgrade detected")

// MigrationTarget selects which version applyMigrations migrates to.
type MigrationTarget func(mig *migrate.Migrate) error

var (
	// TargetLatest migrates to the latest version available.
	TargetLatest = func(mig *migrate.Migrate) error {
		return mig.Up()
	}

	// TargetVersion returns a MigrationTarget for a specific version.
	TargetVersion = func(version uint) MigrationTarget {
		return func(mig *migrate.Migrate) error {
			return mig.Migrate(version)
		}
	}
)

// migrationLogger wraps slog.Logger to implement the migrate.Logger
// interface.
type migrationLogger struct {
	log *slog.Logger
}

// Printf implements the migrate.Logger interface.
func (m *migrationLogger) Printf(format string, v ...any) {
	format = strings.TrimRight(format, "\n")
	m.log.Info(fmt.Sprintf(format, v...))
}

// Verbose returns true when verbose logging is enabled.
func (m *migrationLogger) Verbose() bool {
	return true
}

// applyMigrations executes the embedded migration files against the given
// database, up to the given target version, refusing to run against a
// database that is newer than this binary knows about.
func applyMigrations(sqlDB *sql.DB, target MigrationTarget,
	log *slog.Logger) error {

	driver, err := migratesqlite.WithInstance(
		sqlDB, &migratesqlite.Config{},
	)
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := httpfs.New(http.FS(sqlSchemas), "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	sqlMigrate, err := migrate.NewWithInstance(
		"migrations", source, "hubsync", driver,
	)
	if err != nil {
		return err
	}
	sqlMigrate.Log = &migrationLogger{log}

	version, dirty, err := sqlMigrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("unable to determine current migration "+
			"version: %w", err)
	}

	// A dirty version means a previous migration did not complete;
	// manual intervention is required rather than piling more on top.
	if dirty {
		return fmt.Errorf("database is in a dirty state at version "+
			"%v, manual intervention required", version)
	}

	// Down migrations may drop data, so refuse to run against a newer
	// database without explicit accounting.
	if version > LatestMigrationVersion {
		return fmt.Errorf("%w: db_version=%v, "+
			"latest_migration_version=%v", ErrMigrationDowngrade,
			version, LatestMigrationVersion)
	}

	log.Info("Applying migrations",
		"current_db_version", version,
		"latest_migration_version", LatestMigrationVersion,
	)

	if err := target(sqlMigrate); err != nil &&
		!errors.Is(err, migrate.ErrNoChange) {

		return err
	}

	return nil
}
