// Package db implements the notification row store of the local Ivoire
// Hub gateway on SQLite, with embedded schema migrations.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDBPath returns the default path for the gateway database.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".hubsync", "hubsync.db"), nil
}

// OpenSQLite opens a SQLite database connection with WAL mode enabled and
// appropriate pragmas for performance and reliability.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	// Ensure the directory exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf(
			"failed to create database directory: %w", err,
		)
	}

	// Open the database with foreign keys and WAL mode enabled via URI.
	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; keep the pool at one connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := configurePragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	return sqlDB, nil
}

// configurePragmas sets additional SQLite pragmas for optimal performance.
func configurePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		// NORMAL provides good durability with better performance
		// than FULL.
		"PRAGMA synchronous = NORMAL",

		// Negative value is in KiB, 32MB cache.
		"PRAGMA cache_size = -32768",

		// Keep temporary tables in memory.
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf(
				"failed to execute %q: %w", pragma, err,
			)
		}
	}

	return nil
}

// Open opens the SQLite database at the given path, applies all pending
// migrations, and returns a Store wrapping it.
func Open(dbPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	sqlDB, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if err := applyMigrations(sqlDB, TargetLatest, log); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return NewStore(sqlDB, log), nil
}
