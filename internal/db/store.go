package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Store wraps the gateway database connection with transaction support and
// the notification queries.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// NewStore creates a new Store instance wrapping the given database
// connection.
func NewStore(sqlDB *sql.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		db:  sqlDB,
		log: log.With("component", "db"),
	}
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// TxFunc is the function signature for transaction callbacks. The callback
// receives the transaction to run its statements on.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx executes the given function within a database transaction. If the
// function returns an error, the transaction is rolled back. Otherwise, it
// is committed.
func (s *Store) WithTx(ctx context.Context, fn TxFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		// Attempt rollback, but prioritize returning the original
		// error.
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf(
				"tx error: %w, rollback error: %v", err, rbErr,
			)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
