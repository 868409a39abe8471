package db

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateNotification is returned when an insert collides with
	// an existing notification ID.
	ErrDuplicateNotification = errors.New("duplicate notification id")

	// ErrNotFound is returned when no row matched the given scope.
	ErrNotFound = errors.New("notification not found for user")
)

// MapSQLError attempts to interpret a given error as a database-agnostic
// error. Errors that cannot be classified are returned unchanged.
func MapSQLError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	if sqliteErr.Code == sqlite3.ErrConstraint {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {

			return fmt.Errorf(
				"%w: %v", ErrDuplicateNotification, sqliteErr,
			)
		}
	}

	return err
}
