package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ivoirehub/hubsync/internal/notify"
)

// InsertNotification persists a server-created notification row.
func (s *Store) InsertNotification(ctx context.Context,
	n notify.Notification) error {

	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	link := sql.NullString{String: n.Link, Valid: n.Link != ""}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, user_id, type, title, message, link, is_read,
			 metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, link,
		n.IsRead, string(metadata), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf(
			"failed to insert notification: %w", MapSQLError(err),
		)
	}

	return nil
}

// ListNotifications returns the most recent notifications for a user,
// newest first, up to limit.
//
// NOTE: This implements the notify.Store interface.
func (s *Store) ListNotifications(ctx context.Context, userID string,
	limit int) ([]notify.Notification, error) {

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, link, is_read,
		       metadata, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to list notifications: %w", err,
		)
	}
	defer rows.Close()

	var list []notify.Notification
	for rows.Next() {
		var (
			n        notify.Notification
			typ      string
			link     sql.NullString
			metadata string
		)

		err := rows.Scan(
			&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &link,
			&n.IsRead, &metadata, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to scan notification: %w", err,
			)
		}

		n.Type = notify.Type(typ)
		n.Link = link.String
		if metadata != "" {
			err := json.Unmarshal([]byte(metadata), &n.Metadata)
			if err != nil {
				return nil, fmt.Errorf(
					"failed to decode metadata: %w", err,
				)
			}
		}

		list = append(list, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return list, nil
}

// MarkNotificationRead marks one notification as read, scoped to the
// owning user so one identity can never mutate another's rows.
//
// NOTE: This implements the notify.Store interface.
func (s *Store) MarkNotificationRead(ctx context.Context, id,
	userID string) error {

	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = 1
		WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id=%s", ErrNotFound, id)
	}

	return nil
}

// MarkAllNotificationsRead marks every unread notification of the user as
// read in a single bulk update.
//
// NOTE: This implements the notify.Store interface.
func (s *Store) MarkAllNotificationsRead(ctx context.Context,
	userID string) error {

	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = 1
		WHERE user_id = ? AND is_read = 0`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark all read: %w", err)
	}

	return nil
}

// CountUnread returns the number of unread notifications for a user.
func (s *Store) CountUnread(ctx context.Context,
	userID string) (int64, error) {

	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id = ? AND is_read = 0`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}

	return count, nil
}

// Ensure Store satisfies the synchronizer's storage contract at compile
// time.
var _ notify.Store = (*Store)(nil)
