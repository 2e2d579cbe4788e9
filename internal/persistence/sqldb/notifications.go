package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/example/college-admin/internal/persistence"
)

// pushedChunkSize bounds the IN list of a single MarkNotificationsPushed statement.
const pushedChunkSize = 500

var notificationColumns = []string{
	"id", "user_id", "title", "message", "type", "reference_type", "reference_id",
	"is_read", "is_pushed", "read_at", "created_at",
}

func (d *DB) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	_, err := d.exec(ctx, d.builder.Insert("notifications").
		Columns(notificationColumns...).
		Values(
			notification.ID,
			notification.UserID,
			notification.Title,
			notification.Message,
			notification.Type,
			nullableString(notification.ReferenceType),
			nullableString(notification.ReferenceID),
			notification.IsRead,
			notification.IsPushed,
			formatNullableTime(notification.ReadAt),
			formatTime(notification.CreatedAt),
		))
	if err != nil {
		return fmt.Errorf("sqldb: create notification %s: %w", notification.ID, err)
	}
	return nil
}

func (d *DB) MarkNotificationsPushed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	return d.WithTransaction(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(ids); start += pushedChunkSize {
			end := min(start+pushedChunkSize, len(ids))
			query, args, err := d.builder.Update("notifications").
				Set("is_pushed", true).
				Where(sq.Eq{"id": ids[start:end]}).
				ToSql()
			if err != nil {
				return fmt.Errorf("sqldb: build statement: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("sqldb: mark notifications pushed: %w", mapError(err))
			}
		}
		return nil
	})
}

func (d *DB) ListNotifications(ctx context.Context, filter persistence.NotificationFilter) ([]persistence.Notification, error) {
	builder := d.builder.Select(notificationColumns...).From("notifications").
		Where(sq.Eq{"user_id": filter.UserID}).
		OrderBy("created_at DESC", "id DESC")
	if filter.UnreadOnly {
		builder = builder.Where(sq.Eq{"is_read": false})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	notifications := make([]persistence.Notification, 0)
	err := d.query(ctx, builder, func(rows *sql.Rows) error {
		var (
			notification               persistence.Notification
			referenceType, referenceID sql.NullString
			readAt                     sql.NullString
			createdAt                  string
		)
		err := rows.Scan(
			&notification.ID, &notification.UserID, &notification.Title, &notification.Message, &notification.Type,
			&referenceType, &referenceID, &notification.IsRead, &notification.IsPushed, &readAt, &createdAt,
		)
		if err != nil {
			return fmt.Errorf("sqldb: scan notification: %w", err)
		}
		notification.ReferenceType = stringPtr(referenceType)
		notification.ReferenceID = stringPtr(referenceID)
		if notification.ReadAt, err = parseNullableTime(readAt); err != nil {
			return err
		}
		if notification.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		notifications = append(notifications, notification)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (d *DB) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := d.queryRow(ctx,
		d.builder.Select("COUNT(*)").From("notifications").Where(sq.Eq{"user_id": userID, "is_read": false}),
		&count,
	)
	if err != nil {
		return 0, fmt.Errorf("sqldb: count unread notifications: %w", err)
	}
	return count, nil
}

func (d *DB) MarkNotificationRead(ctx context.Context, userID, id string, at time.Time) error {
	var owner string
	err := d.queryRow(ctx,
		d.builder.Select("user_id").From("notifications").Where(sq.Eq{"id": id}),
		&owner,
	)
	if err != nil {
		return err
	}
	if owner != userID {
		return persistence.ErrNotFound
	}

	_, err = d.exec(ctx, d.builder.Update("notifications").
		Set("is_read", true).
		Set("read_at", formatTime(at)).
		Where(sq.Eq{"id": id, "is_read": false}))
	if err != nil {
		return fmt.Errorf("sqldb: mark notification %s read: %w", id, err)
	}
	return nil
}

func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int, error) {
	result, err := d.exec(ctx, d.builder.Update("notifications").
		Set("is_read", true).
		Set("read_at", formatTime(at)).
		Where(sq.Eq{"user_id": userID, "is_read": false}))
	if err != nil {
		return 0, fmt.Errorf("sqldb: mark all notifications read: %w", err)
	}
	return rowsAffected(result)
}

func (d *DB) DeleteNotification(ctx context.Context, userID, id string) error {
	result, err := d.exec(ctx, d.builder.Delete("notifications").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return fmt.Errorf("sqldb: delete notification %s: %w", id, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (d *DB) DeleteReadNotifications(ctx context.Context, userID string, before *time.Time) (int, error) {
	builder := d.builder.Delete("notifications").Where(sq.Eq{"is_read": true})
	if userID != "" {
		builder = builder.Where(sq.Eq{"user_id": userID})
	}
	if before != nil {
		builder = builder.Where(sq.Lt{"created_at": formatTime(*before)})
	}

	result, err := d.exec(ctx, builder)
	if err != nil {
		return 0, fmt.Errorf("sqldb: delete read notifications: %w", err)
	}
	return rowsAffected(result)
}
