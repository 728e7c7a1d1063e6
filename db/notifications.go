package db

import (
	"context"
	"fmt"

	"campushub/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

// CreateNotification inserts a notification row for a user.
func (db *DB) CreateNotification(ctx context.Context, userId int64, notificationType, content string) (int64, error) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("notifications")
	ib.Cols("user_id", "type", "content")
	ib.Values(userId, notificationType, content)
	query, args := ib.Build()
	query += " RETURNING id"

	var id int64
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}
	return id, nil
}

// ListNotifications returns the user's notifications, newest first.
func (db *DB) ListNotifications(ctx context.Context, userId int64, limit int) ([]models.Notification, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "user_id", "type", "content", "is_read", "created_at")
	sb.From("notifications")
	sb.Where(sb.Equal("user_id", userId))
	sb.OrderBy("created_at").Desc()
	sb.Limit(limit)

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.Id, &n.UserId, &n.Type, &n.Content, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead flags a notification as read for its owner.
func (db *DB) MarkNotificationRead(ctx context.Context, notificationId, userId int64) error {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	res, err := db.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2",
		notificationId, userId,
	)
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
