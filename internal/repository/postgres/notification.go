package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a NotificationRepository backed by Postgres.
func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	var item []byte
	if n.Item != nil {
		var err error
		if item, err = json.Marshal(n.Item); err != nil {
			return fmt.Errorf("failed to encode item snapshot: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (id, user_id, type, title, message, order_id, item, metadata, is_read, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.OrderID, item, []byte(n.Metadata), n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) FindByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]entity.Notification, error) {
	query := "SELECT id, user_id, type, title, message, order_id, item, metadata, is_read, created_at FROM notifications WHERE user_id = $1"
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT $2"

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifs []entity.Notification
	for rows.Next() {
		var (
			n    entity.Notification
			item []byte
			meta []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.OrderID, &item, &meta, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(item) > 0 {
			n.Item = &entity.OrderItem{}
			if err := json.Unmarshal(item, n.Item); err != nil {
				return nil, fmt.Errorf("failed to decode item snapshot: %w", err)
			}
		}
		n.Metadata = json.RawMessage(meta)
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE", userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
