package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exampro-backend/internal/model"
)

// NotificationRepository handles the per-user notification inbox.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// CreateNotification inserts a delivered notification.
func (r *NotificationRepository) CreateNotification(ctx context.Context, n *model.Notification) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, type, title, content, related_id, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		n.UserID, string(n.Type), n.Title, n.Content, n.RelatedID, n.IsRead, n.CreatedAt,
	).Scan(&n.ID)
}

// ListNotifications returns a user's notifications, newest first.
func (r *NotificationRepository) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, type, title, content, related_id, is_read, created_at
	          FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Content, &n.RelatedID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = model.NotificationType(typ)
		items = append(items, n)
	}
	return items, rows.Err()
}

// CountUnread counts a user's unread notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID,
	).Scan(&n)
	return n, err
}

// MarkRead flags a notification as read. Notifications of other users are
// reported as not found.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
