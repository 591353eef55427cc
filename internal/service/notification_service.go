package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/model"
)

// NotificationService persists dispatched notifications and serves a
// user's inbox.
type NotificationService struct {
	store NotificationStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store NotificationStore, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		store: store,
		log:   logger.Component(log, "notification_service"),
		now:   time.Now,
	}
}

// Deliver stores a notification taken off the dispatch queue.
func (s *NotificationService) Deliver(ctx context.Context, n *model.Notification) error {
	if n.UserID == 0 || n.Title == "" {
		return fmt.Errorf("notification missing recipient or title")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	n.IsRead = false
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	s.log.Debug().
		Int64("user_id", n.UserID).
		Str("type", string(n.Type)).
		Msg("Notification delivered")
	return nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	items, err := s.store.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if items == nil {
		items = []model.Notification{}
	}
	return items, nil
}

// UnreadCount returns how many notifications the user has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID int64) error {
	if err := s.store.MarkRead(ctx, id, userID); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}
