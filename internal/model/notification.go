package model

import (
	"time"
)

type NotificationType string

const (
	NotificationForceSubmitted  NotificationType = "EXAM_FORCE_SUBMITTED"
	NotificationGradingRequired NotificationType = "GRADING_REQUIRED"
	NotificationScoreReleased   NotificationType = "SCORE_RELEASED"
)

// Notification is a message for one user.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Content   *string          `json:"content"`
	RelatedID *int64           `json:"relatedId"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createTime"`
}
