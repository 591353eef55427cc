package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exampro-backend/internal/middleware"
	"github.com/stemsi/exampro-backend/internal/response"
	"github.com/stemsi/exampro-backend/internal/service"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List godoc
// GET /api/v1/notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	items, err := h.notificationService.List(c.Request.Context(), middleware.GetActor(c).UserID, unreadOnly)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"notifications": items})
}

// UnreadCount godoc
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notificationService.UnreadCount(c.Request.Context(), middleware.GetActor(c).UserID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": n})
}

// MarkRead godoc
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(c.Request.Context(), id, middleware.GetActor(c).UserID); err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "isRead": true})
}
