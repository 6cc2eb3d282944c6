package api

import (
	"net/http"
	"strconv"

	"shadowrun-gm-dashboard/backend/internal/service"
	"shadowrun-gm-dashboard/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	history       *service.HistoryService
}

func NewNotificationHandler(notifications *service.NotificationService, history *service.HistoryService) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		history:       history,
	}
}

// ListUnread returns the GM's unread notifications, newest first
func (h *NotificationHandler) ListUnread(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.Error(errors.NewValidationError("user_id is required"))
		return
	}

	notifications, err := h.notifications.ListUnread(c.Param("sessionId"), userID)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, gin.H{
			"id":                  n.ID,
			"pending_response_id": n.PendingResponseID,
			"notification_type":   n.NotificationType,
			"message":             n.Message,
			"created_at":          n.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

type markReadRequest struct {
	UserID string `json:"user_id"`
}

// MarkRead flags a notification as read (idempotent)
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, err := strconv.ParseUint(c.Param("notificationId"), 10, 32)
	if err != nil {
		c.Error(errors.NewValidationError("Invalid notification id"))
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("Invalid request body"))
		return
	}

	if err := h.notifications.MarkRead(c.Param("sessionId"), req.UserID, uint(notificationID)); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ReviewHistory returns the session's audit trail, oldest first (GM only)
func (h *NotificationHandler) ReviewHistory(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.Error(errors.NewValidationError("user_id is required"))
		return
	}

	history, err := h.history.HistoryFor(c.Param("sessionId"), userID)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]gin.H, 0, len(history))
	for _, entry := range history {
		items = append(items, gin.H{
			"id":                  entry.ID,
			"pending_response_id": entry.PendingResponseID,
			"dm_user_id":          entry.DMUserID,
			"action":              entry.Action,
			"original_response":   entry.OriginalResponse,
			"final_response":      entry.FinalResponse,
			"notes":               entry.Notes,
			"created_at":          entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}
