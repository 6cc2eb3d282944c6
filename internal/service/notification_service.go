package service

import (
	"time"

	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/pkg/errors"
	"shadowrun-gm-dashboard/backend/pkg/logger"

	"gorm.io/gorm"
)

// NotificationService surfaces "needs attention" signals to GMs. Delivery is
// polling only; a notification row simply exists until the GM marks it read.
type NotificationService struct {
	db       *gorm.DB
	sessions *SessionService
	log      *logger.Logger
}

func NewNotificationService(db *gorm.DB, sessions *SessionService, log *logger.Logger) *NotificationService {
	return &NotificationService{
		db:       db,
		sessions: sessions,
		log:      log,
	}
}

// Notify appends a notification row. It takes the caller's transaction so
// the notification is created atomically with its pending response.
func (s *NotificationService) Notify(tx *gorm.DB, sessionID, gmUserID, pendingResponseID, notificationType, message string) (*models.DmNotification, error) {
	notification := &models.DmNotification{
		SessionID:         sessionID,
		DMUserID:          gmUserID,
		PendingResponseID: pendingResponseID,
		NotificationType:  notificationType,
		Message:           message,
		IsRead:            false,
		CreatedAt:         time.Now().UTC(),
	}
	if err := tx.Create(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

// ListUnread returns the GM's unread notifications, newest first
func (s *NotificationService) ListUnread(sessionID, gmUserID string) ([]models.DmNotification, error) {
	if err := s.sessions.RequireGM(sessionID, gmUserID); err != nil {
		return nil, err
	}

	var notifications []models.DmNotification
	err := s.db.
		Where("session_id = ? AND dm_user_id = ? AND is_read = ?", sessionID, gmUserID, false).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flags a notification as read. Marking an already-read
// notification is a no-op, not an error.
func (s *NotificationService) MarkRead(sessionID, gmUserID string, notificationID uint) error {
	if gmUserID == "" {
		return errors.NewValidationError("user_id is required")
	}

	var notification models.DmNotification
	result := s.db.
		Where("id = ? AND session_id = ? AND dm_user_id = ?", notificationID, sessionID, gmUserID).
		First(&notification)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return errors.NewNotFoundError("Notification not found")
		}
		return result.Error
	}

	if notification.IsRead {
		return nil
	}

	return s.db.Model(&notification).Update("is_read", true).Error
}
