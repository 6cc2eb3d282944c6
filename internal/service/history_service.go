package service

import (
	"time"

	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/pkg/logger"

	"gorm.io/gorm"
)

// HistoryService is the append-only audit trail of GM decisions. There is
// deliberately no update or delete operation.
type HistoryService struct {
	db       *gorm.DB
	sessions *SessionService
	log      *logger.Logger
}

func NewHistoryService(db *gorm.DB, sessions *SessionService, log *logger.Logger) *HistoryService {
	return &HistoryService{
		db:       db,
		sessions: sessions,
		log:      log,
	}
}

// Record appends one audit row for a decision. It runs inside the caller's
// transaction so a decision and its audit row commit together.
func (s *HistoryService) Record(tx *gorm.DB, pendingResponseID, dmUserID, action, originalResponse string, finalResponse *string, notes string) (*models.ReviewHistory, error) {
	entry := &models.ReviewHistory{
		PendingResponseID: pendingResponseID,
		DMUserID:          dmUserID,
		Action:            action,
		OriginalResponse:  originalResponse,
		FinalResponse:     finalResponse,
		Notes:             notes,
		CreatedAt:         time.Now().UTC(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// HistoryFor returns the full audit trail for a session, oldest first.
// GM-only since history snapshots include unreleased response text.
func (s *HistoryService) HistoryFor(sessionID, requestingUserID string) ([]models.ReviewHistory, error) {
	if err := s.sessions.RequireGM(sessionID, requestingUserID); err != nil {
		return nil, err
	}

	var history []models.ReviewHistory
	err := s.db.
		Joins("JOIN pending_responses ON pending_responses.id = review_histories.pending_response_id").
		Where("pending_responses.session_id = ?", sessionID).
		Order("review_histories.created_at ASC").
		Find(&history).Error
	if err != nil {
		return nil, err
	}
	return history, nil
}
