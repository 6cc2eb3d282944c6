package service

import (
	"encoding/json"
	"fmt"
	"time"

	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/pkg/config"
	"shadowrun-gm-dashboard/backend/pkg/errors"
	"shadowrun-gm-dashboard/backend/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusCache caches terminal review outcomes so player polling loops stop
// hitting the database once a decision lands. Implemented by the Redis
// client; a nil cache disables caching.
type StatusCache interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
}

// EnqueueInput describes a new AI response entering the review queue
type EnqueueInput struct {
	SessionID    string
	UserID       string
	Context      string
	AIResponse   string
	ResponseType string
	Priority     int
}

// StatusResult is the player-facing poll payload. It never carries GM notes
// or the raw AI text, only the released final response.
type StatusResult struct {
	Status        string  `json:"status"`
	FinalResponse *string `json:"final_response"`
}

// ReviewService is the moderation queue: it accepts pending AI responses,
// lists them for the GM, and applies a decision exactly once per item.
type ReviewService struct {
	db            *gorm.DB
	sessions      *SessionService
	notifications *NotificationService
	history       *HistoryService
	statusCache   StatusCache
	log           *logger.Logger
}

func NewReviewService(
	db *gorm.DB,
	sessions *SessionService,
	notifications *NotificationService,
	history *HistoryService,
	statusCache StatusCache,
	log *logger.Logger,
) *ReviewService {
	return &ReviewService{
		db:            db,
		sessions:      sessions,
		notifications: notifications,
		history:       history,
		statusCache:   statusCache,
		log:           log,
	}
}

// Enqueue stores a new pending response and notifies the session's GM in
// the same transaction
func (s *ReviewService) Enqueue(input EnqueueInput) (*models.PendingResponse, error) {
	if input.UserID == "" {
		return nil, errors.NewValidationError("user_id is required")
	}
	if input.Context == "" {
		return nil, errors.NewValidationError("context is required")
	}
	if input.AIResponse == "" {
		return nil, errors.NewValidationError("ai_response is required")
	}

	session, err := s.sessions.GetSession(input.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RequireMember(input.SessionID, input.UserID); err != nil {
		return nil, err
	}

	responseType := input.ResponseType
	if responseType == "" {
		responseType = "narrative"
	}
	priority := normalizePriority(input.Priority, responseType)

	pending := &models.PendingResponse{
		ID:           uuid.NewString(),
		SessionID:    input.SessionID,
		UserID:       input.UserID,
		Context:      input.Context,
		AIResponse:   input.AIResponse,
		ResponseType: responseType,
		Status:       models.StatusPending,
		Priority:     priority,
		CreatedAt:    time.Now().UTC(),
	}

	notificationType := models.NotificationNewReview
	if priority == models.PriorityHigh {
		notificationType = models.NotificationUrgentReview
	}
	message := fmt.Sprintf("New %s response from %s awaiting review", responseType, input.UserID)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pending).Error; err != nil {
			return err
		}
		_, err := s.notifications.Notify(tx, input.SessionID, session.GMUserID, pending.ID, notificationType, message)
		return err
	})
	if err != nil {
		s.log.Error("Failed to enqueue pending response",
			"sessionId", input.SessionID,
			"error", err.Error(),
		)
		return nil, errors.NewInternalError("Failed to enqueue response for review")
	}

	s.log.GameEvent("response_enqueued",
		"sessionId", input.SessionID,
		"responseId", pending.ID,
		"responseType", responseType,
		"priority", priority,
	)

	return pending, nil
}

// ListPending returns the session's pending items for GM review, highest
// priority first, oldest first within a priority tier
func (s *ReviewService) ListPending(sessionID, requestingUserID string) ([]models.PendingResponse, error) {
	if err := s.sessions.RequireGM(sessionID, requestingUserID); err != nil {
		return nil, err
	}

	var pending []models.PendingResponse
	err := s.db.
		Where("session_id = ? AND status = ?", sessionID, models.StatusPending).
		Order("priority DESC, created_at ASC").
		Find(&pending).Error
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// Decide applies a GM decision to a pending response. The transition out of
// pending happens at most once: the update is conditional on the current
// status, so a concurrent second decision loses and gets a conflict.
func (s *ReviewService) Decide(sessionID, responseID, dmUserID, action string, finalResponse, dmNotes string) (*models.PendingResponse, error) {
	var pending models.PendingResponse
	result := s.db.Where("id = ? AND session_id = ?", responseID, sessionID).First(&pending)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Pending response not found")
		}
		return nil, result.Error
	}

	if err := s.sessions.RequireGM(pending.SessionID, dmUserID); err != nil {
		return nil, err
	}

	var newStatus string
	var final *string
	switch action {
	case models.ActionApprove:
		newStatus = models.StatusApproved
		final = &pending.AIResponse
	case models.ActionReject:
		newStatus = models.StatusRejected
		final = nil
	case models.ActionEdit:
		if finalResponse == "" {
			return nil, errors.NewValidationError("final_response is required for edit")
		}
		newStatus = models.StatusEdited
		final = &finalResponse
	default:
		return nil, errors.NewValidationError("Invalid action: " + action)
	}

	reviewedAt := time.Now().UTC()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.PendingResponse{}).
			Where("id = ? AND status = ?", responseID, models.StatusPending).
			Updates(map[string]interface{}{
				"status":         newStatus,
				"final_response": final,
				"dm_notes":       dmNotes,
				"reviewed_at":    reviewedAt,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return errors.NewConflictError("Response has already been reviewed")
		}

		_, err := s.history.Record(tx, responseID, dmUserID, action, pending.AIResponse, final, dmNotes)
		return err
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return nil, err
		}
		s.log.Error("Failed to apply review decision",
			"responseId", responseID,
			"error", err.Error(),
		)
		return nil, errors.NewInternalError("Failed to apply review decision")
	}

	pending.Status = newStatus
	pending.FinalResponse = final
	pending.DMNotes = dmNotes
	pending.ReviewedAt = &reviewedAt

	s.cacheStatus(&pending)

	s.log.GameEvent("response_reviewed",
		"sessionId", pending.SessionID,
		"responseId", responseID,
		"action", action,
		"dmUserId", dmUserID,
	)

	return &pending, nil
}

// GetStatus is the lightweight player poll. Terminal outcomes are served
// from the cache when available; the database remains the source of truth.
func (s *ReviewService) GetStatus(responseID string) (*StatusResult, error) {
	if cached := s.cachedStatus(responseID); cached != nil {
		return cached, nil
	}

	var pending models.PendingResponse
	result := s.db.Select("status", "final_response").Where("id = ?", responseID).First(&pending)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Pending response not found")
		}
		return nil, result.Error
	}

	status := &StatusResult{
		Status:        pending.Status,
		FinalResponse: pending.FinalResponse,
	}

	if pending.Decided() {
		pending.ID = responseID
		s.cacheStatus(&pending)
	}

	return status, nil
}

// ApprovedForPlayer lists a player's released responses, newest decision
// first. Approved only; edited text reaches players through the status poll.
func (s *ReviewService) ApprovedForPlayer(sessionID, userID string) ([]models.PendingResponse, error) {
	if _, err := s.sessions.GetSession(sessionID); err != nil {
		return nil, err
	}

	var responses []models.PendingResponse
	err := s.db.
		Where("session_id = ? AND user_id = ? AND status = ?", sessionID, userID, models.StatusApproved).
		Order("reviewed_at DESC").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// cacheStatus stores a terminal outcome for the polling endpoint
func (s *ReviewService) cacheStatus(pending *models.PendingResponse) {
	if s.statusCache == nil || !pending.Decided() {
		return
	}

	payload, err := json.Marshal(StatusResult{
		Status:        pending.Status,
		FinalResponse: pending.FinalResponse,
	})
	if err != nil {
		return
	}

	ttl := config.Get().Redis.StatusTTL
	if err := s.statusCache.Set(statusCacheKey(pending.ID), string(payload), ttl); err != nil {
		s.log.Warn("Failed to cache response status", "responseId", pending.ID, "error", err.Error())
	}
}

// cachedStatus returns a cached terminal outcome, or nil on miss or error
func (s *ReviewService) cachedStatus(responseID string) *StatusResult {
	if s.statusCache == nil {
		return nil
	}

	raw, err := s.statusCache.Get(statusCacheKey(responseID))
	if err != nil || raw == "" {
		return nil
	}

	var status StatusResult
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil
	}
	return &status
}

// normalizePriority applies the configured response_type defaults when the
// caller omits priority or sends one outside the valid range
func normalizePriority(priority int, responseType string) int {
	if priority >= models.PriorityLow && priority <= models.PriorityHigh {
		return priority
	}
	if p, ok := config.Get().Review.PriorityRules[responseType]; ok {
		return p
	}
	return models.PriorityLow
}

func statusCacheKey(responseID string) string {
	return "pending-response:" + responseID + ":status"
}
