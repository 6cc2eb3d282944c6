package service

import (
	"time"

	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/pkg/cache"
	"shadowrun-gm-dashboard/backend/pkg/errors"
	"shadowrun-gm-dashboard/backend/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionService manages game sessions and session membership. Every queue
// operation funnels its authorization through RoleInSession / RequireGM so
// role checks live in one place instead of per-route.
type SessionService struct {
	db        *gorm.DB
	roleCache *cache.Cache
	log       *logger.Logger
}

func NewSessionService(db *gorm.DB, roleCache *cache.Cache, log *logger.Logger) *SessionService {
	return &SessionService{
		db:        db,
		roleCache: roleCache,
		log:       log,
	}
}

// CreateSession creates a session and registers the creator as its GM
func (s *SessionService) CreateSession(name, gmUserID string) (*models.Session, error) {
	if gmUserID == "" {
		return nil, errors.NewValidationError("gm_user_id is required")
	}
	if name == "" {
		name = "Shadowrun Session"
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		Name:      name,
		GMUserID:  gmUserID,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		role := &models.UserRole{
			SessionID: session.ID,
			UserID:    gmUserID,
			Role:      models.RoleGM,
		}
		return tx.Create(role).Error
	})
	if err != nil {
		s.log.Error("Failed to create session", "error", err.Error())
		return nil, errors.NewInternalError("Failed to create session")
	}

	s.log.GameEvent("session_created", "sessionId", session.ID, "gmUserId", gmUserID)

	return session, nil
}

// GetSession fetches a session by id
func (s *SessionService) GetSession(sessionID string) (*models.Session, error) {
	var session models.Session
	result := s.db.Where("id = ?", sessionID).First(&session)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Session not found")
		}
		return nil, result.Error
	}
	return &session, nil
}

// JoinSession registers a user in a session with the given role
func (s *SessionService) JoinSession(sessionID, userID, role string) (*models.UserRole, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id is required")
	}
	if role == "" {
		role = models.RolePlayer
	}
	if !models.ValidRole(role) {
		return nil, errors.NewValidationError("Invalid role: " + role)
	}

	if _, err := s.GetSession(sessionID); err != nil {
		return nil, err
	}

	var userRole models.UserRole
	result := s.db.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&userRole)
	if result.Error == nil {
		if userRole.Role != role {
			userRole.Role = role
			if err := s.db.Save(&userRole).Error; err != nil {
				return nil, err
			}
			s.roleCache.Delete(roleCacheKey(sessionID, userID))
		}
		return &userRole, nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	userRole = models.UserRole{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
	}
	if err := s.db.Create(&userRole).Error; err != nil {
		return nil, err
	}

	s.log.GameEvent("session_joined", "sessionId", sessionID, "userId", userID, "role", role)

	return &userRole, nil
}

// RoleInSession resolves a user's role within a session. Returns an empty
// string when the user is not a member. The lookup is cached briefly because
// the review endpoints re-check the role on every call.
func (s *SessionService) RoleInSession(sessionID, userID string) (string, error) {
	key := roleCacheKey(sessionID, userID)
	if cached, found := s.roleCache.Get(key); found {
		if role, ok := cached.(string); ok {
			return role, nil
		}
	}

	session, err := s.GetSession(sessionID)
	if err != nil {
		return "", err
	}

	role := ""
	var userRole models.UserRole
	result := s.db.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&userRole)
	switch {
	case result.Error == nil:
		role = userRole.Role
	case result.Error == gorm.ErrRecordNotFound:
		// The session creator is GM even without an explicit role row
		if session.GMUserID == userID {
			role = models.RoleGM
		}
	default:
		return "", result.Error
	}

	s.roleCache.Set(key, role)

	return role, nil
}

// RequireGM fails with an authorization error unless the user holds the GM
// role for the session
func (s *SessionService) RequireGM(sessionID, userID string) error {
	if userID == "" {
		return errors.NewValidationError("user_id is required")
	}

	role, err := s.RoleInSession(sessionID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleGM {
		return errors.NewAuthorizationError("Only GMs can perform this operation")
	}
	return nil
}

// RequireMember fails unless the user belongs to the session in any role
func (s *SessionService) RequireMember(sessionID, userID string) error {
	if userID == "" {
		return errors.NewValidationError("user_id is required")
	}

	role, err := s.RoleInSession(sessionID, userID)
	if err != nil {
		return err
	}
	if role == "" {
		return errors.NewAuthorizationError("User is not a member of this session")
	}
	return nil
}

func roleCacheKey(sessionID, userID string) string {
	return "role:" + sessionID + ":" + userID
}
