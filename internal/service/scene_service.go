package service

import (
	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/pkg/errors"
	"shadowrun-gm-dashboard/backend/pkg/logger"

	"gorm.io/gorm"
)

// SceneService manages the narrative scene text and session entities
// (NPCs, spirits, drones). Mutations are GM-only, reads are open to the
// whole table.
type SceneService struct {
	db       *gorm.DB
	sessions *SessionService
	log      *logger.Logger
}

func NewSceneService(db *gorm.DB, sessions *SessionService, log *logger.Logger) *SceneService {
	return &SceneService{
		db:       db,
		sessions: sessions,
		log:      log,
	}
}

// GetScene returns the current scene for a session, or an empty scene if
// none has been set yet
func (s *SceneService) GetScene(sessionID string) (*models.Scene, error) {
	if _, err := s.sessions.GetSession(sessionID); err != nil {
		return nil, err
	}

	var scene models.Scene
	result := s.db.Where("session_id = ?", sessionID).First(&scene)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return &models.Scene{SessionID: sessionID}, nil
		}
		return nil, result.Error
	}
	return &scene, nil
}

// SetScene creates or replaces the scene summary for a session
func (s *SceneService) SetScene(sessionID, userID, summary string) (*models.Scene, error) {
	if err := s.sessions.RequireGM(sessionID, userID); err != nil {
		return nil, err
	}

	var scene models.Scene
	result := s.db.Where("session_id = ?", sessionID).First(&scene)
	switch {
	case result.Error == nil:
		scene.Summary = summary
		if err := s.db.Save(&scene).Error; err != nil {
			return nil, err
		}
	case result.Error == gorm.ErrRecordNotFound:
		scene = models.Scene{SessionID: sessionID, Summary: summary}
		if err := s.db.Create(&scene).Error; err != nil {
			return nil, err
		}
	default:
		return nil, result.Error
	}

	s.log.GameEvent("scene_updated", "sessionId", sessionID, "userId", userID)

	return &scene, nil
}

// ListEntities returns all entities in a session
func (s *SceneService) ListEntities(sessionID string) ([]models.Entity, error) {
	if _, err := s.sessions.GetSession(sessionID); err != nil {
		return nil, err
	}

	var entities []models.Entity
	if err := s.db.Where("session_id = ?", sessionID).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// UpsertEntity creates a new entity or updates an existing one by id
func (s *SceneService) UpsertEntity(sessionID, userID string, entity *models.Entity) (*models.Entity, error) {
	if err := s.sessions.RequireGM(sessionID, userID); err != nil {
		return nil, err
	}
	if entity.Name == "" || entity.Type == "" {
		return nil, errors.NewValidationError("name and type are required")
	}

	if entity.ID != 0 {
		var existing models.Entity
		result := s.db.Where("id = ? AND session_id = ?", entity.ID, sessionID).First(&existing)
		if result.Error != nil {
			if result.Error == gorm.ErrRecordNotFound {
				return nil, errors.NewNotFoundError("Entity not found")
			}
			return nil, result.Error
		}
		existing.Name = entity.Name
		existing.Type = entity.Type
		existing.Status = entity.Status
		existing.ExtraData = entity.ExtraData
		if err := s.db.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}

	entity.SessionID = sessionID
	if err := s.db.Create(entity).Error; err != nil {
		return nil, err
	}
	return entity, nil
}

// DeleteEntity removes an entity from a session
func (s *SceneService) DeleteEntity(sessionID, userID string, entityID uint) error {
	if err := s.sessions.RequireGM(sessionID, userID); err != nil {
		return err
	}

	var entity models.Entity
	result := s.db.Where("id = ? AND session_id = ?", entityID, sessionID).First(&entity)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return errors.NewNotFoundError("Entity not found")
		}
		return result.Error
	}

	return s.db.Delete(&entity).Error
}
