package api

import (
	"net/http"
	"strconv"

	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/internal/service"
	"shadowrun-gm-dashboard/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

type SceneHandler struct {
	scenes *service.SceneService
}

func NewSceneHandler(scenes *service.SceneService) *SceneHandler {
	return &SceneHandler{scenes: scenes}
}

// GetScene returns the session's current scene summary
func (h *SceneHandler) GetScene(c *gin.Context) {
	scene, err := h.scenes.GetScene(c.Param("sessionId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": scene.Summary})
}

type setSceneRequest struct {
	UserID  string `json:"user_id"`
	Summary string `json:"summary"`
}

// SetScene replaces the session's scene summary (GM only)
func (h *SceneHandler) SetScene(c *gin.Context) {
	var req setSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("Invalid request body"))
		return
	}

	scene, err := h.scenes.SetScene(c.Param("sessionId"), req.UserID, req.Summary)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "summary": scene.Summary})
}

// ListEntities returns every entity in the session
func (h *SceneHandler) ListEntities(c *gin.Context) {
	entities, err := h.scenes.ListEntities(c.Param("sessionId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, entities)
}

type upsertEntityRequest struct {
	UserID    string `json:"user_id"`
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	ExtraData string `json:"extra_data"`
}

// UpsertEntity creates or updates an entity (GM only)
func (h *SceneHandler) UpsertEntity(c *gin.Context) {
	var req upsertEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("Invalid request body"))
		return
	}

	entity, err := h.scenes.UpsertEntity(c.Param("sessionId"), req.UserID, &models.Entity{
		ID:        req.ID,
		Name:      req.Name,
		Type:      req.Type,
		Status:    req.Status,
		ExtraData: req.ExtraData,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, entity)
}

type deleteEntityRequest struct {
	UserID string `json:"user_id"`
}

// DeleteEntity removes an entity (GM only)
func (h *SceneHandler) DeleteEntity(c *gin.Context) {
	entityID, err := strconv.ParseUint(c.Param("entityId"), 10, 32)
	if err != nil {
		c.Error(errors.NewValidationError("Invalid entity id"))
		return
	}

	var req deleteEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("Invalid request body"))
		return
	}

	if err := h.scenes.DeleteEntity(c.Param("sessionId"), req.UserID, uint(entityID)); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
