package api

import (
	"net/http"

	"shadowrun-gm-dashboard/backend/internal/service"
	"shadowrun-gm-dashboard/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type createSessionRequest struct {
	Name     string `json:"name"`
	GMUserID string `json:"gm_user_id"`
}

// CreateSession creates a new game session with the caller as GM
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("Invalid request body"))
		return
	}

	session, err := h.sessions.CreateSession(req.Name, req.GMUserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession returns session details
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessions.GetSession(c.Param("sessionId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, session)
}

type joinSessionRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// JoinSession adds a user to a session with the requested role
func (h *SessionHandler) JoinSession(c *gin.Context) {
	var req joinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("Invalid request body"))
		return
	}

	role, err := h.sessions.JoinSession(c.Param("sessionId"), req.UserID, req.Role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "joined",
		"session_id": role.SessionID,
		"user_id":    role.UserID,
		"role":       role.Role,
	})
}
