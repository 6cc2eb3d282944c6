package api

import (
	"net/http"

	"shadowrun-gm-dashboard/backend/ai"
	"shadowrun-gm-dashboard/backend/internal/service"
	"shadowrun-gm-dashboard/backend/pkg/config"
	"shadowrun-gm-dashboard/backend/pkg/errors"
	"shadowrun-gm-dashboard/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ReviewHandler exposes the moderation queue: AI generation with review,
// the GM pending list, decisions, and the player status poll.
type ReviewHandler struct {
	reviews   *service.ReviewService
	sessions  *service.SessionService
	generator ai.TextGenerator
}

func NewReviewHandler(reviews *service.ReviewService, sessions *service.SessionService, generator ai.TextGenerator) *ReviewHandler {
	return &ReviewHandler{
		reviews:   reviews,
		sessions:  sessions,
		generator: generator,
	}
}

type llmWithReviewRequest struct {
	UserID        string `json:"user_id"`
	Context       string `json:"context"`
	Input         string `json:"input"`
	ResponseType  string `json:"response_type"`
	Priority      int    `json:"priority"`
	RequireReview *bool  `json:"require_review"`
	Model         string `json:"model"`
}

// LLMWithReview generates an AI response and, unless review is disabled,
// holds it in the moderation queue instead of returning it to the player
func (h *ReviewHandler) LLMWithReview(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req llmWithReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("Invalid request body"))
		return
	}

	prompt := req.Context
	if prompt == "" {
		prompt = req.Input
	}
	if req.UserID == "" || prompt == "" {
		c.Error(errors.NewValidationError("user_id and context are required"))
		return
	}

	// Membership is checked before the provider call so a bad request
	// never spends LLM tokens
	if err := h.sessions.RequireMember(sessionID, req.UserID); err != nil {
		c.Error(err)
		return
	}

	cfg := config.Get()
	aiResponse, err := h.generator.Generate(c.Request.Context(), ai.Request{
		Model:     req.Model,
		Messages:  []ai.Message{{Role: "user", Content: prompt}},
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		logger.FromContext(c).Error("AI generation failed",
			"sessionId", sessionID,
			"error", err.Error(),
		)
		c.Error(errors.NewUpstreamError("AI generation failed"))
		return
	}

	requireReview := cfg.Review.RequireReviewDefault
	if req.RequireReview != nil {
		requireReview = *req.RequireReview
	}

	if !requireReview {
		c.JSON(http.StatusOK, gin.H{
			"status":   "completed",
			"response": aiResponse,
		})
		return
	}

	pending, err := h.reviews.Enqueue(service.EnqueueInput{
		SessionID:    sessionID,
		UserID:       req.UserID,
		Context:      prompt,
		AIResponse:   aiResponse,
		ResponseType: req.ResponseType,
		Priority:     req.Priority,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "pending_review",
		"response_id": pending.ID,
	})
}

// ListPending returns the GM's review queue, highest priority first
func (h *ReviewHandler) ListPending(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.Error(errors.NewValidationError("user_id is required"))
		return
	}

	pending, err := h.reviews.ListPending(c.Param("sessionId"), userID)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]gin.H, 0, len(pending))
	for _, p := range pending {
		items = append(items, gin.H{
			"id":            p.ID,
			"user_id":       p.UserID,
			"context":       p.Context,
			"ai_response":   p.AIResponse,
			"response_type": p.ResponseType,
			"priority":      p.Priority,
			"created_at":    p.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

type reviewRequest struct {
	UserID        string `json:"user_id"`
	Action        string `json:"action"`
	FinalResponse string `json:"final_response"`
	DMNotes       string `json:"dm_notes"`
}

// Review applies the GM's one-shot decision to a pending response
func (h *ReviewHandler) Review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("Invalid request body"))
		return
	}
	if req.UserID == "" || req.Action == "" {
		c.Error(errors.NewValidationError("user_id and action are required"))
		return
	}

	pending, err := h.reviews.Decide(c.Param("sessionId"), c.Param("responseId"), req.UserID, req.Action, req.FinalResponse, req.DMNotes)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"action": req.Action,
		"record": pending,
	})
}

// GetStatus is the player-facing poll for a response's outcome. It only ever
// exposes status and final_response, never GM notes or the raw draft.
func (h *ReviewHandler) GetStatus(c *gin.Context) {
	status, err := h.reviews.GetStatus(c.Param("responseId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ApprovedResponses lists a player's released responses
func (h *ReviewHandler) ApprovedResponses(c *gin.Context) {
	responses, err := h.reviews.ApprovedForPlayer(c.Param("sessionId"), c.Param("userId"))
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]gin.H, 0, len(responses))
	for _, r := range responses {
		items = append(items, gin.H{
			"id":             r.ID,
			"context":        r.Context,
			"final_response": r.FinalResponse,
			"response_type":  r.ResponseType,
			"reviewed_at":    r.ReviewedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}
