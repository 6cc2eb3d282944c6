package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shadowrun-gm-dashboard/backend/ai"
	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/internal/service"
	"shadowrun-gm-dashboard/backend/pkg/cache"
	apperrors "shadowrun-gm-dashboard/backend/pkg/errors"
	"shadowrun-gm-dashboard/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// stubGenerator returns a canned response instead of calling a provider
type stubGenerator struct {
	response string
	err      error
}

func (s *stubGenerator) Generate(ctx context.Context, req ai.Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type testEnv struct {
	engine   *gin.Engine
	db       *gorm.DB
	sessions *service.SessionService
	reviews  *service.ReviewService
}

func newTestEnv(t *testing.T, generator ai.TextGenerator) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Session{},
		&models.UserRole{},
		&models.Scene{},
		&models.Entity{},
		&models.PendingResponse{},
		&models.DmNotification{},
		&models.ReviewHistory{},
	))

	log := logger.New(logger.Config{Level: "error", JSON: false})
	roleCache := cache.NewCacheWithOptions(time.Minute, 0, 100)

	sessions := service.NewSessionService(db, roleCache, log)
	notifications := service.NewNotificationService(db, sessions, log)
	history := service.NewHistoryService(db, sessions, log)
	reviews := service.NewReviewService(db, sessions, notifications, history, nil, log)

	sessionHandler := NewSessionHandler(sessions)
	reviewHandler := NewReviewHandler(reviews, sessions, generator)
	notificationHandler := NewNotificationHandler(notifications, history)

	engine := gin.New()
	engine.Use(apperrors.ErrorHandler())

	apiRoutes := engine.Group("/api")
	apiRoutes.POST("/session", sessionHandler.CreateSession)
	apiRoutes.GET("/pending-response/:responseId/status", reviewHandler.GetStatus)

	sessionRoutes := apiRoutes.Group("/session/:sessionId")
	sessionRoutes.POST("/join", sessionHandler.JoinSession)
	sessionRoutes.POST("/llm-with-review", reviewHandler.LLMWithReview)
	sessionRoutes.GET("/pending-responses", reviewHandler.ListPending)
	sessionRoutes.POST("/pending-response/:responseId/review", reviewHandler.Review)
	sessionRoutes.GET("/player/:userId/approved-responses", reviewHandler.ApprovedResponses)
	sessionRoutes.GET("/dm/notifications", notificationHandler.ListUnread)
	sessionRoutes.POST("/dm/notifications/:notificationId/mark-read", notificationHandler.MarkRead)
	sessionRoutes.GET("/review-history", notificationHandler.ReviewHistory)

	return &testEnv{
		engine:   engine,
		db:       db,
		sessions: sessions,
		reviews:  reviews,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func (e *testEnv) newSession(t *testing.T) string {
	t.Helper()

	w := e.request(t, http.MethodPost, "/api/session", gin.H{
		"name":       "Test Run",
		"gm_user_id": "gm1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decodeJSON(t, w)["id"].(string)

	w = e.request(t, http.MethodPost, "/api/session/"+sessionID+"/join", gin.H{
		"user_id": "p1",
		"role":    "player",
	})
	require.Equal(t, http.StatusOK, w.Code)

	return sessionID
}

func TestReviewWorkflowOverHTTP(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{response: "roll 6 dice"})
	sessionID := env.newSession(t)

	// Player submits a prompt held for review
	w := env.request(t, http.MethodPost, "/api/session/"+sessionID+"/llm-with-review", gin.H{
		"user_id":       "p1",
		"context":       "hack the door",
		"response_type": "matrix",
		"priority":      2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeJSON(t, w)
	assert.Equal(t, "pending_review", payload["status"])
	responseID := payload["response_id"].(string)
	require.NotEmpty(t, responseID)

	// A player cannot read the queue
	w = env.request(t, http.MethodGet, "/api/session/"+sessionID+"/pending-responses?user_id=p1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	envelope := decodeJSON(t, w)
	assert.Equal(t, "error", envelope["status"])
	assert.Equal(t, apperrors.CodeAuthorization, envelope["error_code"])

	// The GM sees exactly the submitted item
	w = env.request(t, http.MethodGet, "/api/session/"+sessionID+"/pending-responses?user_id=gm1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, responseID, queue[0]["id"])
	assert.Equal(t, "roll 6 dice", queue[0]["ai_response"])

	// The GM edits the response
	w = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/session/%s/pending-response/%s/review", sessionID, responseID), gin.H{
			"user_id":        "gm1",
			"action":         "edit",
			"final_response": "roll 8 dice due to ICE",
		})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", decodeJSON(t, w)["status"])

	// The player poll returns the released text, nothing else
	w = env.request(t, http.MethodGet, "/api/pending-response/"+responseID+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decodeJSON(t, w)
	assert.Equal(t, "edited", status["status"])
	assert.Equal(t, "roll 8 dice due to ICE", status["final_response"])
	assert.NotContains(t, status, "dm_notes")
	assert.NotContains(t, status, "ai_response")

	// A second decision is a conflict
	w = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/session/%s/pending-response/%s/review", sessionID, responseID), gin.H{
			"user_id": "gm1",
			"action":  "approve",
		})
	assert.Equal(t, http.StatusConflict, w.Code)
	envelope = decodeJSON(t, w)
	assert.Equal(t, "error", envelope["status"])
	assert.Equal(t, apperrors.CodeConflict, envelope["error_code"])
}

func TestLLMWithReviewBypass(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{response: "the fixer nods"})
	sessionID := env.newSession(t)

	w := env.request(t, http.MethodPost, "/api/session/"+sessionID+"/llm-with-review", gin.H{
		"user_id":        "p1",
		"context":        "greet the fixer",
		"require_review": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeJSON(t, w)
	assert.Equal(t, "completed", payload["status"])
	assert.Equal(t, "the fixer nods", payload["response"])

	// Nothing was enqueued
	var count int64
	require.NoError(t, env.db.Model(&models.PendingResponse{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestLLMWithReviewUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{err: fmt.Errorf("provider timeout")})
	sessionID := env.newSession(t)

	w := env.request(t, http.MethodPost, "/api/session/"+sessionID+"/llm-with-review", gin.H{
		"user_id": "p1",
		"context": "hack the door",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	envelope := decodeJSON(t, w)
	assert.Equal(t, "error", envelope["status"])
	assert.Equal(t, apperrors.CodeUpstream, envelope["error_code"])

	// A failed generation never reaches the queue
	var count int64
	require.NoError(t, env.db.Model(&models.PendingResponse{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestLLMWithReviewValidation(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{response: "text"})
	sessionID := env.newSession(t)

	w := env.request(t, http.MethodPost, "/api/session/"+sessionID+"/llm-with-review", gin.H{
		"user_id": "p1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeValidation, decodeJSON(t, w)["error_code"])

	// Non-members cannot generate
	w = env.request(t, http.MethodPost, "/api/session/"+sessionID+"/llm-with-review", gin.H{
		"user_id": "stranger",
		"context": "hello",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotificationsOverHTTP(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{response: "roll 6 dice"})
	sessionID := env.newSession(t)

	w := env.request(t, http.MethodPost, "/api/session/"+sessionID+"/llm-with-review", gin.H{
		"user_id": "p1",
		"context": "hack the door",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/session/"+sessionID+"/dm/notifications?user_id=gm1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notifications []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notifications))
	require.Len(t, notifications, 1)

	id := int(notifications[0]["id"].(float64))
	markReadPath := fmt.Sprintf("/api/session/%s/dm/notifications/%d/mark-read", sessionID, id)

	w = env.request(t, http.MethodPost, markReadPath, gin.H{"user_id": "gm1"})
	require.Equal(t, http.StatusOK, w.Code)

	// Marking twice stays a success
	w = env.request(t, http.MethodPost, markReadPath, gin.H{"user_id": "gm1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/session/"+sessionID+"/dm/notifications?user_id=gm1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notifications))
	assert.Empty(t, notifications)
}

func TestStatusPollUnknownID(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{response: "text"})

	w := env.request(t, http.MethodGet, "/api/pending-response/"+uuid.NewString()+"/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, decodeJSON(t, w)["error_code"])
}
