package service

import (
	"testing"
	"time"

	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueCreatesPendingWithNotification(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	pending, err := s.reviews.Enqueue(EnqueueInput{
		SessionID:    session.ID,
		UserID:       "p1",
		Context:      "hack the door",
		AIResponse:   "roll 6 dice",
		ResponseType: "matrix",
		Priority:     2,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, pending.Status)
	assert.Nil(t, pending.FinalResponse)
	assert.Nil(t, pending.ReviewedAt)
	assert.Equal(t, 2, pending.Priority)

	var notifications []models.DmNotification
	require.NoError(t, s.db.Where("pending_response_id = ?", pending.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "gm1", notifications[0].DMUserID)
	assert.Equal(t, session.ID, notifications[0].SessionID)
	assert.Equal(t, models.NotificationNewReview, notifications[0].NotificationType)
	assert.False(t, notifications[0].IsRead)
}

func TestEnqueuePriorityDefaults(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	cases := []struct {
		name         string
		responseType string
		priority     int
		want         int
	}{
		{"explicit priority kept", "narrative", 2, 2},
		{"zero falls back to type rule", "combat", 0, 3},
		{"out of range falls back to type rule", "matrix", 7, 2},
		{"unknown type falls back to low", "banter", 0, models.PriorityLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pending, err := s.reviews.Enqueue(EnqueueInput{
				SessionID:    session.ID,
				UserID:       "p1",
				Context:      "do the thing",
				AIResponse:   "a response",
				ResponseType: tc.responseType,
				Priority:     tc.priority,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, pending.Priority)
		})
	}
}

func TestEnqueueHighPriorityNotifiesUrgent(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	pending, err := s.reviews.Enqueue(EnqueueInput{
		SessionID:    session.ID,
		UserID:       "p1",
		Context:      "open fire",
		AIResponse:   "initiative order is...",
		ResponseType: "combat",
		Priority:     3,
	})
	require.NoError(t, err)

	var notification models.DmNotification
	require.NoError(t, s.db.Where("pending_response_id = ?", pending.ID).First(&notification).Error)
	assert.Equal(t, models.NotificationUrgentReview, notification.NotificationType)
}

func TestEnqueueValidation(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	_, err := s.reviews.Enqueue(EnqueueInput{
		SessionID:  session.ID,
		UserID:     "p1",
		AIResponse: "text",
	})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = s.reviews.Enqueue(EnqueueInput{
		SessionID:  "no-such-session",
		UserID:     "p1",
		Context:    "hello",
		AIResponse: "text",
	})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = s.reviews.Enqueue(EnqueueInput{
		SessionID:  session.ID,
		UserID:     "stranger",
		Context:    "hello",
		AIResponse: "text",
	})
	assert.True(t, errors.Is(err, errors.CodeAuthorization))
}

func TestListPendingOrdering(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	t0 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	lowOld := seedPending(t, s, session.ID, 1, t0)
	highNew := seedPending(t, s, session.ID, 3, t1)
	highOld := seedPending(t, s, session.ID, 3, t0)

	pending, err := s.reviews.ListPending(session.ID, "gm1")
	require.NoError(t, err)
	require.Len(t, pending, 3)

	assert.Equal(t, highOld, pending[0].ID)
	assert.Equal(t, highNew, pending[1].ID)
	assert.Equal(t, lowOld, pending[2].ID)
}

func TestListPendingRequiresGM(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	_, err := s.reviews.ListPending(session.ID, "p1")
	assert.True(t, errors.Is(err, errors.CodeAuthorization))

	_, err = s.reviews.ListPending(session.ID, "stranger")
	assert.True(t, errors.Is(err, errors.CodeAuthorization))
}

func TestListPendingExcludesDecided(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	pending := enqueueOne(t, s, session.ID, "p1")
	_, err := s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionApprove, "", "")
	require.NoError(t, err)

	remaining, err := s.reviews.ListPending(session.ID, "gm1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDecideApprove(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")
	pending := enqueueOne(t, s, session.ID, "p1")

	decided, err := s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionApprove, "", "looks fine")
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, decided.Status)
	require.NotNil(t, decided.FinalResponse)
	assert.Equal(t, pending.AIResponse, *decided.FinalResponse)
	assert.NotNil(t, decided.ReviewedAt)

	assertHistoryCount(t, s, pending.ID, 1)

	var entry models.ReviewHistory
	require.NoError(t, s.db.Where("pending_response_id = ?", pending.ID).First(&entry).Error)
	assert.Equal(t, models.ActionApprove, entry.Action)
	assert.Equal(t, "gm1", entry.DMUserID)
	assert.Equal(t, pending.AIResponse, entry.OriginalResponse)
	require.NotNil(t, entry.FinalResponse)
	assert.Equal(t, pending.AIResponse, *entry.FinalResponse)
}

func TestDecideReject(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")
	pending := enqueueOne(t, s, session.ID, "p1")

	decided, err := s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionReject, "", "not in tone")
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, decided.Status)
	assert.Nil(t, decided.FinalResponse)
	assertHistoryCount(t, s, pending.ID, 1)
}

func TestDecideEdit(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")
	pending := enqueueOne(t, s, session.ID, "p1")

	decided, err := s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionEdit, "roll 8 dice due to ICE", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusEdited, decided.Status)
	require.NotNil(t, decided.FinalResponse)
	assert.Equal(t, "roll 8 dice due to ICE", *decided.FinalResponse)
}

func TestDecideEditRequiresFinalResponse(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")
	pending := enqueueOne(t, s, session.ID, "p1")

	_, err := s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionEdit, "", "")
	assert.True(t, errors.Is(err, errors.CodeValidation))

	// The record stays pending and no audit row is written
	var record models.PendingResponse
	require.NoError(t, s.db.Where("id = ?", pending.ID).First(&record).Error)
	assert.Equal(t, models.StatusPending, record.Status)
	assertHistoryCount(t, s, pending.ID, 0)
}

func TestDecideInvalidAction(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")
	pending := enqueueOne(t, s, session.ID, "p1")

	_, err := s.reviews.Decide(session.ID, pending.ID, "gm1", "escalate", "", "")
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestDecideRequiresGM(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")
	pending := enqueueOne(t, s, session.ID, "p1")

	_, err := s.reviews.Decide(session.ID, pending.ID, "p1", models.ActionApprove, "", "")
	assert.True(t, errors.Is(err, errors.CodeAuthorization))
}

func TestDecideUnknownResponse(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	_, err := s.reviews.Decide(session.ID, "no-such-id", "gm1", models.ActionApprove, "", "")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestDecideIsOneShot(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")
	pending := enqueueOne(t, s, session.ID, "p1")

	first, err := s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionEdit, "roll 8 dice due to ICE", "")
	require.NoError(t, err)

	_, err = s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionApprove, "", "")
	assert.True(t, errors.Is(err, errors.CodeConflict))

	// The second attempt leaves the first decision untouched
	var record models.PendingResponse
	require.NoError(t, s.db.Where("id = ?", pending.ID).First(&record).Error)
	assert.Equal(t, models.StatusEdited, record.Status)
	require.NotNil(t, record.FinalResponse)
	assert.Equal(t, *first.FinalResponse, *record.FinalResponse)

	assertHistoryCount(t, s, pending.ID, 1)
}

func TestGetStatus(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")
	pending := enqueueOne(t, s, session.ID, "p1")

	status, err := s.reviews.GetStatus(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status.Status)
	assert.Nil(t, status.FinalResponse)

	_, err = s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionEdit, "roll 8 dice due to ICE", "ICE is hot")
	require.NoError(t, err)

	status, err = s.reviews.GetStatus(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEdited, status.Status)
	require.NotNil(t, status.FinalResponse)
	assert.Equal(t, "roll 8 dice due to ICE", *status.FinalResponse)

	_, err = s.reviews.GetStatus("no-such-id")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestReviewEndToEnd(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	pending, err := s.reviews.Enqueue(EnqueueInput{
		SessionID:    session.ID,
		UserID:       "p1",
		Context:      "hack the door",
		AIResponse:   "roll 6 dice",
		ResponseType: "matrix",
		Priority:     2,
	})
	require.NoError(t, err)

	queue, err := s.reviews.ListPending(session.ID, "gm1")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, pending.ID, queue[0].ID)

	_, err = s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionEdit, "roll 8 dice due to ICE", "")
	require.NoError(t, err)

	status, err := s.reviews.GetStatus(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEdited, status.Status)
	require.NotNil(t, status.FinalResponse)
	assert.Equal(t, "roll 8 dice due to ICE", *status.FinalResponse)

	_, err = s.reviews.Decide(session.ID, pending.ID, "gm1", models.ActionApprove, "", "")
	assert.True(t, errors.Is(err, errors.CodeConflict))
}

func TestApprovedForPlayer(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	approved := enqueueOne(t, s, session.ID, "p1")
	rejected := enqueueOne(t, s, session.ID, "p1")

	_, err := s.reviews.Decide(session.ID, approved.ID, "gm1", models.ActionApprove, "", "")
	require.NoError(t, err)
	_, err = s.reviews.Decide(session.ID, rejected.ID, "gm1", models.ActionReject, "", "")
	require.NoError(t, err)

	responses, err := s.reviews.ApprovedForPlayer(session.ID, "p1")
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, approved.ID, responses[0].ID)
}

func TestMarkReadIdempotent(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")
	enqueueOne(t, s, session.ID, "p1")

	unread, err := s.notifications.ListUnread(session.ID, "gm1")
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, s.notifications.MarkRead(session.ID, "gm1", unread[0].ID))
	require.NoError(t, s.notifications.MarkRead(session.ID, "gm1", unread[0].ID))

	after, err := s.notifications.ListUnread(session.ID, "gm1")
	require.NoError(t, err)
	assert.Empty(t, after)

	err = s.notifications.MarkRead(session.ID, "gm1", 9999)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestListUnreadNewestFirst(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	older := models.DmNotification{
		SessionID:         session.ID,
		DMUserID:          "gm1",
		PendingResponseID: uuid.NewString(),
		NotificationType:  models.NotificationNewReview,
		Message:           "older",
		CreatedAt:         time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	newer := older
	newer.Message = "newer"
	newer.PendingResponseID = uuid.NewString()
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	require.NoError(t, s.db.Create(&older).Error)
	require.NoError(t, s.db.Create(&newer).Error)

	unread, err := s.notifications.ListUnread(session.ID, "gm1")
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "newer", unread[0].Message)
	assert.Equal(t, "older", unread[1].Message)
}

func TestHistoryFor(t *testing.T) {
	s := newTestServices(t)
	session := s.newTestSession(t, "gm1", "p1")

	first := enqueueOne(t, s, session.ID, "p1")
	second := enqueueOne(t, s, session.ID, "p1")

	_, err := s.reviews.Decide(session.ID, first.ID, "gm1", models.ActionApprove, "", "")
	require.NoError(t, err)
	_, err = s.reviews.Decide(session.ID, second.ID, "gm1", models.ActionReject, "", "")
	require.NoError(t, err)

	history, err := s.history.HistoryFor(session.ID, "gm1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].PendingResponseID)
	assert.Equal(t, second.ID, history[1].PendingResponseID)

	_, err = s.history.HistoryFor(session.ID, "p1")
	assert.True(t, errors.Is(err, errors.CodeAuthorization))
}

// enqueueOne enqueues a minimal pending response
func enqueueOne(t *testing.T, s *testServices, sessionID, userID string) *models.PendingResponse {
	t.Helper()

	pending, err := s.reviews.Enqueue(EnqueueInput{
		SessionID:    sessionID,
		UserID:       userID,
		Context:      "a prompt",
		AIResponse:   "a draft response",
		ResponseType: "narrative",
		Priority:     1,
	})
	require.NoError(t, err)
	return pending
}

// seedPending inserts a pending row directly so creation time is exact
func seedPending(t *testing.T, s *testServices, sessionID string, priority int, createdAt time.Time) string {
	t.Helper()

	pending := models.PendingResponse{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		UserID:       "p1",
		Context:      "a prompt",
		AIResponse:   "a draft response",
		ResponseType: "narrative",
		Status:       models.StatusPending,
		Priority:     priority,
		CreatedAt:    createdAt,
	}
	require.NoError(t, s.db.Create(&pending).Error)
	return pending.ID
}

func assertHistoryCount(t *testing.T, s *testServices, pendingID string, want int64) {
	t.Helper()

	var count int64
	require.NoError(t, s.db.Model(&models.ReviewHistory{}).
		Where("pending_response_id = ?", pendingID).
		Count(&count).Error)
	assert.Equal(t, want, count)
}
