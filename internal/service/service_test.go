package service

import (
	"testing"
	"time"

	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/pkg/cache"
	"shadowrun-gm-dashboard/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testServices bundles the service layer over a fresh in-memory database
type testServices struct {
	db            *gorm.DB
	sessions      *SessionService
	scenes        *SceneService
	notifications *NotificationService
	history       *HistoryService
	reviews       *ReviewService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

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

	return db
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db := newTestDB(t)
	log := logger.New(logger.Config{Level: "error", JSON: false})
	roleCache := cache.NewCacheWithOptions(time.Minute, 0, 100)

	sessions := NewSessionService(db, roleCache, log)
	scenes := NewSceneService(db, sessions, log)
	notifications := NewNotificationService(db, sessions, log)
	history := NewHistoryService(db, sessions, log)
	reviews := NewReviewService(db, sessions, notifications, history, nil, log)

	return &testServices{
		db:            db,
		sessions:      sessions,
		scenes:        scenes,
		notifications: notifications,
		history:       history,
		reviews:       reviews,
	}
}

// newTestSession creates a session with a GM and one joined player
func (s *testServices) newTestSession(t *testing.T, gmUserID, playerUserID string) *models.Session {
	t.Helper()

	session, err := s.sessions.CreateSession("Test Run", gmUserID)
	require.NoError(t, err)

	if playerUserID != "" {
		_, err = s.sessions.JoinSession(session.ID, playerUserID, models.RolePlayer)
		require.NoError(t, err)
	}

	return session
}
