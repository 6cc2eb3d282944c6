package di

import (
	"time"

	"shadowrun-gm-dashboard/backend/ai"
	"shadowrun-gm-dashboard/backend/internal/service"
	"shadowrun-gm-dashboard/backend/pkg/cache"
	"shadowrun-gm-dashboard/backend/pkg/config"
	"shadowrun-gm-dashboard/backend/pkg/health"
	"shadowrun-gm-dashboard/backend/pkg/logger"
	"shadowrun-gm-dashboard/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB     *gorm.DB
	Logger *logger.Logger

	RoleCache *cache.Cache
	Redis     *redis.RedisClient
	Generator ai.TextGenerator

	SessionService      *service.SessionService
	SceneService        *service.SceneService
	NotificationService *service.NotificationService
	HistoryService      *service.HistoryService
	ReviewService       *service.ReviewService

	HealthChecker *health.Checker
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig logger.Config
	// Generator overrides the default LLM gateway, used by tests
	Generator ai.TextGenerator
	// HealthCheckPeriod controls how often registered checks run
	HealthCheckPeriod time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LoggerConfig:      logger.DefaultConfig(),
		HealthCheckPeriod: 30 * time.Second,
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *Config) (*Container, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	log := logger.New(cfg.LoggerConfig)
	appCfg := config.Get()

	roleCache := cache.NewCache()

	var redisClient *redis.RedisClient
	var statusCache service.StatusCache
	if appCfg.Redis.Enabled {
		redisClient = redis.NewRedisClient()
		statusCache = redisClient
	}

	generator := cfg.Generator
	if generator == nil {
		generator = ai.NewGateway(log)
	}

	sessionService := service.NewSessionService(db, roleCache, log)
	sceneService := service.NewSceneService(db, sessionService, log)
	notificationService := service.NewNotificationService(db, sessionService, log)
	historyService := service.NewHistoryService(db, sessionService, log)
	reviewService := service.NewReviewService(db, sessionService, notificationService, historyService, statusCache, log)

	checker := health.NewChecker(log, cfg.HealthCheckPeriod)
	checker.RegisterDatabaseCheck(func() error {
		return db.Exec("SELECT 1").Error
	})
	if redisClient != nil {
		checker.RegisterRedisCheck(redisClient.Ping)
	}

	return &Container{
		DB:                  db,
		Logger:              log,
		RoleCache:           roleCache,
		Redis:               redisClient,
		Generator:           generator,
		SessionService:      sessionService,
		SceneService:        sceneService,
		NotificationService: notificationService,
		HistoryService:      historyService,
		ReviewService:       reviewService,
		HealthChecker:       checker,
	}, nil
}
