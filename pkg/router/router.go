package router

import (
	"time"

	"shadowrun-gm-dashboard/backend/internal/api"
	"shadowrun-gm-dashboard/backend/pkg/config"
	"shadowrun-gm-dashboard/backend/pkg/di"
	"shadowrun-gm-dashboard/backend/pkg/errors"
	"shadowrun-gm-dashboard/backend/pkg/logger"
	"shadowrun-gm-dashboard/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.Security.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.Security.TrustedProxies)
	}

	// Logger middleware first so every request is captured
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit:          rate.Limit(cfg.Security.RateLimit),
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: time.Hour,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	sessionHandler := api.NewSessionHandler(r.Container.SessionService)
	sceneHandler := api.NewSceneHandler(r.Container.SceneService)
	reviewHandler := api.NewReviewHandler(r.Container.ReviewService, r.Container.SessionService, r.Container.Generator)
	notificationHandler := api.NewNotificationHandler(r.Container.NotificationService, r.Container.HistoryService)

	r.setupHealthRoutes()

	apiRoutes := r.Engine.Group("/api")
	{
		apiRoutes.POST("/session", sessionHandler.CreateSession)

		// Player poll lives outside the session group: callers only hold
		// the opaque response id
		apiRoutes.GET("/pending-response/:responseId/status", reviewHandler.GetStatus)

		sessionRoutes := apiRoutes.Group("/session/:sessionId")
		{
			sessionRoutes.GET("", sessionHandler.GetSession)
			sessionRoutes.POST("/join", sessionHandler.JoinSession)

			sessionRoutes.GET("/scene", sceneHandler.GetScene)
			sessionRoutes.POST("/scene", sceneHandler.SetScene)
			sessionRoutes.GET("/entities", sceneHandler.ListEntities)
			sessionRoutes.POST("/entities", sceneHandler.UpsertEntity)
			sessionRoutes.DELETE("/entities/:entityId", sceneHandler.DeleteEntity)

			sessionRoutes.POST("/llm-with-review", reviewHandler.LLMWithReview)
			sessionRoutes.GET("/pending-responses", reviewHandler.ListPending)
			sessionRoutes.POST("/pending-response/:responseId/review", reviewHandler.Review)
			sessionRoutes.GET("/player/:userId/approved-responses", reviewHandler.ApprovedResponses)

			sessionRoutes.GET("/dm/notifications", notificationHandler.ListUnread)
			sessionRoutes.POST("/dm/notifications/:notificationId/mark-read", notificationHandler.MarkRead)
			sessionRoutes.GET("/review-history", notificationHandler.ReviewHistory)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
