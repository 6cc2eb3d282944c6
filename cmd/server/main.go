package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shadowrun-gm-dashboard/backend/internal/models"
	"shadowrun-gm-dashboard/backend/pkg/config"
	"shadowrun-gm-dashboard/backend/pkg/di"
	"shadowrun-gm-dashboard/backend/pkg/logger"
	"shadowrun-gm-dashboard/backend/pkg/router"
	"shadowrun-gm-dashboard/backend/pkg/secrets"
	"shadowrun-gm-dashboard/backend/shared/observability"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"))

	shutdownTracing := observability.SetupTracing("shadowrun-gm-backend")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics()

	if err := secrets.Init(log); err != nil {
		log.LogError(err, "Failed to initialize secrets manager")
		os.Exit(1)
	}

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.Session{},
		&models.UserRole{},
		&models.Scene{},
		&models.Entity{},
		&models.PendingResponse{},
		&models.DmNotification{},
		&models.ReviewHistory{},
	); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	diConfig := di.DefaultConfig()
	diConfig.LoggerConfig = logConfig

	container, err := di.New(db, diConfig)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	container.HealthChecker.Start()

	r := router.New(container)
	r.SetupRoutes()

	if cfg.OpenAPISchemaPath != "" {
		r.AddOpenAPIValidation(cfg.OpenAPISchemaPath)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout + cfg.LLM.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
