package router

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers the ping and health endpoints
func (r *Router) setupHealthRoutes() {
	r.Engine.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Shadowrun backend is alive.",
		})
	})

	healthHandler := func(c *gin.Context) {
		components := r.Container.HealthChecker.GetStatus()

		status := http.StatusOK
		if !r.Container.HealthChecker.IsSystemHealthy() {
			status = http.StatusServiceUnavailable
		}

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		c.JSON(status, gin.H{
			"status":     "ok",
			"version":    os.Getenv("APP_VERSION"),
			"timestamp":  time.Now().Format(time.RFC3339),
			"components": components,
			"memory": gin.H{
				"alloc_mb":  memStats.Alloc / 1024 / 1024,
				"sys_mb":    memStats.Sys / 1024 / 1024,
				"gc_cycles": memStats.NumGC,
			},
		})
	}

	r.Engine.GET("/health", healthHandler)
	r.Engine.GET("/api/health", healthHandler)
}
