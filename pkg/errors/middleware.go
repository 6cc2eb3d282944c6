package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"shadowrun-gm-dashboard/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler returns a middleware that converts the first error attached
// to the context into the standard envelope:
//
//	{"status": "error", "error": <message>, "error_code": <code>}
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := FromError(c.Errors[0].Err)

		log := logger.FromContext(c)
		log.Error("Request error",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"status_code", appErr.StatusCode,
			"error_code", appErr.Code,
			"message", appErr.Message,
		)

		c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
			"status":     "error",
			"error":      appErr.Message,
			"error_code": appErr.Code,
		})
	}
}

// RecoveryWithLogger returns a middleware that recovers from panics, logs
// the stack trace with the request ID, and responds with the error envelope
func RecoveryWithLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())

				log := logger.FromContext(c)
				log.Error("Panic recovered",
					"error", fmt.Sprintf("%v", r),
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status":     "error",
					"error":      "The server encountered an unexpected error",
					"error_code": CodeInternal,
				})
			}
		}()

		c.Next()
	}
}
