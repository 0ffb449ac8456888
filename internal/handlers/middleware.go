package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	uuid2 "github.com/google/uuid"

	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

// SetupMiddleware sets up common middleware for the Gin router
func SetupMiddleware(router *gin.Engine, logger utils.Logger, allowedOrigins []string) {
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware(allowedOrigins))
	router.Use(gin.Recovery())

	// Context logger middleware (adds logger with request_id to context)
	router.Use(utils.ContextLogger(logger))
	router.Use(utils.LoggerMiddleware(logger))

	router.Use(SecurityMiddleware())
}

// SecurityMiddleware adds security headers. Exports are downloads, so no
// framing or sniffing is allowed on any response.
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// RequestIDMiddleware reuses the caller's X-Request-ID or generates one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid2.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// CORSMiddleware allows any origin without credentials when allowedOrigins is
// empty. Otherwise only listed origins are echoed back, with credentials.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowedOrigins) == 0:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(allowedOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Disposition, X-Request-ID")
		c.Header("Access-Control-Max-Age", "43200")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
