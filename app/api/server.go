package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	// Gin mode can be controlled via the GIN_MODE environment variable
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	api.Use(authMiddleware(handler))
	{
		api.GET("/scheduler", handler.GetSchedulerStatus)
		api.POST("/scheduler", handler.PostSchedulerAction)

		api.POST("/content/fetch", handler.FetchContent)
		api.POST("/content/process", handler.ProcessContent)

		api.GET("/digest", handler.PreviewDigest)
		api.POST("/digest", handler.SendDigest)
		api.POST("/digest/test", handler.SendTestEmail)
		api.GET("/digests", handler.ListDigests)
		api.GET("/digests/:id", handler.GetDigest)

		api.GET("/sources", handler.ListSources)
		api.POST("/sources", handler.CreateSource)
		api.DELETE("/sources/:id", handler.DeleteSource)

		api.GET("/topics", handler.ListTopics)
		api.POST("/topics", handler.CreateTopic)
		api.DELETE("/topics/:id", handler.DeleteTopic)

		api.GET("/profile", handler.GetProfile)
		api.PUT("/profile", handler.UpdateProfile)
	}

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware resolves the caller's API key to a user identity and stores
// the user ID on the request context.
func authMiddleware(handler *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		user, err := handler.users.GetUserByAPIKey(c.Request.Context(), providedKey)
		if err != nil || user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
