package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-programs/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-programs/internal/core/services"
)

type RouterDependencies struct {
	Tracker *services.TrackerService
	Redis   *redis.Client

	// StorageName and StoragePing describe the Storage Provider for /health.
	StorageName string
	StoragePing func(ctx context.Context) error

	AllowedOrigins []string
	RateLimit      middleware.RateLimit
	StartTime      time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	var mutating []gin.HandlerFunc
	if deps.Redis != nil && deps.RateLimit.Limit > 0 {
		mutating = append(mutating, middleware.RateLimiterMiddleware(deps.Redis, deps.RateLimit))
	}

	router.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()

		storageStatus := "connected"
		if deps.StoragePing != nil {
			if err := deps.StoragePing(ctx); err != nil {
				storageStatus = "unreachable"
			}
		}

		redisStatus := "disabled"
		if deps.Redis != nil {
			redisStatus = "connected"
			if deps.Redis.Ping(ctx).Err() != nil {
				redisStatus = "unreachable"
			}
		}

		statusCode := http.StatusOK
		if storageStatus == "unreachable" || redisStatus == "unreachable" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status":  "ok",
			"storage": gin.H{"backend": deps.StorageName, "status": storageStatus},
			"redis":   redisStatus,
			"uptime":  time.Since(deps.StartTime).String(),
		})
	})

	apiV1 := router.Group("/api/v1")

	NewProgressHandler(deps.Tracker).RegisterRoutes(apiV1, mutating...)
	NewDataHandler(deps.Tracker).RegisterRoutes(apiV1, mutating...)

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.ExposeHeaders = []string{"Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return config
}
