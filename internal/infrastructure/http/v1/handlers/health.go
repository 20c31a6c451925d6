package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JosipBeDa/alchemy/internal/infrastructure/cache/redis"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/storage/mongodb"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/storage/postgres"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	pool  *postgres.Pool
	mongo *mongodb.Client
	cache *redis.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pool *postgres.Pool, mongo *mongodb.Client, cache *redis.Store) *HealthHandler {
	return &HealthHandler{pool: pool, mongo: mongo, cache: cache}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	checks := map[string]string{
		"postgres": "healthy",
		"mongo":    "healthy",
		"redis":    "healthy",
	}
	healthy := true

	if err := h.pool.Ping(ctx); err != nil {
		checks["postgres"] = "unhealthy: " + err.Error()
		healthy = false
	}
	if err := h.mongo.Ping(ctx); err != nil {
		checks["mongo"] = "unhealthy: " + err.Error()
		healthy = false
	}
	if err := h.cache.Ping(ctx); err != nil {
		checks["redis"] = "unhealthy: " + err.Error()
		healthy = false
	}

	status := http.StatusOK
	result := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		result = "error"
	}
	c.JSON(status, gin.H{
		"status": result,
		"checks": checks,
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	stat := h.pool.Stat()

	c.JSON(http.StatusOK, gin.H{
		"app":     "alchemy",
		"version": "0.1.0",
		"database": map[string]any{
			"total_conns":    stat.TotalConns(),
			"acquired_conns": stat.AcquiredConns(),
			"idle_conns":     stat.IdleConns(),
			"max_conns":      stat.MaxConns(),
		},
	})
}
