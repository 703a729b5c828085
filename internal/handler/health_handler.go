package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe checks one dependency
type Probe func(ctx context.Context) error

// HealthHandler health check handler
type HealthHandler struct {
	service  string
	database Probe
	redis    Probe
}

// NewHealthHandler creates a health handler; redis may be nil
func NewHealthHandler(service string, database, redis Probe) *HealthHandler {
	return &HealthHandler{
		service:  service + "-service",
		database: database,
		redis:    redis,
	}
}

// Health reports the service and its dependencies
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"status":    "healthy",
		"service":   h.service,
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.database(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "disconnected"
		body["error"] = err.Error()
	}
	if h.redis != nil {
		body["redis"] = "connected"
		if err := h.redis(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["redis"] = "disconnected"
		}
	}

	c.JSON(status, body)
}
