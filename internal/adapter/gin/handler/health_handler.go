package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is a backing service whose availability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	deps    map[string]Pinger
	timeout time.Duration
	log     *zap.Logger
}

// NewHealthHandler creates a HealthHandler. Nil dependencies are skipped.
func NewHealthHandler(deps map[string]Pinger, log *zap.Logger) *HealthHandler {
	checked := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			checked[name] = p
		}
	}
	return &HealthHandler{
		deps:    checked,
		timeout: 2 * time.Second,
		log:     log,
	}
}

// Health handles GET /health. It never touches dependencies.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			h.log.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"checks": failed,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
