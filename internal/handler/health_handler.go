package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// EngineProbe reports whether the handwriting engine can run.
type EngineProbe interface {
	Available(ctx context.Context) bool
}

// Pinger checks the record store.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	engine EngineProbe // optional
	db     Pinger      // optional
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(engine EngineProbe, db Pinger) *HealthHandler {
	return &HealthHandler{engine: engine, db: db}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"handwriting_engine": h.engine != nil && h.engine.Available(c.Request.Context()),
	})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context(), 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database not reachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
