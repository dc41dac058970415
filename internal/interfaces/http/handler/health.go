package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/freely/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger checks a backing service
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunningChecker reports whether a background component is running
type RunningChecker interface {
	IsRunning() bool
}

// HealthHandler reports whether the API, its database and its event bus are up
type HealthHandler struct {
	db      Pinger
	events  RunningChecker
	version string
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, started: time.Now()}
}

// WithEvents adds the event bus to the check
func (h *HealthHandler) WithEvents(events RunningChecker) *HealthHandler {
	h.events = events
	return h
}

// Check returns 200 when the database answers and the event bus is running,
// 503 otherwise
//
//	GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{
		"status":   "healthy",
		"version":  h.version,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"time":     time.Now().UTC().Format(time.RFC3339),
		"database": "ok",
	}
	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		logger.L(c.Request.Context()).Warn("Health check failed", zap.Error(err))
		body["database"] = "error"
		status = http.StatusServiceUnavailable
	}
	if h.events != nil {
		body["events"] = "running"
		if !h.events.IsRunning() {
			body["events"] = "stopped"
			status = http.StatusServiceUnavailable
		}
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	c.JSON(status, body)
}
