package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/session"
	"gorm.io/gorm"
)

// Pinger is a backing service the health check probes, such as Redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the state of the database, the session backend and
// the live session streams.
type HealthHandler struct {
	db       *gorm.DB
	hub      *session.Hub
	sessions Pinger
}

// NewHealthHandler builds the handler. sessions may be nil when sessions are
// kept in memory.
func NewHealthHandler(db *gorm.DB, hub *session.Hub, sessions Pinger) *HealthHandler {
	return &HealthHandler{db: db, hub: hub, sessions: sessions}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	overall := "healthy"
	status := 200

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall, status = "unhealthy", 503
	}

	sessionStatus := "memory"
	if h.sessions != nil {
		sessionStatus = "ok (redis)"
		if err := h.sessions.Ping(ctx); err != nil {
			sessionStatus = "error: " + err.Error()
			overall, status = "unhealthy", 503
		}
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "timesheet",
		"components": gin.H{
			"database":        dbStatus,
			"sessions":        sessionStatus,
			"session_streams": h.hub.ClientCount(),
		},
	})
}
