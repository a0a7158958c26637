package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/session"
	"gorm.io/gorm"
)

var startTime = time.Now()

// MetricsHandler exposes process, pool and tenant gauges in Prometheus text format.
type MetricsHandler struct {
	db  *gorm.DB
	hub *session.Hub
}

func NewMetricsHandler(db *gorm.DB, hub *session.Hub) *MetricsHandler {
	return &MetricsHandler{db: db, hub: hub}
}

// GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	writeGauge(&b, "timesheet_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "timesheet_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "timesheet_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))

	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		writeGauge(&b, "timesheet_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
		writeGauge(&b, "timesheet_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
	}

	writeGauge(&b, "timesheet_session_streams", "Number of open session event streams", float64(h.hub.ClientCount()))

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)
	var orgs, profiles, activeProfiles, projects, activeProjects, memberships int64
	db.Model(&models.Organization{}).Count(&orgs)
	db.Model(&models.Profile{}).Count(&profiles)
	db.Model(&models.Profile{}).Where("is_active IS NULL OR is_active = ?", true).Count(&activeProfiles)
	db.Model(&models.Project{}).Count(&projects)
	db.Model(&models.Project{}).Where("is_active IS NULL OR is_active = ?", true).Count(&activeProjects)
	db.Model(&models.Membership{}).Where("is_active IS NULL OR is_active = ?", true).Count(&memberships)

	writeGauge(&b, "timesheet_organizations_total", "Number of organizations", float64(orgs))
	writeGauge(&b, "timesheet_profiles_total", "Number of profiles", float64(profiles))
	writeGauge(&b, "timesheet_profiles_active", "Number of active profiles", float64(activeProfiles))
	writeGauge(&b, "timesheet_projects_total", "Number of projects", float64(projects))
	writeGauge(&b, "timesheet_projects_active", "Number of active projects", float64(activeProjects))
	writeGauge(&b, "timesheet_memberships_active", "Number of active memberships", float64(memberships))

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
