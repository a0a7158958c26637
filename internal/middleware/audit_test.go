package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tsheet/timesheet/internal/config"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/services"
	"github.com/tsheet/timesheet/internal/utils"
	"gorm.io/gorm/logger"
)

func TestParseRouteInfo(t *testing.T) {
	tests := []struct {
		path, method   string
		module, action string
	}{
		{"/api/projects", "POST", "Projects", "Create"},
		{"/api/projects/:id/week-start", "PUT", "Projects", "Update week start"},
		{"/api/projects/:id", "DELETE", "Projects", "Delete"},
		{"/api/memberships/toggle", "POST", "Memberships", "Create toggle"},
		{"/api/people/:id", "PUT", "People", "Update"},
		{"", "POST", "Unknown", "Create"},
	}
	for _, tt := range tests {
		module, action := parseRouteInfo(tt.path, tt.method)
		if module != tt.module || action != tt.action {
			t.Errorf("parseRouteInfo(%q, %s) = %q, %q; expected %q, %q",
				tt.path, tt.method, module, action, tt.module, tt.action)
		}
	}
}

func TestMaskSensitiveFields(t *testing.T) {
	body := `{"email":"a@b.c","password":"hunter22","nested":{"refresh_token":"abc.def","n":1},"list":[1,2]}`
	masked := maskSensitiveFields(body)

	if strings.Contains(masked, "hunter22") || strings.Contains(masked, "abc.def") {
		t.Fatalf("secrets leaked: %s", masked)
	}
	if gjson.Get(masked, "password").String() != "***" {
		t.Errorf("password = %q", gjson.Get(masked, "password").String())
	}
	if gjson.Get(masked, "nested.refresh_token").String() != "***" {
		t.Errorf("nested token not masked: %s", masked)
	}
	if gjson.Get(masked, "email").String() != "a@b.c" || gjson.Get(masked, "nested.n").Int() != 1 {
		t.Errorf("plain fields changed: %s", masked)
	}
	if gjson.Get(masked, "list.#").Int() != 2 {
		t.Errorf("array changed: %s", masked)
	}

	for _, raw := range []string{"", "not json", `["password"]`} {
		if got := maskSensitiveFields(raw); got != raw {
			t.Errorf("maskSensitiveFields(%q) = %q, expected unchanged", raw, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if truncate("short", 10) != "short" {
		t.Error("short strings must pass through")
	}
	if got := truncate(strings.Repeat("x", 20), 10); got != strings.Repeat("x", 10)+"...[truncated]" {
		t.Errorf("truncate() = %q", got)
	}
}

func TestAuditLog_RecordsWrites(t *testing.T) {
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:middleware_audit?mode=memory&cache=shared",
	}, logger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	services.InitAuditLogger(db)
	t.Cleanup(func() { services.InitAuditLogger(nil) })

	p := models.Profile{ID: "u1", OrgID: "o1", Role: models.RoleAdmin}
	router := gin.New()
	authed := router.Group("/api",
		AuthRequired(), ResolveSession(liveStore(t, "s1", "u1"), profiles(p), time.Second), ProfileRequired(), AuditLog())
	authed.GET("/projects", func(c *gin.Context) { c.Status(http.StatusOK) })
	authed.POST("/projects", func(c *gin.Context) { c.Status(http.StatusCreated) })
	authed.PUT("/projects/:id/name", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	token, _ := utils.GenerateToken("u1", "s1", time.Hour)
	send := func(method, path, body string) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
	}
	send("GET", "/api/projects", "")
	send("POST", "/api/projects", `{"name":"Apollo","secret":"s3"}`)
	send("PUT", "/api/projects/p1/name", `{"name":"A"}`)

	var rows []models.AuditLog
	if err := db.Order("id").Find(&rows).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 audit rows (writes only), got %d", len(rows))
	}
	if rows[0].OrgID != "o1" || rows[0].ActorID == nil || *rows[0].ActorID != "u1" {
		t.Errorf("row actor/org = %v/%q", rows[0].ActorID, rows[0].OrgID)
	}
	if rows[0].Level != "info" || rows[0].Module != "Projects" || rows[0].Action != "Create" {
		t.Errorf("first row = %+v", rows[0])
	}
	if strings.Contains(rows[0].Extra, "s3") {
		t.Errorf("secret leaked into audit extra: %s", rows[0].Extra)
	}
	if rows[1].Level != "warning" || rows[1].Action != "Update name" {
		t.Errorf("second row = %+v", rows[1])
	}
}
