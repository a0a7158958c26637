package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tsheet/timesheet/internal/services"
)

const maxAuditBody = 2000

var sensitiveKeys = []string{"password", "secret", "token", "api_key", "apikey"}

// AuditLog records write operations to the audit log once the handler ran.
// It must sit after ResolveSession so the actor and org are known.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			body = truncate(maskSensitiveFields(string(raw)), maxAuditBody)
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)
		entry := services.AuditEntry{
			OrgID:     c.GetString(ContextOrgID),
			ActorID:   GetUserID(c),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		extra := map[string]any{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   body,
		}
		message := formatAuditMessage(entry.ActorID, method, c.Request.URL.Path, status)

		if status >= http.StatusBadRequest {
			services.LogWarning(entry, module, action, message, extra)
			return
		}
		services.LogInfo(entry, module, action, message, extra)
	}
}

// parseRouteInfo maps a route pattern to a module and action, e.g.
// "/api/projects/:id/week-start" + PUT gives ("Projects", "Update week start").
func parseRouteInfo(fullPath, method string) (module, action string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(fullPath, "/api/"), "/"), "/")
	module = humanize(segments[0])
	if module == "" {
		module = "Unknown"
	}

	switch method {
	case http.MethodPost:
		action = "Create"
	case http.MethodPut:
		action = "Update"
	case http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}

	if len(segments) > 1 {
		last := segments[len(segments)-1]
		if !strings.HasPrefix(last, ":") {
			action += " " + strings.ToLower(humanize(last))
		}
	}
	return module, action
}

func humanize(segment string) string {
	s := strings.ReplaceAll(segment, "-", " ")
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatAuditMessage(actorID, method, path string, status int) string {
	outcome := "OK"
	if status >= http.StatusBadRequest {
		outcome = "Failed"
	}
	if actorID == "" {
		actorID = "anonymous"
	}
	return "[Audit] " + actorID + " " + method + " " + path + " -> " + outcome
}

// maskSensitiveFields replaces the value of every credential-like key in a
// JSON object body, at any depth. Non-object bodies are returned unchanged.
func maskSensitiveFields(body string) string {
	if !gjson.Valid(body) {
		return body
	}
	return maskObject(gjson.Parse(body))
}

func maskObject(obj gjson.Result) string {
	if !obj.IsObject() {
		return obj.Raw
	}
	out := make(map[string]json.RawMessage)
	obj.ForEach(func(key, value gjson.Result) bool {
		switch {
		case isSensitive(key.String()):
			out[key.String()] = json.RawMessage(`"***"`)
		case value.IsObject():
			out[key.String()] = json.RawMessage(maskObject(value))
		default:
			out[key.String()] = json.RawMessage(value.Raw)
		}
		return true
	})
	b, err := json.Marshal(out)
	if err != nil {
		return obj.Raw
	}
	return string(b)
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...[truncated]"
}
