package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/session"
	"github.com/tsheet/timesheet/internal/utils"
	"github.com/tsheet/timesheet/pkg/response"
)

const (
	ContextUserID    = "user_id"
	ContextSessionID = "session_id"
	ContextOrgID     = "org_id"
	ContextRole      = "role"
	ContextProfile   = "profile"
	ContextState     = "session_state"
)

// AuthRequired is a middleware that checks for a valid JWT token
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextSessionID, claims.SessionID)
		c.Next()
	}
}

// ResolveSession runs the profile resolver for the token's session and stores
// the resulting state. Only a revoked or expired session aborts here; the
// other outcomes are left to ProfileRequired or the handler.
func ResolveSession(store session.Store, fetcher session.ProfileFetcher, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := session.NewResolver(
			session.StoreSource{Store: store, SessionID: GetSessionID(c)},
			fetcher,
			session.WithTimeout(timeout),
		)
		st := r.Refresh(c.Request.Context())
		r.Close()

		c.Set(ContextState, st)
		if st.Status == session.StatusUnauthenticated {
			abortUnauthorized(c, "session expired or signed out")
			return
		}
		if st.Status == session.StatusReady {
			actor := access.ActorFromProfile(st.Profile)
			c.Set(ContextProfile, st.Profile)
			c.Set(ContextOrgID, actor.OrgID)
			c.Set(ContextRole, actor.Role)
		}
		c.Next()
	}
}

// ProfileRequired rejects requests whose session did not resolve to a profile.
func ProfileRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, ok := GetState(c)
		if !ok {
			abortUnauthorized(c, "session not resolved")
			return
		}
		switch st.Status {
		case session.StatusReady:
			c.Next()
		case session.StatusProfileMissing, session.StatusFault:
			response.Abort(c, st.Fault)
		default:
			abortUnauthorized(c, "session expired or signed out")
		}
	}
}

// AdminRequired is a middleware that checks for admin role
func AdminRequired() gin.HandlerFunc {
	return RoleRequired(access.RoleAdmin)
}

// RoleRequired admits actors holding one of roles.
func RoleRequired(roles ...access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		for _, r := range roles {
			if !actor.IsZero() && actor.Role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient role")
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, response.Response{Code: 401, Message: msg})
}

func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

func GetState(c *gin.Context) (session.State, bool) {
	v, ok := c.Get(ContextState)
	if !ok {
		return session.State{}, false
	}
	st, ok := v.(session.State)
	return st, ok
}

// GetProfile returns the resolved profile, or nil before ResolveSession ran.
func GetProfile(c *gin.Context) *models.Profile {
	if v, ok := c.Get(ContextProfile); ok {
		if p, ok := v.(*models.Profile); ok {
			return p
		}
	}
	return nil
}

// GetActor returns the zero Actor when no profile was resolved.
func GetActor(c *gin.Context) access.Actor {
	return access.ActorFromProfile(GetProfile(c))
}
