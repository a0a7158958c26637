package handlers

import (
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tsheet/timesheet/internal/session"
	"github.com/tsheet/timesheet/internal/utils"
	"github.com/tsheet/timesheet/pkg/logger"
	"github.com/tsheet/timesheet/pkg/response"
)

// EventsHandler streams the caller's session state over Server-Sent Events.
// Every auth event for the caller re-runs the resolver and the new state is
// pushed to the page.
type EventsHandler struct {
	hub     *session.Hub
	store   session.Store
	fetcher session.ProfileFetcher
	timeout time.Duration
}

func NewEventsHandler(hub *session.Hub, store session.Store, fetcher session.ProfileFetcher, timeout time.Duration) *EventsHandler {
	return &EventsHandler{hub: hub, store: store, fetcher: fetcher, timeout: timeout}
}

// StreamSession handles GET /api/events/session. EventSource cannot send
// headers, so the access token may also come as ?token=.
func (h *EventsHandler) StreamSession(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if token == "" {
		response.Unauthorized(c, "Unauthorized")
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID, claims.UserID)
	defer h.hub.Unsubscribe(clientID)

	states := make(chan session.State, 8)
	resolver := session.NewResolver(
		session.StoreSource{Store: h.store, SessionID: claims.SessionID},
		h.fetcher,
		session.WithTimeout(h.timeout),
		session.OnChange(func(st session.State) {
			if st.Loading {
				return
			}
			select {
			case states <- st:
			default:
				logger.Warn().Str("client_id", clientID).Msg("session stream backlog full, dropping state")
			}
		}),
	)
	defer resolver.Close()

	ctx := c.Request.Context()
	go resolver.Watch(ctx, events)

	logger.Info().Str("client_id", clientID).Str("user_id", claims.UserID).
		Int("total", h.hub.ClientCount()).Msg("session stream connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case st := <-states:
			c.SSEvent("state", st)
			return st.Status != session.StatusUnauthenticated
		case <-ctx.Done():
			logger.Info().Str("client_id", clientID).Msg("session stream disconnected")
			return false
		}
	})
}
