package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/session"
	"github.com/tsheet/timesheet/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("handlers-test-secret")
}

type streamFixture struct {
	hub    *session.Hub
	store  *session.MemoryStore
	server *httptest.Server
}

func newStreamFixture(t *testing.T) *streamFixture {
	t.Helper()
	f := &streamFixture{hub: session.NewHub(), store: session.NewMemoryStore()}
	require.NoError(t, f.store.Save(context.Background(), session.Session{
		ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour),
	}))

	fetcher := session.FetcherFunc(func(_ context.Context, id string) (*models.Profile, error) {
		if id == "u1" {
			return &models.Profile{ID: "u1", OrgID: "o1", Role: models.RoleContractor, FullName: "Una"}, nil
		}
		return nil, nil
	})
	h := NewEventsHandler(f.hub, f.store, fetcher, time.Second)

	r := gin.New()
	r.GET("/api/events/session", h.StreamSession)
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// nextState reads SSE lines until the next data payload.
func nextState(t *testing.T, rd *bufio.Reader) gjson.Result {
	t.Helper()
	for {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		if payload, ok := strings.CutPrefix(strings.TrimSpace(line), "data:"); ok {
			return gjson.Parse(strings.TrimSpace(payload))
		}
	}
}

func TestStreamSession_FollowsAuthEvents(t *testing.T) {
	f := newStreamFixture(t)
	token, err := utils.GenerateToken("u1", "s1", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", f.server.URL+"/api/events/session?token="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"),
		"Content-Type = %q", resp.Header.Get("Content-Type"))
	rd := bufio.NewReader(resp.Body)

	first := nextState(t, rd)
	assert.Equal(t, "ready", first.Get("status").String())
	assert.Equal(t, "Una", first.Get("profile.full_name").String())
	assert.Equal(t, 1, f.hub.ClientCount())

	require.NoError(t, f.store.Revoke(context.Background(), "s1"))
	f.hub.Publish(session.Event{Kind: session.EventSignedOut, UserID: "u1", SessionID: "s1"})

	second := nextState(t, rd)
	assert.Equal(t, "unauthenticated", second.Get("status").String())
	assert.False(t, second.Get("profile").Exists())

	assert.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStreamSession_RequiresToken(t *testing.T) {
	f := newStreamFixture(t)

	for _, url := range []string{
		f.server.URL + "/api/events/session",
		f.server.URL + "/api/events/session?token=bogus",
	} {
		resp, err := http.Get(url)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, url)
	}
}
