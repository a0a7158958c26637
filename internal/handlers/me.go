package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/middleware"
	"github.com/tsheet/timesheet/internal/prefs"
	"github.com/tsheet/timesheet/internal/services"
	"github.com/tsheet/timesheet/pkg/response"
)

const prefsCookieMaxAge = 365 * 24 * 60 * 60

// MeHandler serves the caller's own profile, navigation and appearance.
type MeHandler struct {
	profileService    *services.ProfileService
	preferenceService *services.PreferenceService
}

func NewMeHandler(profileService *services.ProfileService, preferenceService *services.PreferenceService) *MeHandler {
	return &MeHandler{profileService: profileService, preferenceService: preferenceService}
}

// Nav returns the sections the caller's role may open
// GET /api/me/nav
func (h *MeHandler) Nav(c *gin.Context) {
	response.Success(c, access.NavItems(middleware.GetActor(c).Role))
}

// UpdateProfile edits the caller's personal fields
// PUT /api/me/profile
func (h *MeHandler) UpdateProfile(c *gin.Context) {
	var req services.MyProfilePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.profileService.UpdateMine(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// CompleteOnboarding marks the onboarding flow as done
// POST /api/me/onboarding
func (h *MeHandler) CompleteOnboarding(c *gin.Context) {
	profile, err := h.profileService.CompleteOnboarding(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

type preferencesResponse struct {
	Preferences prefs.Preferences `json:"preferences"`
	Accents     []prefs.Accent    `json:"accents"`
	Densities   []prefs.Density   `json:"densities"`
	Radii       []prefs.Radius    `json:"radii"`
}

func newPreferencesResponse(p prefs.Preferences) preferencesResponse {
	return preferencesResponse{
		Preferences: p,
		Accents:     prefs.Accents(),
		Densities:   prefs.Densities(),
		Radii:       prefs.RadiusTokens(),
	}
}

// GetPreferences returns the effective appearance preferences
// GET /api/me/preferences
func (h *MeHandler) GetPreferences(c *gin.Context) {
	p := h.preferenceService.Effective(c.Request.Context(), middleware.GetProfile(c), cookieSink(c))
	response.Success(c, newPreferencesResponse(p))
}

// SavePreferences stores new appearance preferences on the profile
// PUT /api/me/preferences
func (h *MeHandler) SavePreferences(c *gin.Context) {
	var req prefs.Preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile := middleware.GetProfile(c)
	refresh := func(ctx context.Context) error {
		fresh, err := h.profileService.FetchProfile(ctx, profile.ID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return faults.ProfileMissing()
		}
		c.Set(middleware.ContextProfile, fresh)
		return nil
	}

	saved, err := h.preferenceService.Save(c.Request.Context(), profile, req, cookieSink(c), refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newPreferencesResponse(saved))
}

// cookieSink hands the applied preferences to the browser, as a cookie the
// page reads before its first paint and as a response header.
func cookieSink(c *gin.Context) prefs.Sink {
	return prefs.SinkFunc(func(p prefs.Preferences) {
		v := p.String()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(prefs.CacheKey, v, prefsCookieMaxAge, "/", "", false, false)
		c.Header(middleware.PrefsHeader, v)
	})
}
