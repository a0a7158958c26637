package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/middleware"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/services"
	"github.com/tsheet/timesheet/internal/session"
	"github.com/tsheet/timesheet/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		authError(c, err)
		return
	}
	response.Success(c, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates the refresh token and issues a new access token
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		authError(c, err)
		return
	}
	response.Success(c, pair)
}

// Logout revokes the caller's session
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetUserID(c), middleware.GetSessionID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out successfully"})
}

type meResponse struct {
	Status      session.Status   `json:"status"`
	Profile     *models.Profile  `json:"profile"`
	DisplayName string           `json:"display_name"`
	Initials    string           `json:"initials"`
	RoleLabel   string           `json:"role_label"`
	Nav         []access.NavItem `json:"nav"`
}

// Me reports the resolver state of the caller's session
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	st, ok := middleware.GetState(c)
	if !ok {
		response.Unauthorized(c, "session not resolved")
		return
	}

	switch st.Status {
	case session.StatusReady:
		role := access.ParseRole(st.Profile.Role)
		response.Success(c, meResponse{
			Status:      st.Status,
			Profile:     st.Profile,
			DisplayName: access.DisplayName(st.Profile.FullName),
			Initials:    access.Initials(st.Profile.FullName),
			RoleLabel:   role.Label(),
			Nav:         access.NavItems(role),
		})
	case session.StatusProfileMissing, session.StatusFault:
		response.Error(c, st.Fault)
	default:
		response.Unauthorized(c, "signed out")
	}
}

func authError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidRefresh):
		_ = c.Error(err)
		response.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrAccountDisabled):
		_ = c.Error(err)
		response.Forbidden(c, err.Error())
	default:
		response.Error(c, err)
	}
}
