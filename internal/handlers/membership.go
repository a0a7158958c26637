package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/middleware"
	"github.com/tsheet/timesheet/internal/services"
	"github.com/tsheet/timesheet/pkg/response"
)

type MembershipHandler struct {
	membershipService *services.MembershipService
}

func NewMembershipHandler(membershipService *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// List returns the memberships of one profile; the caller's own by default
// GET /api/memberships?profile_id=
func (h *MembershipHandler) List(c *gin.Context) {
	actor := middleware.GetActor(c)
	profileID := c.DefaultQuery("profile_id", actor.ID)

	rows, err := h.membershipService.ListForProfile(c.Request.Context(), actor, profileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rows)
}

type assignmentRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	ProfileID string `json:"profile_id" binding:"required"`
	Assigned  *bool  `json:"assigned"`
}

// Set assigns or unassigns a profile on a project
// PUT /api/memberships
func (h *MembershipHandler) Set(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Assigned == nil {
		response.BadRequest(c, "assigned is required")
		return
	}

	m, err := h.membershipService.SetAssignment(c.Request.Context(), middleware.GetActor(c), req.ProjectID, req.ProfileID, *req.Assigned)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, m)
}

// Toggle flips a membership, inserting an active one when none exists
// POST /api/memberships/toggle
func (h *MembershipHandler) Toggle(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.membershipService.Toggle(c.Request.Context(), middleware.GetActor(c), req.ProjectID, req.ProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, m)
}
