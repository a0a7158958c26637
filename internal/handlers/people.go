package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/middleware"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/services"
	"github.com/tsheet/timesheet/pkg/response"
)

type PeopleHandler struct {
	profileService *services.ProfileService
	authService    *services.AuthService
}

func NewPeopleHandler(profileService *services.ProfileService, authService *services.AuthService) *PeopleHandler {
	return &PeopleHandler{profileService: profileService, authService: authService}
}

// personView is one row of the people directory with the caller's edit rights.
type personView struct {
	models.Profile
	DisplayName    string         `json:"display_name"`
	Initials       string         `json:"initials"`
	Active         bool           `json:"active"`
	EditableFields []access.Field `json:"editable_fields"`
}

// List returns the profiles visible to the caller
// GET /api/people
func (h *PeopleHandler) List(c *gin.Context) {
	var req services.ProfileListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	actor := middleware.GetActor(c)
	rows, err := h.profileService.List(c.Request.Context(), actor, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]personView, 0, len(rows))
	for i := range rows {
		items = append(items, personView{
			Profile:        rows[i],
			DisplayName:    access.DisplayName(rows[i].FullName),
			Initials:       access.Initials(rows[i].FullName),
			Active:         access.IsActive(rows[i].IsActive),
			EditableFields: access.EditableProfileFields(actor, &rows[i]).Slice(),
		})
	}
	response.Success(c, gin.H{"items": items, "total": len(items)})
}

// Update applies a partial edit to one profile
// PUT /api/people/:id
func (h *PeopleHandler) Update(c *gin.Context) {
	var req services.ProfilePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.profileService.Update(c.Request.Context(), middleware.GetActor(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// Provision creates an account and profile in the caller's org
// POST /api/people
func (h *PeopleHandler) Provision(c *gin.Context) {
	var req services.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.authService.Provision(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}
