package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/middleware"
	"github.com/tsheet/timesheet/internal/services"
	"github.com/tsheet/timesheet/pkg/response"
)

type ProjectHandler struct {
	projectService    *services.ProjectService
	membershipService *services.MembershipService
}

func NewProjectHandler(projectService *services.ProjectService, membershipService *services.MembershipService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, membershipService: membershipService}
}

// List returns the projects visible to the caller
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	actor := middleware.GetActor(c)
	items, err := h.projectService.List(c.Request.Context(), actor, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"items":      items,
		"total":      len(items),
		"can_manage": access.CanManageProjects(actor),
	})
}

// Counts returns total/active/inactive over the visible projects
// GET /api/projects/counts
func (h *ProjectHandler) Counts(c *gin.Context) {
	counts, err := h.projectService.Counts(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, counts)
}

type createProjectRequest struct {
	Name      string `json:"name"`
	WeekStart string `json:"week_start"`
}

// Create creates a new project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.GetActor(c), req.Name, req.WeekStart)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetActive activates or deactivates a project
// PUT /api/projects/:id/active
func (h *ProjectHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.SetActive(c.Request.Context(), middleware.GetActor(c), c.Param("id"), *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

type weekStartRequest struct {
	WeekStart string `json:"week_start"`
}

// SetWeekStart changes the first day of the project's timesheet week
// PUT /api/projects/:id/week-start
func (h *ProjectHandler) SetWeekStart(c *gin.Context) {
	var req weekStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.SetWeekStart(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.WeekStart)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename renames a project
// PUT /api/projects/:id/name
func (h *ProjectHandler) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Rename(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Members lists the memberships of one project with profile names
// GET /api/projects/:id/members
func (h *ProjectHandler) Members(c *gin.Context) {
	rows, err := h.membershipService.ListForProject(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	type member struct {
		MembershipID string `json:"membership_id"`
		ProfileID    string `json:"profile_id"`
		DisplayName  string `json:"display_name"`
		Initials     string `json:"initials"`
		Active       bool   `json:"active"`
	}
	items := make([]member, 0, len(rows))
	for _, m := range rows {
		name := ""
		if m.Profile != nil {
			name = m.Profile.FullName
		}
		items = append(items, member{
			MembershipID: m.ID,
			ProfileID:    m.ProfileID,
			DisplayName:  access.DisplayName(name),
			Initials:     access.Initials(name),
			Active:       access.IsActive(m.IsActive),
		})
	}
	response.Success(c, items)
}
