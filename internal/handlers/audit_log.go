package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/middleware"
	"github.com/tsheet/timesheet/internal/services"
	"github.com/tsheet/timesheet/pkg/response"
)

type AuditLogHandler struct {
	auditService *services.AuditService
}

func NewAuditLogHandler(auditService *services.AuditService) *AuditLogHandler {
	return &AuditLogHandler{auditService: auditService}
}

// GET /api/admin/audit-logs
func (h *AuditLogHandler) List(c *gin.Context) {
	var req services.AuditLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.auditService.List(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GET /api/admin/audit-logs/modules
func (h *AuditLogHandler) GetModules(c *gin.Context) {
	modules, err := h.auditService.GetModules(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"modules": modules})
}
