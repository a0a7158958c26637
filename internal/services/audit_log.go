package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/pkg/logger"
	"gorm.io/gorm"
)

var globalDB *gorm.DB

func InitAuditLogger(db *gorm.DB) {
	globalDB = db
}

// AuditEntry identifies who did something and from where.
type AuditEntry struct {
	OrgID     string
	ActorID   string
	IP        string
	UserAgent string
}

func LogInfo(e AuditEntry, module, action, message string, extra any) {
	writeLog("info", e, module, action, message, extra)
}

func LogWarning(e AuditEntry, module, action, message string, extra any) {
	writeLog("warning", e, module, action, message, extra)
}

func LogError(e AuditEntry, module, action, message string, extra any) {
	writeLog("error", e, module, action, message, extra)
}

func writeLog(level string, e AuditEntry, module, action, message string, extra any) {
	if globalDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.AuditLog{
		OrgID:     e.OrgID,
		ActorID:   models.String(e.ActorID),
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		IP:        e.IP,
		UserAgent: e.UserAgent,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	if err := globalDB.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("module", module).Str("action", action).Msg("audit log write failed")
	}
}

type AuditService struct {
	db        *gorm.DB
	scheduler *cron.Cron
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

type AuditLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type AuditLogListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []models.AuditLog `json:"items"`
}

// List returns the actor's org audit trail, newest first. Admin only.
func (s *AuditService) List(ctx context.Context, actor access.Actor, req *AuditLogListRequest) (*AuditLogListResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("org_id = ?", actor.OrgID)

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, faults.QueryOn("Audit log", err)
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, faults.QueryOn("Audit log", err)
	}

	return &AuditLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

func (s *AuditService) GetModules(ctx context.Context, actor access.Actor) ([]string, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	var modules []string
	if err := s.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("org_id = ?", actor.OrgID).
		Distinct("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes logs older than retentionDays and returns how many
// rows went. A non-positive retention disables cleanup.
func (s *AuditService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// Sweeper is extra housekeeping run on the cleanup schedule, such as
// dropping expired in-memory sessions. It returns how many items it removed.
type Sweeper func() int

// StartScheduler runs the retention cleanup and every sweeper on spec, a
// standard five-field cron expression.
func (s *AuditService) StartScheduler(spec string, retentionDays int, sweepers ...Sweeper) error {
	s.scheduler = cron.New()

	if _, err := s.scheduler.AddFunc(spec, func() {
		s.runCleanup(retentionDays, sweepers)
	}); err != nil {
		return err
	}

	s.scheduler.Start()
	logger.Infof("[Audit] Cleanup scheduled (cron: %s, retention: %d days)", spec, retentionDays)
	return nil
}

func (s *AuditService) StopScheduler() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
}

func (s *AuditService) runCleanup(retentionDays int, sweepers []Sweeper) {
	deleted, err := s.CleanupOldLogs(retentionDays)
	if err != nil {
		logger.Errorf("[Audit] Failed to cleanup old logs: %v", err)
	} else if deleted > 0 {
		logger.Infof("[Audit] Cleaned up %d logs older than %d days", deleted, retentionDays)
	}

	for _, sweep := range sweepers {
		if n := sweep(); n > 0 {
			logger.Infof("[Audit] Swept %d expired entries", n)
		}
	}
}
