package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type ProjectService struct {
	db   *gorm.DB
	gate *access.Gate
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db, gate: access.DefaultGate()}
}

type ProjectListRequest struct {
	Query  string `form:"q"`
	Active string `form:"active"`
	Scope  string `form:"scope"`
}

// List returns the org projects actor may see. Admins and managers get the
// whole org; everyone else reaches projects through their active memberships,
// so both tables are read concurrently.
func (s *ProjectService) List(ctx context.Context, actor access.Actor, req *ProjectListRequest) ([]models.Project, error) {
	visible, err := s.visible(ctx, actor, access.ParseScope(req.Scope))
	if err != nil {
		return nil, err
	}
	return access.FilterProjects(visible, access.ProjectFilter{
		Query:  req.Query,
		Active: access.ActiveFilter(req.Active),
	}), nil
}

func (s *ProjectService) Counts(ctx context.Context, actor access.Actor) (access.Counts, error) {
	visible, err := s.visible(ctx, actor, access.ScopeVisible)
	if err != nil {
		return access.Counts{}, err
	}
	return access.ProjectCounts(visible), nil
}

// visible reads the org projects and the actor's memberships and lets the
// engine narrow them. With ScopeVisible a non-privileged actor's project query
// is limited to projects it holds a membership on; ScopeAllOrg reads the whole
// org. Both yield the same rows.
func (s *ProjectService) visible(ctx context.Context, actor access.Actor, scope access.Scope) ([]models.Project, error) {
	if actor.IsZero() {
		return nil, ErrForbidden
	}

	var projects []models.Project
	var memberships []models.Membership

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query := s.db.WithContext(gctx).Where("org_id = ?", actor.OrgID)
		if !actor.Role.Privileged() && scope == access.ScopeVisible {
			query = query.Where("id IN (?)", s.db.Model(&models.Membership{}).
				Select("project_id").
				Where("org_id = ? AND profile_id = ?", actor.OrgID, actor.ID))
		}
		return query.Order("name ASC").Find(&projects).Error
	})
	if !actor.Role.Privileged() {
		g.Go(func() error {
			return s.db.WithContext(gctx).
				Where("org_id = ? AND profile_id = ?", actor.OrgID, actor.ID).
				Find(&memberships).Error
		})
	}
	if err := g.Wait(); err != nil {
		return nil, faults.QueryOn("Project", err)
	}

	return access.VisibleProjects(actor, projects, memberships), nil
}

// Get returns one project if actor may see it.
func (s *ProjectService) Get(ctx context.Context, actor access.Actor, id string) (*models.Project, error) {
	visible, err := s.visible(ctx, actor, access.ScopeVisible)
	if err != nil {
		return nil, err
	}
	for i := range visible {
		if visible[i].ID == id {
			return &visible[i], nil
		}
	}
	return nil, ErrNotFound
}

func validateProjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < 2 {
		return "", faults.Validation("Project name must be at least 2 characters.")
	}
	return name, nil
}

func validateWeekStart(weekStart string) (string, error) {
	switch weekStart {
	case "":
		return models.WeekStartSunday, nil
	case models.WeekStartSunday, models.WeekStartMonday:
		return weekStart, nil
	default:
		return "", faults.Validation("Week start must be sunday or monday.")
	}
}

// Create inserts {org_id, name, is_active=true, week_start}. Input is
// validated before anything touches the database.
func (s *ProjectService) Create(ctx context.Context, actor access.Actor, name, weekStart string) (*models.Project, error) {
	name, err := validateProjectName(name)
	if err != nil {
		return nil, err
	}
	weekStart, err = validateWeekStart(weekStart)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, access.ActionCreate, access.ResourceProject, nil); err != nil {
		return nil, err
	}

	project := models.Project{
		OrgID:     actor.OrgID,
		Name:      name,
		IsActive:  models.Bool(true),
		WeekStart: weekStart,
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, faults.QueryOn("Project", err)
	}
	return &project, nil
}

func (s *ProjectService) SetActive(ctx context.Context, actor access.Actor, id string, active bool) (*models.Project, error) {
	return s.update(ctx, actor, id, access.ActionToggle, map[string]any{"is_active": active})
}

func (s *ProjectService) SetWeekStart(ctx context.Context, actor access.Actor, id, weekStart string) (*models.Project, error) {
	if weekStart == "" {
		return nil, faults.Validation("Week start must be sunday or monday.")
	}
	weekStart, err := validateWeekStart(weekStart)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, actor, id, access.ActionUpdate, map[string]any{"week_start": weekStart})
}

func (s *ProjectService) Rename(ctx context.Context, actor access.Actor, id, name string) (*models.Project, error) {
	name, err := validateProjectName(name)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, actor, id, access.ActionUpdate, map[string]any{"name": name})
}

// update writes fields to project id, filtered by id and the actor's org.
func (s *ProjectService) update(ctx context.Context, actor access.Actor, id string, action access.Action, fields map[string]any) (*models.Project, error) {
	if actor.IsZero() {
		return nil, ErrForbidden
	}
	project, err := s.find(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, action, access.ResourceProject, project); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND org_id = ?", id, actor.OrgID).
		Updates(fields).Error; err != nil {
		return nil, faults.QueryOn("Project", err)
	}
	return s.find(ctx, actor.OrgID, id)
}

func (s *ProjectService) find(ctx context.Context, orgID, id string) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).Where("id = ? AND org_id = ?", id, orgID).Limit(1).Find(&project).Error; err != nil {
		return nil, faults.QueryOn("Project", err)
	}
	if project.ID == "" {
		return nil, ErrNotFound
	}
	return &project, nil
}
