package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/prefs"
	"github.com/tsheet/timesheet/internal/session"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProfileService struct {
	db  *gorm.DB
	hub *session.Hub
}

func NewProfileService(db *gorm.DB, hub *session.Hub) *ProfileService {
	return &ProfileService{db: db, hub: hub}
}

// FetchProfile loads the profile whose id equals the identity. A missing row
// is reported as nil, nil so the resolver can tell it apart from a fault.
func (s *ProfileService) FetchProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, nil
	}
	return &p, nil
}

type ProfileListRequest struct {
	Query  string `form:"q"`
	Role   string `form:"role"`
	Active string `form:"active"`
	Scope  string `form:"scope"`
}

// List fetches the actor's org at the breadth the scope asks for, narrows it
// through the engine and applies the listing filters.
func (s *ProfileService) List(ctx context.Context, actor access.Actor, req *ProfileListRequest) ([]models.Profile, error) {
	if actor.IsZero() {
		return nil, ErrForbidden
	}

	query := s.db.WithContext(ctx).Where("org_id = ?", actor.OrgID)
	switch {
	case actor.Role == access.RoleAdmin:
	case actor.Role == access.RoleManager && access.ParseScope(req.Scope) == access.ScopeVisible:
		query = query.Where("id = ? OR manager_id = ?", actor.ID, actor.ID)
	case actor.Role != access.RoleManager:
		query = query.Where("id = ?", actor.ID)
	}

	var rows []models.Profile
	if err := query.Order("full_name ASC").Find(&rows).Error; err != nil {
		return nil, faults.Query(err)
	}

	visible := access.VisibleProfiles(actor, rows)
	return access.FilterProfiles(visible, access.ProfileFilter{
		Query:  req.Query,
		Role:   req.Role,
		Active: access.ActiveFilter(req.Active),
	}), nil
}

// ProfilePatch is a partial profile update. Nil fields are left alone. An
// empty ManagerID clears the manager.
type ProfilePatch struct {
	FullName   *string  `json:"full_name"`
	Phone      *string  `json:"phone"`
	Address    *string  `json:"address"`
	AvatarURL  *string  `json:"avatar_url"`
	Role       *string  `json:"role"`
	HourlyRate *float64 `json:"hourly_rate"`
	ManagerID  *string  `json:"manager_id"`
	IsActive   *bool    `json:"is_active"`
}

func (p *ProfilePatch) Fields() []access.Field {
	var fields []access.Field
	add := func(set bool, f access.Field) {
		if set {
			fields = append(fields, f)
		}
	}
	add(p.FullName != nil, access.FieldFullName)
	add(p.Phone != nil, access.FieldPhone)
	add(p.Address != nil, access.FieldAddress)
	add(p.AvatarURL != nil, access.FieldAvatarURL)
	add(p.Role != nil, access.FieldRole)
	add(p.HourlyRate != nil, access.FieldHourlyRate)
	add(p.ManagerID != nil, access.FieldManagerID)
	add(p.IsActive != nil, access.FieldIsActive)
	return fields
}

func (p *ProfilePatch) updates() map[string]any {
	u := make(map[string]any)
	if p.FullName != nil {
		u["full_name"] = strings.TrimSpace(*p.FullName)
	}
	if p.Phone != nil {
		u["phone"] = strings.TrimSpace(*p.Phone)
	}
	if p.Address != nil {
		u["address"] = strings.TrimSpace(*p.Address)
	}
	if p.AvatarURL != nil {
		u["avatar_url"] = strings.TrimSpace(*p.AvatarURL)
	}
	if p.Role != nil {
		u["role"] = *p.Role
	}
	if p.HourlyRate != nil {
		u["hourly_rate"] = *p.HourlyRate
	}
	if p.ManagerID != nil {
		u["manager_id"] = models.String(*p.ManagerID)
	}
	if p.IsActive != nil {
		u["is_active"] = *p.IsActive
	}
	return u
}

// Update applies patch to profile id. The engine decides which fields actor
// may touch; a patch naming any other field is rejected whole. The write is
// filtered by id, plus org_id when the actor is not editing themselves.
// Concurrent writers are last-write-wins.
func (s *ProfileService) Update(ctx context.Context, actor access.Actor, id string, patch *ProfilePatch) (*models.Profile, error) {
	target, err := s.FetchProfile(ctx, id)
	if err != nil {
		return nil, faults.Query(err)
	}
	if target == nil || !access.CanViewProfile(actor, target) {
		return nil, ErrNotFound
	}

	fields := patch.Fields()
	if len(fields) == 0 {
		return target, nil
	}
	if denied := access.CheckProfilePatch(actor, target, fields); len(denied) > 0 {
		return nil, fmt.Errorf("%w: cannot change %s", ErrForbidden, joinFields(denied))
	}
	if err := s.validatePatch(ctx, actor, id, patch); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id)
	if id != actor.ID {
		query = query.Where("org_id = ?", actor.OrgID)
	}
	if err := query.Updates(patch.updates()).Error; err != nil {
		return nil, faults.Query(err)
	}

	updated, err := s.FetchProfile(ctx, id)
	if err != nil {
		return nil, faults.Query(err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	s.publishChanged(id)
	return updated, nil
}

func (s *ProfileService) validatePatch(ctx context.Context, actor access.Actor, id string, patch *ProfilePatch) error {
	if patch.Role != nil && !access.ValidRole(*patch.Role) {
		return faults.Validation("Role must be admin, manager or contractor.")
	}
	if patch.HourlyRate != nil && *patch.HourlyRate < 0 {
		return faults.Validation("Hourly rate must be zero or more.")
	}
	if patch.ManagerID != nil && *patch.ManagerID != "" {
		return checkManager(s.db.WithContext(ctx), actor.OrgID, id, *patch.ManagerID)
	}
	return nil
}

// checkManager requires managerID to name another profile in orgID.
func checkManager(db *gorm.DB, orgID, selfID, managerID string) error {
	if managerID == selfID {
		return faults.Validation("A profile cannot be its own manager.")
	}
	var count int64
	if err := db.Model(&models.Profile{}).Where("id = ? AND org_id = ?", managerID, orgID).Count(&count).Error; err != nil {
		return faults.Query(err)
	}
	if count == 0 {
		return faults.Validation("Manager must be a profile in the same organization.")
	}
	return nil
}

// MyProfilePatch is what the settings page may change on the caller's own row.
type MyProfilePatch struct {
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	AvatarURL *string `json:"avatar_url"`
}

func (s *ProfileService) UpdateMine(ctx context.Context, actor access.Actor, patch *MyProfilePatch) (*models.Profile, error) {
	return s.Update(ctx, actor, actor.ID, &ProfilePatch{
		FullName:  patch.FullName,
		Phone:     patch.Phone,
		Address:   patch.Address,
		AvatarURL: patch.AvatarURL,
	})
}

// CompleteOnboarding stamps onboarding_completed_at once. Later calls keep
// the first timestamp.
func (s *ProfileService) CompleteOnboarding(ctx context.Context, actor access.Actor) (*models.Profile, error) {
	if actor.IsZero() {
		return nil, ErrForbidden
	}
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND onboarding_completed_at IS NULL", actor.ID).
		Update("onboarding_completed_at", time.Now().UTC()).Error
	if err != nil {
		return nil, faults.Query(err)
	}

	p, err := s.FetchProfile(ctx, actor.ID)
	if err != nil {
		return nil, faults.Query(err)
	}
	if p == nil {
		return nil, faults.ProfileMissing()
	}
	s.publishChanged(actor.ID)
	return p, nil
}

// SavePreferences writes the ui_prefs column of profile id. A missing row is
// a ProfileMissing fault.
func (s *ProfileService) SavePreferences(ctx context.Context, id string, p prefs.Preferences) error {
	result := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", id).
		Update("ui_prefs", datatypes.JSON(p.JSON()))
	if result.Error != nil {
		return faults.Query(result.Error)
	}
	if result.RowsAffected == 0 {
		return faults.ProfileMissing()
	}
	s.publishChanged(id)
	return nil
}

func (s *ProfileService) publishChanged(id string) {
	if s.hub != nil {
		s.hub.Publish(session.Event{Kind: session.EventProfileChanged, UserID: id})
	}
}

func joinFields(fields []access.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
