package services

import (
	"context"
	"errors"

	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/models"
	"gorm.io/gorm"
)

type MembershipService struct {
	db   *gorm.DB
	gate *access.Gate
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{db: db, gate: access.DefaultGate()}
}

// ListForProfile returns every membership of profileID, active or not, with
// its project. Non-admins may only ask for their own.
func (s *MembershipService) ListForProfile(ctx context.Context, actor access.Actor, profileID string) ([]models.Membership, error) {
	if err := s.gate.Authorize(ctx, actor, access.ActionList, access.ResourceMembership, profileID); err != nil {
		return nil, err
	}

	var rows []models.Membership
	if err := s.db.WithContext(ctx).Preload("Project").
		Where("org_id = ? AND profile_id = ?", actor.OrgID, profileID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, faults.QueryOn("Membership", err)
	}
	return access.VisibleMemberships(actor, rows), nil
}

// ListForProject returns the members of one project with their profiles.
// Listing across profiles is admin only.
func (s *MembershipService) ListForProject(ctx context.Context, actor access.Actor, projectID string) ([]models.Membership, error) {
	if !access.CanManageMemberships(actor) {
		return nil, ErrForbidden
	}
	if _, err := s.project(ctx, actor.OrgID, projectID); err != nil {
		return nil, err
	}

	var rows []models.Membership
	if err := s.db.WithContext(ctx).Preload("Profile").
		Where("org_id = ? AND project_id = ?", actor.OrgID, projectID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, faults.QueryOn("Membership", err)
	}
	return rows, nil
}

// SetAssignment makes the (project, profile) membership active or inactive.
// An existing row is updated in place; a missing row is inserted only when
// assigning. Unassigning with no row returns nil, nil.
func (s *MembershipService) SetAssignment(ctx context.Context, actor access.Actor, projectID, profileID string, assigned bool) (*models.Membership, error) {
	return s.write(ctx, actor, projectID, profileID, func(existing *models.Membership) (bool, bool) {
		if existing == nil {
			return assigned, assigned
		}
		return assigned, true
	})
}

// Toggle flips the membership. With no row it inserts an active one; with a
// row it updates is_active instead of inserting a duplicate.
func (s *MembershipService) Toggle(ctx context.Context, actor access.Actor, projectID, profileID string) (*models.Membership, error) {
	return s.write(ctx, actor, projectID, profileID, func(existing *models.Membership) (bool, bool) {
		if existing == nil {
			return true, true
		}
		return !access.IsActive(existing.IsActive), true
	})
}

// decide returns the wanted is_active value and whether to write at all.
type decide func(existing *models.Membership) (active bool, write bool)

func (s *MembershipService) write(ctx context.Context, actor access.Actor, projectID, profileID string, next decide) (*models.Membership, error) {
	if err := s.gate.Authorize(ctx, actor, access.ActionToggle, access.ResourceMembership, nil); err != nil {
		return nil, err
	}
	if _, err := s.project(ctx, actor.OrgID, projectID); err != nil {
		return nil, err
	}
	if err := s.profileInOrg(ctx, actor.OrgID, profileID); err != nil {
		return nil, err
	}

	var result *models.Membership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Membership
		err := tx.Where("org_id = ? AND project_id = ? AND profile_id = ?", actor.OrgID, projectID, profileID).
			First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			active, ok := next(nil)
			if !ok {
				return nil
			}
			row := models.Membership{
				OrgID:     actor.OrgID,
				ProjectID: projectID,
				ProfileID: profileID,
				IsActive:  models.Bool(active),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			result = &row
			return nil
		}

		active, ok := next(&existing)
		if !ok {
			return nil
		}
		if err := tx.Model(&existing).Update("is_active", active).Error; err != nil {
			return err
		}
		existing.IsActive = models.Bool(active)
		result = &existing
		return nil
	})
	if err != nil {
		return nil, faults.QueryOn("Membership", err)
	}
	return result, nil
}

func (s *MembershipService) project(ctx context.Context, orgID, projectID string) (*models.Project, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).Where("id = ? AND org_id = ?", projectID, orgID).Limit(1).Find(&p).Error; err != nil {
		return nil, faults.QueryOn("Project", err)
	}
	if p.ID == "" {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MembershipService) profileInOrg(ctx context.Context, orgID, profileID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND org_id = ?", profileID, orgID).
		Count(&count).Error; err != nil {
		return faults.Query(err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
