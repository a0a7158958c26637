package models

import (
	"time"

	"gorm.io/gorm"
)

// Membership grants a profile access to a project. The unique index keeps one
// row per (project, profile); deactivation flips IsActive instead of deleting.
type Membership struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	OrgID     string    `gorm:"size:36;not null;index" json:"org_id"`
	ProjectID string    `gorm:"size:36;not null;uniqueIndex:idx_membership_project_profile" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	ProfileID string    `gorm:"size:36;not null;uniqueIndex:idx_membership_project_profile;index" json:"profile_id"`
	Profile   *Profile  `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	IsActive  *bool     `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Membership) TableName() string { return "memberships" }

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}
