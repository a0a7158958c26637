package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile is the per-identity record every page is built around.
// OrgID is written once on insert and never included in an update.
type Profile struct {
	ID                    string         `gorm:"primaryKey;size:36" json:"id"`
	OrgID                 string         `gorm:"size:36;not null;index" json:"org_id"`
	Role                  string         `gorm:"size:20;not null;default:contractor" json:"role"`
	FullName              string         `gorm:"size:200" json:"full_name"`
	HourlyRate            float64        `gorm:"not null;default:0" json:"hourly_rate"`
	IsActive              *bool          `gorm:"default:true" json:"is_active"`
	ManagerID             *string        `gorm:"size:36;index" json:"manager_id"`
	Phone                 string         `gorm:"size:50" json:"phone"`
	Address               string         `gorm:"size:500" json:"address"`
	AvatarURL             string         `gorm:"size:1000" json:"avatar_url"`
	UIPrefs               datatypes.JSON `json:"ui_prefs"`
	OnboardingCompletedAt *time.Time     `json:"onboarding_completed_at"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

// ManagedBy reports whether managerID is this profile's manager.
func (p *Profile) ManagedBy(managerID string) bool {
	return p.ManagerID != nil && *p.ManagerID == managerID
}
