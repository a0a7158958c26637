package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is soft-deactivated through IsActive and never hard-deleted.
type Project struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	OrgID     string    `gorm:"size:36;not null;index" json:"org_id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	IsActive  *bool     `gorm:"default:true" json:"is_active"`
	WeekStart string    `gorm:"size:10;not null;default:sunday" json:"week_start"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.WeekStart == "" {
		p.WeekStart = WeekStartSunday
	}
	return nil
}
