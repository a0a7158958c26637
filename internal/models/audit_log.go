package models

import "time"

// AuditLog records write operations against people, projects and memberships.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrgID     string    `gorm:"size:36;index" json:"org_id"`
	ActorID   *string   `gorm:"size:36;index" json:"actor_id"`
	Level     string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Module    string    `gorm:"size:100;index" json:"module"`
	Action    string    `gorm:"size:200;index" json:"action"`
	Message   string    `gorm:"type:text" json:"message"`
	IP        string    `gorm:"size:50" json:"ip"`
	UserAgent string    `gorm:"size:500" json:"user_agent"`
	Extra     string    `gorm:"type:text" json:"extra"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
