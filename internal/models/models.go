package models

import (
	"github.com/google/uuid"
)

// Roles stored in profiles.role.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleContractor = "contractor"
)

// Week start values stored in projects.week_start.
const (
	WeekStartSunday = "sunday"
	WeekStartMonday = "monday"
)

func newID() string {
	return uuid.NewString()
}

// Bool returns a pointer to b, for the nullable is_active columns.
func Bool(b bool) *bool {
	return &b
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ActiveOrDefault reads a nullable is_active flag. Null means active.
func ActiveOrDefault(b *bool) bool {
	return b == nil || *b
}
