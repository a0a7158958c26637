// Package access decides which profile, project and membership rows an actor
// may see and which fields it may change. Every function is pure: callers fetch
// a broad org-scoped row set and the engine narrows it. Nothing here performs
// I/O or panics on unexpected input.
package access

import (
	"strings"

	"github.com/tsheet/timesheet/internal/models"
)

type Role string

const (
	RoleAdmin      Role = models.RoleAdmin
	RoleManager    Role = models.RoleManager
	RoleContractor Role = models.RoleContractor
)

// ParseRole maps a stored role to a Role. Anything unrecognised is treated as
// the least privileged role.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	default:
		return RoleContractor
	}
}

// ValidRole reports whether s is one of the three stored role values.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleContractor:
		return true
	}
	return false
}

// Privileged is true for admin and manager.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleManager
}

func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleManager:
		return "Manager"
	default:
		return "Contractor"
	}
}

// Actor is the resolved profile performing a request.
type Actor struct {
	ID    string
	OrgID string
	Role  Role
}

func ActorFromProfile(p *models.Profile) Actor {
	if p == nil {
		return Actor{}
	}
	return Actor{ID: p.ID, OrgID: p.OrgID, Role: ParseRole(p.Role)}
}

// IsZero is true for an actor without identity or tenant. Such an actor sees
// nothing and may do nothing.
func (a Actor) IsZero() bool {
	return a.ID == "" || a.OrgID == ""
}

func (a Actor) IsAdmin() bool {
	return !a.IsZero() && a.Role == RoleAdmin
}

func (a Actor) sameOrg(orgID string) bool {
	return !a.IsZero() && orgID == a.OrgID
}
