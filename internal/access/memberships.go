package access

import "github.com/tsheet/timesheet/internal/models"

// CanManageMemberships covers creating and toggling memberships.
func CanManageMemberships(actor Actor) bool {
	return actor.IsAdmin()
}

// CanListMemberships reports whether actor may read the memberships of
// profileID. Non-admins may only read their own.
func CanListMemberships(actor Actor, profileID string) bool {
	if actor.IsZero() || profileID == "" {
		return false
	}
	return actor.Role == RoleAdmin || profileID == actor.ID
}

func CanViewMembership(actor Actor, m *models.Membership) bool {
	if m == nil || !actor.sameOrg(m.OrgID) {
		return false
	}
	return actor.Role == RoleAdmin || m.ProfileID == actor.ID
}

func VisibleMemberships(actor Actor, rows []models.Membership) []models.Membership {
	out := make([]models.Membership, 0, len(rows))
	for i := range rows {
		if CanViewMembership(actor, &rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}
