package access

import "github.com/tsheet/timesheet/internal/models"

// CanViewProfile reports whether actor may see target.
//
//	admin:      every row in the org
//	manager:    own row and rows whose manager_id is the manager
//	contractor: own row only
func CanViewProfile(actor Actor, target *models.Profile) bool {
	if target == nil || !actor.sameOrg(target.OrgID) {
		return false
	}
	switch {
	case actor.Role == RoleAdmin:
		return true
	case target.ID == actor.ID:
		return true
	case actor.Role == RoleManager:
		return target.ManagedBy(actor.ID)
	default:
		return false
	}
}

// VisibleProfiles narrows rows to what actor may see.
func VisibleProfiles(actor Actor, rows []models.Profile) []models.Profile {
	out := make([]models.Profile, 0, len(rows))
	for i := range rows {
		if CanViewProfile(actor, &rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// EditableProfileFields returns the fields actor may change on target.
// An empty set means the row is read-only for actor.
func EditableProfileFields(actor Actor, target *models.Profile) FieldSet {
	if !CanViewProfile(actor, target) {
		return FieldSet{}
	}
	switch {
	case actor.Role == RoleAdmin:
		return AllFields()
	case target.ID == actor.ID:
		return PersonalFields()
	case actor.Role == RoleManager:
		return NewFieldSet(FieldFullName)
	default:
		return FieldSet{}
	}
}

func CanEditProfile(actor Actor, target *models.Profile) bool {
	return len(EditableProfileFields(actor, target)) > 0
}

// CheckProfilePatch returns the requested fields actor may not change, in the
// order given. A nil result means the whole patch is allowed.
func CheckProfilePatch(actor Actor, target *models.Profile, fields []Field) []Field {
	allowed := EditableProfileFields(actor, target)
	var denied []Field
	for _, f := range fields {
		if !allowed.Has(f) {
			denied = append(denied, f)
		}
	}
	return denied
}
