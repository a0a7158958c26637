package access

import "sort"

// Field names a mutable profile column.
type Field string

const (
	FieldFullName   Field = "full_name"
	FieldPhone      Field = "phone"
	FieldAddress    Field = "address"
	FieldAvatarURL  Field = "avatar_url"
	FieldUIPrefs    Field = "ui_prefs"
	FieldRole       Field = "role"
	FieldHourlyRate Field = "hourly_rate"
	FieldManagerID  Field = "manager_id"
	FieldIsActive   Field = "is_active"
)

type FieldSet map[Field]struct{}

func NewFieldSet(fields ...Field) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

func (s FieldSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

func (s FieldSet) Union(other FieldSet) FieldSet {
	out := make(FieldSet, len(s)+len(other))
	for f := range s {
		out[f] = struct{}{}
	}
	for f := range other {
		out[f] = struct{}{}
	}
	return out
}

// Slice returns the fields in sorted order.
func (s FieldSet) Slice() []Field {
	out := make([]Field, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PersonalFields are the columns a user may change on their own row.
func PersonalFields() FieldSet {
	return NewFieldSet(FieldFullName, FieldPhone, FieldAddress, FieldAvatarURL, FieldUIPrefs)
}

// PrivilegedFields are admin-only on every row, including the admin's own.
func PrivilegedFields() FieldSet {
	return NewFieldSet(FieldRole, FieldHourlyRate, FieldManagerID, FieldIsActive)
}

func AllFields() FieldSet {
	return PersonalFields().Union(PrivilegedFields())
}
