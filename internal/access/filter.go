package access

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tsheet/timesheet/internal/models"
)

// IsActive reads a nullable is_active flag. A missing flag never hides a row.
func IsActive(b *bool) bool {
	return models.ActiveOrDefault(b)
}

// DisplayName is the trimmed full name, or "(no name)".
func DisplayName(fullName string) string {
	if s := strings.TrimSpace(fullName); s != "" {
		return s
	}
	return "(no name)"
}

// Initials returns the upper-cased first letters of the first and last words
// of name, or "U" for a blank name.
func Initials(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "U"
	}
	out := firstRune(parts[0])
	if len(parts) > 1 {
		out += firstRune(parts[len(parts)-1])
	}
	if out == "" {
		return "U"
	}
	return out
}

func firstRune(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// Matches is a case-insensitive substring test of query against the
// space-joined haystack. An empty query matches everything.
func Matches(query string, haystack ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(haystack, " ")), q)
}

// ActiveFilter is one of "all", "active" or "inactive". Unknown values act as "all".
type ActiveFilter string

const (
	ActiveAll      ActiveFilter = "all"
	ActiveOnly     ActiveFilter = "active"
	ActiveInactive ActiveFilter = "inactive"
)

func (f ActiveFilter) keep(active bool) bool {
	switch f {
	case ActiveOnly:
		return active
	case ActiveInactive:
		return !active
	default:
		return true
	}
}

type ProfileFilter struct {
	Query  string
	Role   string // empty or "all" keeps every role
	Active ActiveFilter
}

// FilterProfiles applies the listing filters. The search haystack is
// display name, role and id.
func FilterProfiles(rows []models.Profile, f ProfileFilter) []models.Profile {
	out := make([]models.Profile, 0, len(rows))
	for _, r := range rows {
		if f.Role != "" && f.Role != "all" && r.Role != f.Role {
			continue
		}
		if !f.Active.keep(IsActive(r.IsActive)) {
			continue
		}
		if !Matches(f.Query, DisplayName(r.FullName), r.Role, r.ID) {
			continue
		}
		out = append(out, r)
	}
	return out
}

type ProjectFilter struct {
	Query  string
	Active ActiveFilter
}

// FilterProjects applies the listing filters over name and id.
func FilterProjects(rows []models.Project, f ProjectFilter) []models.Project {
	out := make([]models.Project, 0, len(rows))
	for _, r := range rows {
		if !f.Active.keep(IsActive(r.IsActive)) {
			continue
		}
		if !Matches(f.Query, r.Name, r.ID) {
			continue
		}
		out = append(out, r)
	}
	return out
}
