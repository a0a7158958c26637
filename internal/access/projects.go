package access

import (
	"sort"
	"strings"

	"github.com/tsheet/timesheet/internal/models"
)

// Scope is the query breadth requested by a listing. It decides how much the
// services fetch, never what the engine lets through.
type Scope string

const (
	ScopeVisible Scope = "visible"
	ScopeAllOrg  Scope = "all_org"
)

func ParseScope(s string) Scope {
	if Scope(s) == ScopeAllOrg {
		return ScopeAllOrg
	}
	return ScopeVisible
}

// CanManageProjects covers create, rename, activate and week start changes.
func CanManageProjects(actor Actor) bool {
	return actor.IsAdmin()
}

// VisibleProjects narrows org projects for actor. Admins and managers see every
// org project. Everyone else sees only projects reached through one of their
// own active memberships. The result is deduplicated and sorted by name.
func VisibleProjects(actor Actor, projects []models.Project, memberships []models.Membership) []models.Project {
	if actor.IsZero() {
		return []models.Project{}
	}

	var allowed func(p *models.Project) bool
	if actor.Role.Privileged() {
		allowed = func(*models.Project) bool { return true }
	} else {
		reachable := make(map[string]bool)
		for _, m := range memberships {
			if m.ProfileID == actor.ID && actor.sameOrg(m.OrgID) && IsActive(m.IsActive) {
				reachable[m.ProjectID] = true
			}
		}
		allowed = func(p *models.Project) bool { return reachable[p.ID] }
	}

	seen := make(map[string]bool, len(projects))
	out := make([]models.Project, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		if seen[p.ID] || !actor.sameOrg(p.OrgID) || !allowed(p) {
			continue
		}
		seen[p.ID] = true
		out = append(out, *p)
	}
	sortProjects(out)
	return out
}

func sortProjects(rows []models.Project) {
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
}

type Counts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

func ProjectCounts(rows []models.Project) Counts {
	c := Counts{Total: len(rows)}
	for i := range rows {
		if IsActive(rows[i].IsActive) {
			c.Active++
		}
	}
	c.Inactive = c.Total - c.Active
	return c
}
