package access

import (
	"context"
	"errors"

	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/models"
)

// Action describes the kind of operation an actor wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionToggle Action = "toggle"
)

// Resource types registered on the default gate.
const (
	ResourceProfile    = "profile"
	ResourceProject    = "project"
	ResourceMembership = "membership"
)

var (
	ErrForbidden = faults.ErrForbidden
	ErrNoPolicy  = errors.New("no policy defined for resource type")
)

// Policy decides one resource type. For list and create the resource may be nil.
type Policy interface {
	Can(ctx context.Context, actor Actor, action Action, resource any) bool
}

type PolicyFunc func(ctx context.Context, actor Actor, action Action, resource any) bool

func (f PolicyFunc) Can(ctx context.Context, actor Actor, action Action, resource any) bool {
	return f(ctx, actor, action, resource)
}

// Gate is a registry of policies keyed by resource type.
type Gate struct {
	policies map[string]Policy
}

func NewGate() *Gate {
	return &Gate{policies: make(map[string]Policy)}
}

// DefaultGate registers the profile, project and membership policies.
func DefaultGate() *Gate {
	g := NewGate()
	g.Register(ResourceProfile, PolicyFunc(profilePolicy))
	g.Register(ResourceProject, PolicyFunc(projectPolicy))
	g.Register(ResourceMembership, PolicyFunc(membershipPolicy))
	return g
}

// Register overwrites any policy already set for resourceType.
func (g *Gate) Register(resourceType string, p Policy) {
	g.policies[resourceType] = p
}

// Authorize returns ErrForbidden for a zero actor or a denied action and
// ErrNoPolicy when resourceType is unknown.
func (g *Gate) Authorize(ctx context.Context, actor Actor, action Action, resourceType string, resource any) error {
	if actor.IsZero() {
		return ErrForbidden
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return ErrNoPolicy
	}
	if !p.Can(ctx, actor, action, resource) {
		return ErrForbidden
	}
	return nil
}

func (g *Gate) Can(ctx context.Context, actor Actor, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, actor, action, resourceType, resource) == nil
}

func profilePolicy(_ context.Context, actor Actor, action Action, resource any) bool {
	switch action {
	case ActionList:
		return true
	case ActionCreate:
		return actor.IsAdmin()
	}
	p, ok := resource.(*models.Profile)
	if !ok {
		return false
	}
	switch action {
	case ActionView:
		return CanViewProfile(actor, p)
	case ActionUpdate:
		return CanEditProfile(actor, p)
	case ActionToggle:
		return EditableProfileFields(actor, p).Has(FieldIsActive)
	default:
		return false
	}
}

func projectPolicy(_ context.Context, actor Actor, action Action, resource any) bool {
	switch action {
	case ActionList:
		return true
	case ActionCreate:
		return CanManageProjects(actor)
	}
	p, ok := resource.(*models.Project)
	if !ok || p == nil || !actor.sameOrg(p.OrgID) {
		return false
	}
	switch action {
	case ActionView:
		return true
	case ActionUpdate, ActionToggle:
		return CanManageProjects(actor)
	default:
		return false
	}
}

// membershipPolicy accepts a profile id string for list, and a *models.Membership
// or nil for the rest.
func membershipPolicy(_ context.Context, actor Actor, action Action, resource any) bool {
	switch action {
	case ActionList:
		id, ok := resource.(string)
		return ok && CanListMemberships(actor, id)
	case ActionView:
		m, ok := resource.(*models.Membership)
		return ok && CanViewMembership(actor, m)
	case ActionCreate, ActionUpdate, ActionToggle:
		if m, ok := resource.(*models.Membership); ok && m != nil && !actor.sameOrg(m.OrgID) {
			return false
		}
		return CanManageMemberships(actor)
	default:
		return false
	}
}
