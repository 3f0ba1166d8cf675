// Package authz decides whether a requester may perform an action on a
// resource. Handlers and use-cases ask Authorize instead of comparing role
// strings themselves.
package authz

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

// ErrForbidden is wrapped by Decision.Err for denied decisions.
var ErrForbidden = errors.New("forbidden")

// Action names a guarded operation.
type Action string

const (
	CourseCreate  Action = "course:create"
	CourseUpdate  Action = "course:update"
	CourseDelete  Action = "course:delete"
	CourseListAll Action = "course:list-all"
	UserUpdate    Action = "user:update"
	UserDelete    Action = "user:delete"
	UserDeleteAny Action = "user:delete-any"
	AdminAccess   Action = "admin:access"
)

// Subject is the authenticated caller.
type Subject struct {
	ID   uuid.UUID
	Role types.Role
}

// Resource describes the target of an action. OwnerID is the owning user
// (course creator, or the user record itself) and may be uuid.Nil.
type Resource struct {
	OwnerID uuid.UUID
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for allowed decisions and an error wrapping ErrForbidden otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

type rule struct {
	roles   []types.Role
	orOwner bool
}

var rules = map[Action]rule{
	CourseCreate:  {roles: []types.Role{types.RoleAdmin, types.RoleProfesor}},
	CourseUpdate:  {roles: []types.Role{types.RoleAdmin}, orOwner: true},
	CourseDelete:  {roles: []types.Role{types.RoleAdmin}},
	CourseListAll: {roles: []types.Role{types.RoleAdmin}},
	UserUpdate:    {roles: []types.Role{types.RoleAdmin}, orOwner: true},
	UserDelete:    {roles: []types.Role{types.RoleAdmin}, orOwner: true},
	UserDeleteAny: {roles: []types.Role{types.RoleAdmin, types.RoleProfesor}},
	AdminAccess:   {roles: types.StaffRoles},
}

// Authorize evaluates the policy for requester performing action on resource.
func Authorize(requester Subject, action Action, resource Resource) Decision {
	r, ok := rules[action]
	if !ok {
		return Decision{Reason: "unknown action " + string(action)}
	}

	if requester.ID == uuid.Nil {
		return Decision{Reason: "not authenticated"}
	}

	if slices.Contains(r.roles, requester.Role) {
		return Decision{Allowed: true, Reason: "role " + string(requester.Role)}
	}

	if r.orOwner && resource.OwnerID != uuid.Nil && resource.OwnerID == requester.ID {
		return Decision{Allowed: true, Reason: "owner"}
	}

	return Decision{Reason: fmt.Sprintf("role %q may not %s", requester.Role, action)}
}
