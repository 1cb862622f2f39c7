// Package policy centralizes authorization and lifecycle rules. Every
// mutating operation names an Action here; handlers and the engine never
// inline role checks.
package policy

import "fmt"

// ForbiddenError indicates the actor's role (or ownership) does not permit
// the action.
type ForbiddenError struct {
	Action string
	Role   string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role %q may not %s", e.Role, e.Action)
}

// StateError indicates a lifecycle transition that the state machine does
// not allow.
type StateError struct {
	Entity string
	From   string
	To     string
}

func (e StateError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

// ValidationError indicates malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Action names every guarded operation.
type Action string

const (
	ActionVesselCreate     Action = "vessel.create"
	ActionVesselRename     Action = "vessel.rename"
	ActionVesselDelete     Action = "vessel.delete"
	ActionVesselVisibility Action = "vessel.visibility"
	ActionTaskCreate       Action = "task.create"
	ActionTaskDelete       Action = "task.delete"
	ActionTaskAssign       Action = "task.assign"
	ActionTaskControl      Action = "task.control"
	ActionTaskReorder      Action = "task.reorder"
	ActionCommentAdd       Action = "comment.add"
	ActionCommentEdit      Action = "comment.edit"
	ActionCommentDelete    Action = "comment.delete"
	ActionAttachmentAdd    Action = "attachment.add"
	ActionEndpointControl  Action = "endpoint.control"
	ActionEndpointField    Action = "endpoint.field"
	ActionEndpointAssign   Action = "endpoint.assign"
	ActionUserCreate       Action = "user.create"
	ActionLogView          Action = "log.view"
)

const (
	RoleAdmin      = "Admin"
	RoleOnboardEng = "Onboard Eng"
	RoleRemoteTeam = "Remote Team"
	RoleClient     = "Client"
)

// roleGrants maps each action to the roles allowed regardless of ownership.
// Actions absent from the table are open to any authenticated role.
// ActionTaskControl, ActionEndpointControl and ActionEndpointField carry an
// additional ownership rule handled by AllowOwned.
var roleGrants = map[Action][]string{
	ActionVesselCreate:     {RoleAdmin, RoleOnboardEng},
	ActionVesselRename:     {RoleAdmin},
	ActionVesselDelete:     {RoleAdmin},
	ActionVesselVisibility: {RoleAdmin},
	ActionTaskCreate:       {RoleAdmin, RoleOnboardEng, RoleRemoteTeam},
	ActionTaskDelete:       {RoleAdmin, RoleOnboardEng},
	ActionTaskAssign:       {RoleAdmin, RoleOnboardEng},
	ActionTaskControl:      {RoleAdmin, RoleOnboardEng},
	ActionCommentEdit:      {RoleAdmin},
	ActionCommentDelete:    {RoleAdmin},
	ActionEndpointControl:  {RoleAdmin},
	ActionEndpointField:    {RoleAdmin},
	ActionEndpointAssign:   {RoleAdmin, RoleOnboardEng},
	ActionUserCreate:       {RoleAdmin},
}

// Allow returns nil when role may perform action with no ownership claim.
func Allow(action Action, role string) error {
	grants, guarded := roleGrants[action]
	if !guarded {
		if role == "" {
			return ForbiddenError{Action: string(action), Role: role}
		}
		return nil
	}
	for _, r := range grants {
		if r == role {
			return nil
		}
	}
	return ForbiddenError{Action: string(action), Role: role}
}

// AllowOwned returns nil when the role is granted outright, or when the
// actor owns the entity (is its assignee).
func AllowOwned(action Action, role, actorID string, assigneeID *string) error {
	if Allow(action, role) == nil {
		return nil
	}
	if assigneeID != nil && *assigneeID == actorID {
		return nil
	}
	return ForbiddenError{Action: string(action), Role: role}
}

// CanSeeHidden reports whether the role sees hidden vessels.
func CanSeeHidden(role string) bool {
	return role == RoleAdmin
}
