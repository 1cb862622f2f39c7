package engine

import (
	"context"

	"shipline/internal/domain"
	"shipline/internal/engine/policy"
	"shipline/internal/events"
	"shipline/internal/notify"
)

// StartEndpoint begins work on an endpoint checklist.
func (e Engine) StartEndpoint(ctx context.Context, endpointID string, actor events.Actor) (domain.Endpoint, error) {
	return e.transitionEndpoint(ctx, endpointID, domain.EndpointInProgress, "ENDPOINT_STARTED", notify.ActionEndpointStarted, actor)
}

func (e Engine) PauseEndpoint(ctx context.Context, endpointID string, actor events.Actor) (domain.Endpoint, error) {
	return e.transitionEndpoint(ctx, endpointID, domain.EndpointPaused, "ENDPOINT_PAUSED", "", actor)
}

func (e Engine) CompleteEndpoint(ctx context.Context, endpointID string, actor events.Actor) (domain.Endpoint, error) {
	return e.transitionEndpoint(ctx, endpointID, domain.EndpointDone, "ENDPOINT_DONE", notify.ActionEndpointDone, actor)
}

func (e Engine) transitionEndpoint(ctx context.Context, endpointID, target, action, notifyAction string, actor events.Actor) (domain.Endpoint, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Endpoint{}, err
	}
	defer tx.Rollback()

	ep, err := e.Repo.GetEndpointTx(ctx, tx, endpointID)
	if err != nil {
		return domain.Endpoint{}, err
	}
	if err := policy.AllowOwned(policy.ActionEndpointControl, actor.Role, actor.ID, ep.AssigneeID); err != nil {
		return domain.Endpoint{}, err
	}
	if err := policy.EndpointTransition(ep.Status, target); err != nil {
		return domain.Endpoint{}, err
	}
	v, err := e.Repo.GetVesselTx(ctx, tx, ep.VesselID)
	if err != nil {
		return domain.Endpoint{}, err
	}
	if err := e.Repo.UpdateEndpointStatusTx(ctx, tx, endpointID, target); err != nil {
		return domain.Endpoint{}, err
	}
	if err := e.audit(ctx, tx, action, ep.VesselID, "", actor); err != nil {
		return domain.Endpoint{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Endpoint{}, err
	}
	ep.Status = target
	e.changed()
	if notifyAction != "" {
		e.fire(notify.Event{Action: notifyAction, Vessel: v.Name, Endpoint: ep.Label, User: actor.Name, At: e.now()})
	}
	return ep, nil
}

// CycleEndpointField advances one checklist cell through
// pending → done → na → pending.
func (e Engine) CycleEndpointField(ctx context.Context, endpointID, field string, actor events.Actor) (domain.Endpoint, error) {
	if field == "" {
		return domain.Endpoint{}, policy.ValidationError{Field: "field", Reason: "required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Endpoint{}, err
	}
	defer tx.Rollback()

	ep, err := e.Repo.GetEndpointTx(ctx, tx, endpointID)
	if err != nil {
		return domain.Endpoint{}, err
	}
	if err := policy.AllowOwned(policy.ActionEndpointField, actor.Role, actor.ID, ep.AssigneeID); err != nil {
		return domain.Endpoint{}, err
	}
	current, ok := ep.Fields[field]
	if !ok {
		return domain.Endpoint{}, policy.ValidationError{Field: "field", Reason: "unknown checklist field"}
	}
	ep.Fields[field] = policy.FieldCycle(current)
	if err := e.Repo.UpdateEndpointFieldsTx(ctx, tx, endpointID, ep.Fields); err != nil {
		return domain.Endpoint{}, err
	}
	if err := e.audit(ctx, tx, "ENDPOINT_UPDATED", ep.VesselID, "", actor); err != nil {
		return domain.Endpoint{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Endpoint{}, err
	}
	e.changed()
	return ep, nil
}

// AssignEndpoint rebinds the endpoint's assignee.
func (e Engine) AssignEndpoint(ctx context.Context, endpointID string, assigneeID *string, actor events.Actor) (domain.Endpoint, error) {
	if err := policy.Allow(policy.ActionEndpointAssign, actor.Role); err != nil {
		return domain.Endpoint{}, err
	}
	if assigneeID != nil {
		if _, err := e.Repo.GetUser(ctx, *assigneeID); err != nil {
			return domain.Endpoint{}, err
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Endpoint{}, err
	}
	defer tx.Rollback()

	ep, err := e.Repo.GetEndpointTx(ctx, tx, endpointID)
	if err != nil {
		return domain.Endpoint{}, err
	}
	if err := e.Repo.SetEndpointAssigneeTx(ctx, tx, endpointID, assigneeID); err != nil {
		return domain.Endpoint{}, err
	}
	if err := e.audit(ctx, tx, "ENDPOINT_ASSIGNED", ep.VesselID, "", actor); err != nil {
		return domain.Endpoint{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Endpoint{}, err
	}
	ep.AssigneeID = assigneeID
	e.changed()
	return ep, nil
}
