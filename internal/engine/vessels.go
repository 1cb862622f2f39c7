package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"shipline/internal/domain"
	"shipline/internal/engine/policy"
	"shipline/internal/events"
	"shipline/internal/notify"
	"shipline/internal/repo"
)

// CreateVessel inserts a vessel seeded with the full takeover template:
// 13 runbook tasks and 11 endpoint checklists.
func (e Engine) CreateVessel(ctx context.Context, name, imo string, actor events.Actor) (domain.Vessel, error) {
	if err := policy.Allow(policy.ActionVesselCreate, actor.Role); err != nil {
		return domain.Vessel{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Vessel{}, policy.ValidationError{Field: "name", Reason: "required"}
	}
	now := e.timestamp()
	v := domain.Vessel{
		ID:        uuid.NewString(),
		Name:      name,
		IMO:       strings.TrimSpace(imo),
		Status:    domain.VesselNotStarted,
		CreatedAt: now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Vessel{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertVesselTx(ctx, tx, v); err != nil {
		return domain.Vessel{}, fmt.Errorf("insert vessel: %w", err)
	}
	for i, tpl := range templateTasks {
		t := domain.Task{
			ID:              uuid.NewString(),
			VesselID:        v.ID,
			Number:          i + 1,
			Title:           tpl.Title,
			Group:           tpl.Group,
			Status:          domain.TaskPending,
			DeadlineSeconds: tpl.DeadlineSeconds,
			Position:        i + 1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := e.Repo.InsertTaskTx(ctx, tx, t); err != nil {
			return domain.Vessel{}, fmt.Errorf("seed task %d: %w", i+1, err)
		}
	}
	for _, label := range templateEndpoints {
		ep := domain.Endpoint{
			ID:        uuid.NewString(),
			VesselID:  v.ID,
			Label:     label,
			Fields:    templateEndpointFields(),
			Status:    domain.EndpointNotStarted,
			CreatedAt: now,
		}
		if err := e.Repo.InsertEndpointTx(ctx, tx, ep); err != nil {
			return domain.Vessel{}, fmt.Errorf("seed endpoint %s: %w", label, err)
		}
	}
	if err := e.audit(ctx, tx, "VESSEL_CREATED", v.ID, "", actor); err != nil {
		return domain.Vessel{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Vessel{}, err
	}
	e.changed()
	e.fire(notify.Event{Action: notify.ActionVesselCreated, Vessel: v.Name, User: actor.Name, At: e.now()})
	return v, nil
}

// ListVessels returns the vessels the actor's role may see.
func (e Engine) ListVessels(ctx context.Context, actor events.Actor) ([]domain.Vessel, error) {
	return e.Repo.ListVessels(ctx, policy.CanSeeHidden(actor.Role))
}

// GetVessel enforces hidden-vessel visibility.
func (e Engine) GetVessel(ctx context.Context, id string, actor events.Actor) (domain.Vessel, error) {
	v, err := e.Repo.GetVessel(ctx, id)
	if err != nil {
		return domain.Vessel{}, err
	}
	if v.Hidden && !policy.CanSeeHidden(actor.Role) {
		return domain.Vessel{}, repo.ErrNotFound
	}
	return v, nil
}

func (e Engine) RenameVessel(ctx context.Context, id, name, imo string, actor events.Actor) (domain.Vessel, error) {
	if err := policy.Allow(policy.ActionVesselRename, actor.Role); err != nil {
		return domain.Vessel{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Vessel{}, policy.ValidationError{Field: "name", Reason: "required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Vessel{}, err
	}
	defer tx.Rollback()

	v, err := e.Repo.GetVesselTx(ctx, tx, id)
	if err != nil {
		return domain.Vessel{}, err
	}
	if err := e.Repo.RenameVesselTx(ctx, tx, id, name, strings.TrimSpace(imo)); err != nil {
		return domain.Vessel{}, err
	}
	if err := e.audit(ctx, tx, "VESSEL_RENAMED", id, "", actor); err != nil {
		return domain.Vessel{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Vessel{}, err
	}
	v.Name, v.IMO = name, strings.TrimSpace(imo)
	e.changed()
	return v, nil
}

// SetVesselHidden toggles client-facing visibility.
func (e Engine) SetVesselHidden(ctx context.Context, id string, hidden bool, actor events.Actor) error {
	if err := policy.Allow(policy.ActionVesselVisibility, actor.Role); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.SetVesselHiddenTx(ctx, tx, id, hidden); err != nil {
		return err
	}
	action := "VESSEL_SHOWN"
	if hidden {
		action = "VESSEL_HIDDEN"
	}
	if err := e.audit(ctx, tx, action, id, "", actor); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.changed()
	return nil
}

// DeleteVessel removes the vessel and all dependent rows.
func (e Engine) DeleteVessel(ctx context.Context, id string, actor events.Actor) error {
	if err := policy.Allow(policy.ActionVesselDelete, actor.Role); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteVesselTx(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.changed()
	return nil
}
