package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"shipline/internal/domain"
	"shipline/internal/engine/policy"
	"shipline/internal/events"
	"shipline/internal/notify"
)

// StartTask moves a task to in_progress. Starting the first task promotes
// the vessel from not_started.
func (e Engine) StartTask(ctx context.Context, taskID string, actor events.Actor) (domain.Task, error) {
	return e.transitionTask(ctx, taskID, domain.TaskInProgress, "TASK_STARTED", notify.ActionTaskStarted, actor)
}

// PauseTask freezes the task's accrued time at its current value.
func (e Engine) PauseTask(ctx context.Context, taskID string, actor events.Actor) (domain.Task, error) {
	return e.transitionTask(ctx, taskID, domain.TaskPaused, "TASK_PAUSED", notify.ActionTaskPaused, actor)
}

// CompleteTask marks the task done. When it was the vessel's last open task
// the vessel completes as well.
func (e Engine) CompleteTask(ctx context.Context, taskID string, actor events.Actor) (domain.Task, error) {
	return e.transitionTask(ctx, taskID, domain.TaskDone, "TASK_DONE", notify.ActionTaskDone, actor)
}

func (e Engine) transitionTask(ctx context.Context, taskID, target, action, notifyAction string, actor events.Actor) (domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.AllowOwned(policy.ActionTaskControl, actor.Role, actor.ID, t.AssigneeID); err != nil {
		return domain.Task{}, err
	}
	if err := policy.TaskTransition(t.Status, target); err != nil {
		return domain.Task{}, err
	}
	v, err := e.Repo.GetVesselTx(ctx, tx, t.VesselID)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.timestamp()
	if err := e.Repo.UpdateTaskStatusTx(ctx, tx, taskID, target, now); err != nil {
		return domain.Task{}, err
	}
	switch target {
	case domain.TaskInProgress:
		if v.Status == domain.VesselNotStarted {
			if err := e.Repo.UpdateVesselStatusTx(ctx, tx, v.ID, domain.VesselInProgress); err != nil {
				return domain.Task{}, err
			}
		}
	case domain.TaskDone:
		open, err := e.Repo.CountOpenTasksTx(ctx, tx, v.ID)
		if err != nil {
			return domain.Task{}, err
		}
		if open == 0 && v.Status != domain.VesselCompleted {
			if err := e.Repo.UpdateVesselStatusTx(ctx, tx, v.ID, domain.VesselCompleted); err != nil {
				return domain.Task{}, err
			}
		}
	}
	if err := e.audit(ctx, tx, action, v.ID, taskID, actor); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	t.Status = target
	t.UpdatedAt = now
	e.changed()
	e.fire(notify.Event{Action: notifyAction, Vessel: v.Name, Task: t.Title, User: actor.Name, At: e.now()})
	return t, nil
}

// TaskCreateOptions are parameters for creating an ad-hoc task.
type TaskCreateOptions struct {
	VesselID        string
	Title           string
	Group           string
	DeadlineSeconds int64
	AssigneeID      *string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions, actor events.Actor) (domain.Task, error) {
	if err := policy.Allow(policy.ActionTaskCreate, actor.Role); err != nil {
		return domain.Task{}, err
	}
	opts.Title = strings.TrimSpace(opts.Title)
	if opts.Title == "" {
		return domain.Task{}, policy.ValidationError{Field: "title", Reason: "required"}
	}
	if opts.Group == "" {
		opts.Group = e.defaultTaskGroup()
	}
	if opts.DeadlineSeconds <= 0 {
		opts.DeadlineSeconds = int64(e.defaultTaskDeadline() / time.Second)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetVesselTx(ctx, tx, opts.VesselID); err != nil {
		return domain.Task{}, err
	}
	position, number, err := e.Repo.NextTaskSlotTx(ctx, tx, opts.VesselID)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.timestamp()
	t := domain.Task{
		ID:              uuid.NewString(),
		VesselID:        opts.VesselID,
		Number:          number,
		Title:           opts.Title,
		Group:           opts.Group,
		Status:          domain.TaskPending,
		DeadlineSeconds: opts.DeadlineSeconds,
		Position:        position,
		AssigneeID:      opts.AssigneeID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.Repo.InsertTaskTx(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := e.audit(ctx, tx, "TASK_CREATED", opts.VesselID, t.ID, actor); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	e.changed()
	return t, nil
}

func (e Engine) DeleteTask(ctx context.Context, taskID string, actor events.Actor) error {
	if err := policy.Allow(policy.ActionTaskDelete, actor.Role); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteTaskTx(ctx, tx, taskID); err != nil {
		return err
	}
	if err := e.audit(ctx, tx, "TASK_DELETED", t.VesselID, taskID, actor); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.changed()
	return nil
}

// AssignTask rebinds the task's assignee without touching its status.
func (e Engine) AssignTask(ctx context.Context, taskID string, assigneeID *string, actor events.Actor) (domain.Task, error) {
	if err := policy.Allow(policy.ActionTaskAssign, actor.Role); err != nil {
		return domain.Task{}, err
	}
	if assigneeID != nil {
		if _, err := e.Repo.GetUser(ctx, *assigneeID); err != nil {
			return domain.Task{}, err
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.timestamp()
	if err := e.Repo.SetTaskAssigneeTx(ctx, tx, taskID, assigneeID, now); err != nil {
		return domain.Task{}, err
	}
	if err := e.audit(ctx, tx, "TASK_ASSIGNED", t.VesselID, taskID, actor); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	t.AssigneeID = assigneeID
	t.UpdatedAt = now
	e.changed()
	return t, nil
}

// ReorderTasks rewrites positions for the vessel's tasks to match order.
// Ids not belonging to the vessel are skipped.
func (e Engine) ReorderTasks(ctx context.Context, vesselID string, order []string, actor events.Actor) error {
	if err := policy.Allow(policy.ActionTaskReorder, actor.Role); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetVesselTx(ctx, tx, vesselID); err != nil {
		return err
	}
	pos := 1
	for _, id := range order {
		moved, err := e.Repo.SetTaskPositionTx(ctx, tx, vesselID, id, pos)
		if err != nil {
			return err
		}
		if moved {
			pos++
		}
	}
	if err := e.audit(ctx, tx, "TASKS_REORDERED", vesselID, "", actor); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.changed()
	return nil
}
