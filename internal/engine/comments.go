package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"shipline/internal/domain"
	"shipline/internal/engine/policy"
	"shipline/internal/events"
	"shipline/internal/notify"
)

// AddComment attaches a comment (or a reply when parentID is set) to a task.
func (e Engine) AddComment(ctx context.Context, taskID string, parentID *string, body string, actor events.Actor) (domain.Comment, error) {
	if err := policy.Allow(policy.ActionCommentAdd, actor.Role); err != nil {
		return domain.Comment{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Comment{}, policy.ValidationError{Field: "body", Reason: "required"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Comment{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return domain.Comment{}, err
	}
	if parentID != nil {
		parent, err := e.Repo.GetCommentTx(ctx, tx, *parentID)
		if err != nil {
			return domain.Comment{}, err
		}
		if parent.TaskID != taskID {
			return domain.Comment{}, policy.ValidationError{Field: "parent_id", Reason: "belongs to another task"}
		}
	}
	v, err := e.Repo.GetVesselTx(ctx, tx, t.VesselID)
	if err != nil {
		return domain.Comment{}, err
	}
	c := domain.Comment{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		ParentID:   parentID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Role:       actor.Role,
		Body:       body,
		CreatedAt:  e.timestamp(),
	}
	if err := e.Repo.InsertCommentTx(ctx, tx, c); err != nil {
		return domain.Comment{}, err
	}
	if err := e.audit(ctx, tx, "COMMENT_ADDED", t.VesselID, taskID, actor); err != nil {
		return domain.Comment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Comment{}, err
	}
	e.changed()
	e.fire(notify.Event{Action: notify.ActionCommentAdded, Vessel: v.Name, Task: t.Title, User: actor.Name, Comment: body, At: e.now()})
	return c, nil
}

func (e Engine) EditComment(ctx context.Context, commentID, body string, actor events.Actor) (domain.Comment, error) {
	if err := policy.Allow(policy.ActionCommentEdit, actor.Role); err != nil {
		return domain.Comment{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Comment{}, policy.ValidationError{Field: "body", Reason: "required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Comment{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCommentTx(ctx, tx, commentID)
	if err != nil {
		return domain.Comment{}, err
	}
	t, err := e.Repo.GetTaskTx(ctx, tx, c.TaskID)
	if err != nil {
		return domain.Comment{}, err
	}
	if err := e.Repo.UpdateCommentBodyTx(ctx, tx, commentID, body); err != nil {
		return domain.Comment{}, err
	}
	if err := e.audit(ctx, tx, "COMMENT_EDITED", t.VesselID, c.TaskID, actor); err != nil {
		return domain.Comment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Comment{}, err
	}
	c.Body = body
	e.changed()
	return c, nil
}

// DeleteComment removes a comment and its whole reply thread.
func (e Engine) DeleteComment(ctx context.Context, commentID string, actor events.Actor) error {
	if err := policy.Allow(policy.ActionCommentDelete, actor.Role); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCommentTx(ctx, tx, commentID)
	if err != nil {
		return err
	}
	t, err := e.Repo.GetTaskTx(ctx, tx, c.TaskID)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteCommentThreadTx(ctx, tx, commentID); err != nil {
		return err
	}
	if err := e.audit(ctx, tx, "COMMENT_DELETED", t.VesselID, c.TaskID, actor); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.changed()
	return nil
}

// AddAttachment records an uploaded file against a task. The blob itself is
// stored by the caller (see internal/blob); url points at it.
func (e Engine) AddAttachment(ctx context.Context, taskID, url, originalName string, actor events.Actor) (domain.Attachment, error) {
	if err := policy.Allow(policy.ActionAttachmentAdd, actor.Role); err != nil {
		return domain.Attachment{}, err
	}
	if url == "" {
		return domain.Attachment{}, policy.ValidationError{Field: "url", Reason: "required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Attachment{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return domain.Attachment{}, err
	}
	a := domain.Attachment{
		ID:           uuid.NewString(),
		TaskID:       taskID,
		URL:          url,
		OriginalName: originalName,
		UploadedAt:   e.timestamp(),
	}
	if err := e.Repo.InsertAttachmentTx(ctx, tx, a); err != nil {
		return domain.Attachment{}, err
	}
	if err := e.audit(ctx, tx, "ATTACHMENT_ADDED", t.VesselID, taskID, actor); err != nil {
		return domain.Attachment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Attachment{}, err
	}
	e.changed()
	return a, nil
}
