package repo

import (
	"context"
	"database/sql"

	"shipline/internal/domain"
)

const taskCols = `id,vessel_id,task_number,title,task_group,status,elapsed_seconds,deadline_seconds,position,assignee_id,created_at,updated_at`

func (r Repo) InsertTaskTx(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.VesselID, t.Number, t.Title, t.Group, t.Status, t.ElapsedSeconds, t.DeadlineSeconds, t.Position,
		nullablePtr(t.AssigneeID), t.CreatedAt, t.UpdatedAt)
	return err
}

func scanTask(row *sql.Row) (domain.Task, error) {
	var t domain.Task
	var assignee sql.NullString
	err := row.Scan(&t.ID, &t.VesselID, &t.Number, &t.Title, &t.Group, &t.Status, &t.ElapsedSeconds,
		&t.DeadlineSeconds, &t.Position, &assignee, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.AssigneeID = ptrFromNull(assignee)
	return t, err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id))
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(tx.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id))
}

func (r Repo) ListTasksByVessel(ctx context.Context, vesselID string) ([]domain.Task, error) {
	return r.listTasks(ctx, `SELECT `+taskCols+` FROM tasks WHERE vessel_id=? ORDER BY position, task_number`, vesselID)
}

func (r Repo) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return r.listTasks(ctx, `SELECT `+taskCols+` FROM tasks ORDER BY vessel_id, position, task_number`)
}

func (r Repo) listTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		var t domain.Task
		var assignee sql.NullString
		if err := rows.Scan(&t.ID, &t.VesselID, &t.Number, &t.Title, &t.Group, &t.Status, &t.ElapsedSeconds,
			&t.DeadlineSeconds, &t.Position, &assignee, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.AssigneeID = ptrFromNull(assignee)
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpdateTaskStatusTx(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetTaskAssigneeTx(ctx context.Context, tx *sql.Tx, id string, assigneeID *string, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET assignee_id=?, updated_at=? WHERE id=?`, nullablePtr(assigneeID), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTaskTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextTaskSlotTx returns the next position and task number for a vessel.
func (r Repo) NextTaskSlotTx(ctx context.Context, tx *sql.Tx, vesselID string) (position, number int, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position),0)+1, COALESCE(MAX(task_number),0)+1 FROM tasks WHERE vessel_id=?`,
		vesselID).Scan(&position, &number)
	return
}

// SetTaskPositionTx rewrites one task's position, scoped to the vessel so
// foreign ids cannot move rows elsewhere.
func (r Repo) SetTaskPositionTx(ctx context.Context, tx *sql.Tx, vesselID, taskID string, position int) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET position=? WHERE id=? AND vessel_id=?`, position, taskID, vesselID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CountOpenTasksTx counts the vessel's tasks not yet done.
func (r Repo) CountOpenTasksTx(ctx context.Context, tx *sql.Tx, vesselID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE vessel_id=? AND status<>'done'`, vesselID).Scan(&n)
	return n, err
}

// AccrueTasks adds delta seconds to every in_progress task and reports how
// many rows changed. The increment is relative so concurrent writers never
// clobber each other's time.
func (r Repo) AccrueTasks(ctx context.Context, delta int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET elapsed_seconds=elapsed_seconds+? WHERE status='in_progress'`, delta)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
