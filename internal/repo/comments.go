package repo

import (
	"context"
	"database/sql"

	"shipline/internal/domain"
)

const commentCols = `id,task_id,parent_id,author_id,author_name,role,body,created_at`

func (r Repo) InsertCommentTx(ctx context.Context, tx *sql.Tx, c domain.Comment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO task_comments(`+commentCols+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.TaskID, nullablePtr(c.ParentID), c.AuthorID, c.AuthorName, c.Role, c.Body, c.CreatedAt)
	return err
}

func scanComment(row *sql.Row) (domain.Comment, error) {
	var c domain.Comment
	var parent sql.NullString
	err := row.Scan(&c.ID, &c.TaskID, &parent, &c.AuthorID, &c.AuthorName, &c.Role, &c.Body, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	c.ParentID = ptrFromNull(parent)
	return c, err
}

func (r Repo) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	return scanComment(r.DB.QueryRowContext(ctx, `SELECT `+commentCols+` FROM task_comments WHERE id=?`, id))
}

func (r Repo) GetCommentTx(ctx context.Context, tx *sql.Tx, id string) (domain.Comment, error) {
	return scanComment(tx.QueryRowContext(ctx, `SELECT `+commentCols+` FROM task_comments WHERE id=?`, id))
}

func (r Repo) ListCommentsByTask(ctx context.Context, taskID string) ([]domain.Comment, error) {
	return r.listComments(ctx, `SELECT `+commentCols+` FROM task_comments WHERE task_id=? ORDER BY created_at, id`, taskID)
}

func (r Repo) ListComments(ctx context.Context) ([]domain.Comment, error) {
	return r.listComments(ctx, `SELECT `+commentCols+` FROM task_comments ORDER BY created_at, id`)
}

func (r Repo) listComments(ctx context.Context, query string, args ...any) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var parent sql.NullString
		if err := rows.Scan(&c.ID, &c.TaskID, &parent, &c.AuthorID, &c.AuthorName, &c.Role, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.ParentID = ptrFromNull(parent)
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateCommentBodyTx(ctx context.Context, tx *sql.Tx, id, body string) error {
	res, err := tx.ExecContext(ctx, `UPDATE task_comments SET body=? WHERE id=?`, body, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCommentThreadTx removes a comment and every transitive reply using a
// recursive CTE, so no orphaned replies survive.
func (r Repo) DeleteCommentThreadTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `
WITH RECURSIVE thread(id) AS (
    SELECT id FROM task_comments WHERE id=?
    UNION ALL
    SELECT c.id FROM task_comments c JOIN thread t ON c.parent_id=t.id
)
DELETE FROM task_comments WHERE id IN (SELECT id FROM thread)`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
