package repo

import (
	"context"
	"database/sql"

	"shipline/internal/domain"
)

func (r Repo) InsertAttachmentTx(ctx context.Context, tx *sql.Tx, a domain.Attachment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO task_attachments(id,task_id,url,original_name,uploaded_at) VALUES (?,?,?,?,?)`,
		a.ID, a.TaskID, a.URL, a.OriginalName, a.UploadedAt)
	return err
}

func (r Repo) ListAttachmentsByTask(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	return r.listAttachments(ctx, `SELECT id,task_id,url,original_name,uploaded_at FROM task_attachments WHERE task_id=? ORDER BY uploaded_at, id`, taskID)
}

func (r Repo) ListAttachments(ctx context.Context) ([]domain.Attachment, error) {
	return r.listAttachments(ctx, `SELECT id,task_id,url,original_name,uploaded_at FROM task_attachments ORDER BY uploaded_at, id`)
}

func (r Repo) listAttachments(ctx context.Context, query string, args ...any) ([]domain.Attachment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.URL, &a.OriginalName, &a.UploadedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) DeleteAttachmentTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM task_attachments WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
