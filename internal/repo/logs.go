package repo

import (
	"context"
	"database/sql"

	"shipline/internal/domain"
)

const logCols = `id,vessel_id,task_id,action,user_id,user_name,role,ip,user_agent,created_at`

func (r Repo) ListLogsByVessel(ctx context.Context, vesselID string, limit int) ([]domain.LogEntry, error) {
	query := `SELECT ` + logCols + ` FROM logs WHERE vessel_id=? ORDER BY id DESC`
	args := []any{vesselID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.listLogs(ctx, query, args...)
}

func (r Repo) ListLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	query := `SELECT ` + logCols + ` FROM logs ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.listLogs(ctx, query, args...)
}

func (r Repo) listLogs(ctx context.Context, query string, args ...any) ([]domain.LogEntry, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.LogEntry
	for rows.Next() {
		var l domain.LogEntry
		var vesselID, taskID sql.NullString
		if err := rows.Scan(&l.ID, &vesselID, &taskID, &l.Action, &l.UserID, &l.UserName, &l.Role, &l.IP, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.VesselID = ptrFromNull(vesselID)
		l.TaskID = ptrFromNull(taskID)
		res = append(res, l)
	}
	return res, rows.Err()
}
