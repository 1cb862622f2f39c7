package repo

import (
	"context"
	"database/sql"

	"shipline/internal/domain"
)

func (r Repo) InsertVesselTx(ctx context.Context, tx *sql.Tx, v domain.Vessel) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO vessels(id,name,imo,status,hidden,created_at) VALUES (?,?,?,?,?,?)`,
		v.ID, v.Name, v.IMO, v.Status, boolInt(v.Hidden), v.CreatedAt)
	return err
}

func scanVessel(row *sql.Row) (domain.Vessel, error) {
	var v domain.Vessel
	var hidden int
	err := row.Scan(&v.ID, &v.Name, &v.IMO, &v.Status, &hidden, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	v.Hidden = hidden != 0
	return v, err
}

func (r Repo) GetVessel(ctx context.Context, id string) (domain.Vessel, error) {
	return scanVessel(r.DB.QueryRowContext(ctx, `SELECT id,name,imo,status,hidden,created_at FROM vessels WHERE id=?`, id))
}

func (r Repo) GetVesselTx(ctx context.Context, tx *sql.Tx, id string) (domain.Vessel, error) {
	return scanVessel(tx.QueryRowContext(ctx, `SELECT id,name,imo,status,hidden,created_at FROM vessels WHERE id=?`, id))
}

// ListVessels returns vessels ordered by creation. Hidden vessels are
// excluded unless includeHidden.
func (r Repo) ListVessels(ctx context.Context, includeHidden bool) ([]domain.Vessel, error) {
	query := `SELECT id,name,imo,status,hidden,created_at FROM vessels`
	if !includeHidden {
		query += ` WHERE hidden=0`
	}
	query += ` ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Vessel
	for rows.Next() {
		var v domain.Vessel
		var hidden int
		if err := rows.Scan(&v.ID, &v.Name, &v.IMO, &v.Status, &hidden, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Hidden = hidden != 0
		res = append(res, v)
	}
	return res, rows.Err()
}

func (r Repo) UpdateVesselStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE vessels SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) RenameVesselTx(ctx context.Context, tx *sql.Tx, id, name, imo string) error {
	res, err := tx.ExecContext(ctx, `UPDATE vessels SET name=?, imo=? WHERE id=?`, name, imo, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetVesselHiddenTx(ctx context.Context, tx *sql.Tx, id string, hidden bool) error {
	res, err := tx.ExecContext(ctx, `UPDATE vessels SET hidden=? WHERE id=?`, boolInt(hidden), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVesselTx removes the vessel; tasks, comments, attachments, endpoints
// and logs follow via ON DELETE CASCADE.
func (r Repo) DeleteVesselTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM vessels WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
