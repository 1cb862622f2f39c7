package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"shipline/internal/domain"
)

const endpointCols = `id,vessel_id,label,fields_json,assignee_id,status,elapsed_seconds,created_at`

func (r Repo) InsertEndpointTx(ctx context.Context, tx *sql.Tx, e domain.Endpoint) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("marshal endpoint fields: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO endpoints(`+endpointCols+`) VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.VesselID, e.Label, string(fields), nullablePtr(e.AssigneeID), e.Status, e.ElapsedSeconds, e.CreatedAt)
	return err
}

func scanEndpoint(row *sql.Row) (domain.Endpoint, error) {
	var e domain.Endpoint
	var fieldsJSON string
	var assignee sql.NullString
	err := row.Scan(&e.ID, &e.VesselID, &e.Label, &fieldsJSON, &assignee, &e.Status, &e.ElapsedSeconds, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	e.AssigneeID = ptrFromNull(assignee)
	if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
		return e, fmt.Errorf("unmarshal endpoint fields: %w", err)
	}
	return e, nil
}

func (r Repo) GetEndpoint(ctx context.Context, id string) (domain.Endpoint, error) {
	return scanEndpoint(r.DB.QueryRowContext(ctx, `SELECT `+endpointCols+` FROM endpoints WHERE id=?`, id))
}

func (r Repo) GetEndpointTx(ctx context.Context, tx *sql.Tx, id string) (domain.Endpoint, error) {
	return scanEndpoint(tx.QueryRowContext(ctx, `SELECT `+endpointCols+` FROM endpoints WHERE id=?`, id))
}

func (r Repo) ListEndpointsByVessel(ctx context.Context, vesselID string) ([]domain.Endpoint, error) {
	return r.listEndpoints(ctx, `SELECT `+endpointCols+` FROM endpoints WHERE vessel_id=? ORDER BY created_at, id`, vesselID)
}

func (r Repo) ListEndpoints(ctx context.Context) ([]domain.Endpoint, error) {
	return r.listEndpoints(ctx, `SELECT `+endpointCols+` FROM endpoints ORDER BY vessel_id, created_at, id`)
}

func (r Repo) listEndpoints(ctx context.Context, query string, args ...any) ([]domain.Endpoint, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Endpoint
	for rows.Next() {
		var e domain.Endpoint
		var fieldsJSON string
		var assignee sql.NullString
		if err := rows.Scan(&e.ID, &e.VesselID, &e.Label, &fieldsJSON, &assignee, &e.Status, &e.ElapsedSeconds, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.AssigneeID = ptrFromNull(assignee)
		if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal endpoint fields: %w", err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) UpdateEndpointFieldsTx(ctx context.Context, tx *sql.Tx, id string, fields map[string]string) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal endpoint fields: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE endpoints SET fields_json=? WHERE id=?`, string(data), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateEndpointStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE endpoints SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetEndpointAssigneeTx(ctx context.Context, tx *sql.Tx, id string, assigneeID *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE endpoints SET assignee_id=? WHERE id=?`, nullablePtr(assigneeID), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AccrueEndpoints adds delta seconds to every in_progress endpoint.
func (r Repo) AccrueEndpoints(ctx context.Context, delta int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE endpoints SET elapsed_seconds=elapsed_seconds+? WHERE status='in_progress'`, delta)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
