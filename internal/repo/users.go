package repo

import (
	"context"
	"database/sql"

	"shipline/internal/domain"
)

// UserRecord carries the stored credential hash alongside the public user.
type UserRecord struct {
	domain.User
	PasswordHash string
}

func (r Repo) InsertUser(ctx context.Context, u domain.User, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,name,role,password_hash,created_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Name, u.Role, passwordHash, u.CreatedAt)
	return err
}

func scanUser(row *sql.Row) (UserRecord, error) {
	var u UserRecord
	err := row.Scan(&u.ID, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) GetUser(ctx context.Context, id string) (UserRecord, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT id,name,role,password_hash,created_at FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByName(ctx context.Context, name string) (UserRecord, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT id,name,role,password_hash,created_at FROM users WHERE name=?`, name))
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,role,created_at FROM users ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}
