package events

import (
	"context"
	"database/sql"
	"time"
)

// Actor identifies who performed an action, plus the request origin.
type Actor struct {
	ID        string
	Name      string
	Role      string
	IP        string
	UserAgent string
}

// Writer appends rows to the audit log inside the caller's transaction.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, action, vesselID, taskID string, actor Actor) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO logs(vessel_id,task_id,action,user_id,user_name,role,ip,user_agent,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		nullable(vesselID), nullable(taskID), action, actor.ID, actor.Name, actor.Role, actor.IP, actor.UserAgent, ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
