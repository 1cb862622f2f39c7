package engine

import (
	"context"
	"database/sql"
	"time"

	"shipline/internal/config"
	"shipline/internal/events"
	"shipline/internal/notify"
	"shipline/internal/repo"
)

// Engine owns every state change. All mutations run in a transaction with
// an audit log append; OnChange fires after commit so the snapshot layer
// can invalidate and push.
type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Notifier notify.Notifier
	OnChange func()
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Config:   cfg,
		Notifier: notify.Nop{},
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// audit appends a log row inside the caller's transaction, stamped with
// the engine's clock so fixed clocks produce fixed timestamps.
func (e Engine) audit(ctx context.Context, tx *sql.Tx, action, vesselID, taskID string, actor events.Actor) error {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w.Append(ctx, tx, action, vesselID, taskID, actor)
}

func (e Engine) defaultTaskGroup() string {
	if e.Config != nil {
		return e.Config.DefaultTaskGroup()
	}
	return "General"
}

func (e Engine) defaultTaskDeadline() time.Duration {
	if e.Config != nil {
		return e.Config.DefaultTaskDeadline()
	}
	return time.Hour
}

// changed signals committed state to the push layer.
func (e Engine) changed() {
	if e.OnChange != nil {
		e.OnChange()
	}
}

// fire sends a chat notification without blocking the caller. Delivery is
// best effort; a transition never fails because the webhook did.
func (e Engine) fire(ev notify.Event) {
	if e.Notifier == nil {
		return
	}
	go e.Notifier.Notify(ev)
}
