// Package notify delivers chat notifications for checklist activity. The
// transport is a generic webhook; delivery is best effort and never feeds
// back into the engine.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Action types mirrored in message templates.
const (
	ActionTaskStarted     = "TASK_STARTED"
	ActionTaskPaused      = "TASK_PAUSED"
	ActionTaskDone        = "TASK_DONE"
	ActionCommentAdded    = "COMMENT_ADDED"
	ActionVesselCreated   = "VESSEL_CREATED"
	ActionEndpointStarted = "ENDPOINT_STARTED"
	ActionEndpointDone    = "ENDPOINT_DONE"
)

// Event describes one notifiable action.
type Event struct {
	Action   string
	Vessel   string
	Task     string
	Endpoint string
	User     string
	Comment  string
	At       time.Time
}

// Notifier pushes an event to the chat channel, reporting only whether the
// message went out. Callers must never fail on a false return.
type Notifier interface {
	Notify(ev Event) bool
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(Event) bool { return false }

// Webhook posts formatted messages to a chat-gateway URL.
type Webhook struct {
	URL     string
	Group   string
	Client  *http.Client
	Timeout time.Duration
	Log     zerolog.Logger
}

func NewWebhook(url, group string, timeout time.Duration, log zerolog.Logger) *Webhook {
	return &Webhook{
		URL:     url,
		Group:   group,
		Client:  &http.Client{Timeout: timeout},
		Timeout: timeout,
		Log:     log,
	}
}

func (w *Webhook) Notify(ev Event) bool {
	if w == nil || w.URL == "" {
		return false
	}
	body, err := json.Marshal(map[string]string{
		"group":   w.Group,
		"action":  ev.Action,
		"message": Format(ev),
	})
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		w.Log.Warn().Err(err).Msg("notify: build request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		w.Log.Warn().Err(err).Str("action", ev.Action).Msg("notify: send failed")
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.Log.Warn().Int("status", resp.StatusCode).Str("action", ev.Action).Msg("notify: rejected")
		return false
	}
	return true
}

// Format renders the chat message for an event.
func Format(ev Event) string {
	ts := ev.At.Format("02/01/2006, 15:04:05")
	switch ev.Action {
	case ActionTaskStarted:
		return fmt.Sprintf("🟢 *Task Started*\n📋 %s\n🚢 Vessel: %s\n👤 By: %s\n⏰ %s", ev.Task, ev.Vessel, ev.User, ts)
	case ActionTaskPaused:
		return fmt.Sprintf("⏸️ *Task Paused*\n📋 %s\n🚢 Vessel: %s\n👤 By: %s\n⏰ %s", ev.Task, ev.Vessel, ev.User, ts)
	case ActionTaskDone:
		return fmt.Sprintf("✅ *Task Completed*\n📋 %s\n🚢 Vessel: %s\n👤 By: %s\n⏰ %s", ev.Task, ev.Vessel, ev.User, ts)
	case ActionCommentAdded:
		return fmt.Sprintf("💬 *New Comment*\n📋 Task: %s\n🚢 Vessel: %s\n👤 By: %s\n📝 %q\n⏰ %s", ev.Task, ev.Vessel, ev.User, ev.Comment, ts)
	case ActionVesselCreated:
		return fmt.Sprintf("🚢 *New Vessel Created*\n📛 Name: %s\n👤 By: %s\n⏰ %s", ev.Vessel, ev.User, ts)
	case ActionEndpointStarted:
		return fmt.Sprintf("🟢 *Endpoint Started*\n💻 %s\n🚢 Vessel: %s\n👤 By: %s\n⏰ %s", ev.Endpoint, ev.Vessel, ev.User, ts)
	case ActionEndpointDone:
		return fmt.Sprintf("✅ *Endpoint Completed*\n💻 %s\n🚢 Vessel: %s\n👤 By: %s\n⏰ %s", ev.Endpoint, ev.Vessel, ev.User, ts)
	}
	return fmt.Sprintf("📢 *Action: %s*\n⏰ %s", ev.Action, ts)
}
