package domain

// Role names. Stored verbatim on users and log entries.
const (
	RoleAdmin      = "Admin"
	RoleOnboardEng = "Onboard Eng"
	RoleRemoteTeam = "Remote Team"
	RoleClient     = "Client"
)

// Vessel statuses.
const (
	VesselNotStarted = "not_started"
	VesselInProgress = "in_progress"
	VesselCompleted  = "completed"
)

// Task statuses.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskPaused     = "paused"
	TaskDone       = "done"
)

// Endpoint statuses.
const (
	EndpointNotStarted = "not_started"
	EndpointInProgress = "in_progress"
	EndpointPaused     = "paused"
	EndpointDone       = "done"
)

// Endpoint checklist field values.
const (
	FieldPending = "pending"
	FieldDone    = "done"
	FieldNA      = "na"
)

type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role" enum:"Admin,Onboard Eng,Remote Team,Client"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Vessel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IMO       string `json:"imo,omitempty"`
	Status    string `json:"status" enum:"not_started,in_progress,completed"`
	Hidden    bool   `json:"hidden"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Task struct {
	ID              string       `json:"id"`
	VesselID        string       `json:"vessel_id"`
	Number          int          `json:"number"`
	Title           string       `json:"title"`
	Group           string       `json:"group"`
	Status          string       `json:"status" enum:"pending,in_progress,paused,done"`
	ElapsedSeconds  int64        `json:"elapsed_seconds"`
	DeadlineSeconds int64        `json:"deadline_seconds"`
	Position        int          `json:"position"`
	AssigneeID      *string      `json:"assignee_id,omitempty"`
	Comments        []Comment    `json:"comments,omitempty"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	CreatedAt       string       `json:"created_at" format:"date-time"`
	UpdatedAt       string       `json:"updated_at" format:"date-time"`
}

type Comment struct {
	ID         string  `json:"id"`
	TaskID     string  `json:"task_id"`
	ParentID   *string `json:"parent_id,omitempty"`
	AuthorID   string  `json:"author_id"`
	AuthorName string  `json:"author_name"`
	Role       string  `json:"role"`
	Body       string  `json:"body"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
}

type Attachment struct {
	ID           string `json:"id"`
	TaskID       string `json:"task_id"`
	URL          string `json:"url"`
	OriginalName string `json:"original_name"`
	UploadedAt   string `json:"uploaded_at" format:"date-time"`
}

// Endpoint is one shipboard machine with its software checklist. Fields maps
// checklist keys (tv, adminAcc, crowdstrike, ...) to pending/done/na.
type Endpoint struct {
	ID             string            `json:"id"`
	VesselID       string            `json:"vessel_id"`
	Label          string            `json:"label"`
	Fields         map[string]string `json:"fields"`
	AssigneeID     *string           `json:"assignee_id,omitempty"`
	Status         string            `json:"status" enum:"not_started,in_progress,paused,done"`
	ElapsedSeconds int64             `json:"elapsed_seconds"`
	CreatedAt      string            `json:"created_at" format:"date-time"`
}

// LogEntry is one row of the append-only audit trail.
type LogEntry struct {
	ID        int64   `json:"id"`
	VesselID  *string `json:"vessel_id,omitempty"`
	TaskID    *string `json:"task_id,omitempty"`
	Action    string  `json:"action"`
	UserID    string  `json:"user_id"`
	UserName  string  `json:"user_name"`
	Role      string  `json:"role"`
	IP        string  `json:"ip,omitempty"`
	UserAgent string  `json:"user_agent,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}
