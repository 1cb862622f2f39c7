// Package snapshot assembles the full client-facing state and caches it
// briefly so a burst of readers does not hammer the store.
package snapshot

import (
	"context"
	"sync"
	"time"

	"shipline/internal/domain"
	"shipline/internal/engine/policy"
	"shipline/internal/repo"
)

const logLimit = 500

// Snapshot is the complete visible state pushed to clients.
type Snapshot struct {
	Vessels     []domain.Vessel   `json:"vessels"`
	Tasks       []domain.Task     `json:"tasks"`
	Endpoints   []domain.Endpoint `json:"endpoints"`
	Logs        []domain.LogEntry `json:"logs"`
	Users       []domain.User     `json:"users"`
	GeneratedAt string            `json:"generated_at" format:"date-time"`
}

// Builder caches one snapshot per visibility class (full or client-filtered)
// for a sub-second TTL. Invalidate drops both after any committed mutation.
type Builder struct {
	Repo repo.Repo
	TTL  time.Duration
	Now  func() time.Time

	mu    sync.Mutex
	cache map[bool]cached
}

type cached struct {
	snap    *Snapshot
	builtAt time.Time
}

func NewBuilder(r repo.Repo, ttl time.Duration) *Builder {
	if ttl <= 0 {
		ttl = 500 * time.Millisecond
	}
	return &Builder{
		Repo:  r,
		TTL:   ttl,
		Now:   time.Now,
		cache: make(map[bool]cached),
	}
}

// ForRole returns the snapshot visible to the given role, at most TTL stale.
func (b *Builder) ForRole(ctx context.Context, role string) (*Snapshot, error) {
	full := policy.CanSeeHidden(role)

	b.mu.Lock()
	if c, ok := b.cache[full]; ok && b.Now().Sub(c.builtAt) < b.TTL {
		b.mu.Unlock()
		return c.snap, nil
	}
	b.mu.Unlock()

	snap, err := b.build(ctx, full)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.cache[full] = cached{snap: snap, builtAt: b.Now()}
	b.mu.Unlock()
	return snap, nil
}

// Invalidate drops all cached variants.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	b.cache = make(map[bool]cached)
	b.mu.Unlock()
}

func (b *Builder) build(ctx context.Context, includeHidden bool) (*Snapshot, error) {
	vessels, err := b.Repo.ListVessels(ctx, includeHidden)
	if err != nil {
		return nil, err
	}
	visible := make(map[string]bool, len(vessels))
	for _, v := range vessels {
		visible[v.ID] = true
	}

	allTasks, err := b.Repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	comments, err := b.Repo.ListComments(ctx)
	if err != nil {
		return nil, err
	}
	attachments, err := b.Repo.ListAttachments(ctx)
	if err != nil {
		return nil, err
	}
	commentsByTask := make(map[string][]domain.Comment)
	for _, c := range comments {
		commentsByTask[c.TaskID] = append(commentsByTask[c.TaskID], c)
	}
	attachmentsByTask := make(map[string][]domain.Attachment)
	for _, a := range attachments {
		attachmentsByTask[a.TaskID] = append(attachmentsByTask[a.TaskID], a)
	}

	tasks := make([]domain.Task, 0, len(allTasks))
	for _, t := range allTasks {
		if !visible[t.VesselID] {
			continue
		}
		t.Comments = commentsByTask[t.ID]
		t.Attachments = attachmentsByTask[t.ID]
		tasks = append(tasks, t)
	}

	allEndpoints, err := b.Repo.ListEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	endpoints := make([]domain.Endpoint, 0, len(allEndpoints))
	for _, ep := range allEndpoints {
		if visible[ep.VesselID] {
			endpoints = append(endpoints, ep)
		}
	}

	allLogs, err := b.Repo.ListLogs(ctx, logLimit)
	if err != nil {
		return nil, err
	}
	logs := make([]domain.LogEntry, 0, len(allLogs))
	for _, l := range allLogs {
		if l.VesselID == nil || visible[*l.VesselID] {
			logs = append(logs, l)
		}
	}

	users, err := b.Repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Vessels:     vessels,
		Tasks:       tasks,
		Endpoints:   endpoints,
		Logs:        logs,
		Users:       users,
		GeneratedAt: b.Now().UTC().Format(time.RFC3339),
	}, nil
}
