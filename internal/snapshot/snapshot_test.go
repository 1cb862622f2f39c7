package snapshot

import (
	"context"
	"testing"
	"time"

	"shipline/internal/config"
	"shipline/internal/db"
	"shipline/internal/domain"
	"shipline/internal/engine"
	"shipline/internal/events"
	"shipline/internal/migrate"
)

func newBuilderEnv(t *testing.T) (engine.Engine, *Builder, events.Actor) {
	t.Helper()
	dir := t.TempDir()
	if _, err := db.EnsureWorkspace(dir); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default("test-secret"))
	u, err := eng.SeedUser(context.Background(), "boss", domain.RoleAdmin, "secret")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	actor := events.Actor{ID: u.ID, Name: u.Name, Role: u.Role}
	b := NewBuilder(eng.Repo, 500*time.Millisecond)
	return eng, b, actor
}

func TestForRoleFiltersHiddenVessels(t *testing.T) {
	eng, b, actor := newBuilderEnv(t)
	ctx := context.Background()
	v, err := eng.CreateVessel(ctx, "MV Ghost", "", actor)
	if err != nil {
		t.Fatalf("create vessel: %v", err)
	}
	if err := eng.SetVesselHidden(ctx, v.ID, true, actor); err != nil {
		t.Fatalf("hide: %v", err)
	}

	admin, err := b.ForRole(ctx, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("admin snapshot: %v", err)
	}
	if len(admin.Vessels) != 1 || len(admin.Tasks) != 13 || len(admin.Endpoints) != 11 {
		t.Fatalf("admin snapshot: %d vessels, %d tasks, %d endpoints",
			len(admin.Vessels), len(admin.Tasks), len(admin.Endpoints))
	}

	client, err := b.ForRole(ctx, domain.RoleClient)
	if err != nil {
		t.Fatalf("client snapshot: %v", err)
	}
	if len(client.Vessels) != 0 || len(client.Tasks) != 0 || len(client.Endpoints) != 0 {
		t.Fatalf("client snapshot leaks hidden vessel: %d vessels, %d tasks, %d endpoints",
			len(client.Vessels), len(client.Tasks), len(client.Endpoints))
	}
	// vessel-scoped audit entries stay hidden too
	for _, l := range client.Logs {
		if l.VesselID != nil && *l.VesselID == v.ID {
			t.Fatalf("client snapshot leaks log for hidden vessel")
		}
	}
}

func TestSnapshotNestsCommentsIntoTasks(t *testing.T) {
	eng, b, actor := newBuilderEnv(t)
	ctx := context.Background()
	v, err := eng.CreateVessel(ctx, "MV Aurora", "", actor)
	if err != nil {
		t.Fatalf("create vessel: %v", err)
	}
	tasks, _ := eng.Repo.ListTasksByVessel(ctx, v.ID)
	if _, err := eng.AddComment(ctx, tasks[0].ID, nil, "note", actor); err != nil {
		t.Fatalf("add comment: %v", err)
	}

	snap, err := b.ForRole(ctx, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	var found bool
	for _, task := range snap.Tasks {
		if task.ID == tasks[0].ID {
			found = len(task.Comments) == 1 && task.Comments[0].Body == "note"
		}
	}
	if !found {
		t.Fatalf("comment not nested into its task")
	}
}

func TestCacheServesWithinTTLAndInvalidates(t *testing.T) {
	eng, b, actor := newBuilderEnv(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	b.Now = func() time.Time { return now }

	first, err := b.ForRole(ctx, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// a write the cache has not seen yet
	if _, err := eng.CreateVessel(ctx, "MV Aurora", "", actor); err != nil {
		t.Fatalf("create vessel: %v", err)
	}

	now = base.Add(100 * time.Millisecond)
	cachedSnap, err := b.ForRole(ctx, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("cached snapshot: %v", err)
	}
	if cachedSnap != first {
		t.Fatalf("expected cached snapshot within TTL")
	}

	b.Invalidate()
	fresh, err := b.ForRole(ctx, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("fresh snapshot: %v", err)
	}
	if len(fresh.Vessels) != 1 {
		t.Fatalf("fresh snapshot has %d vessels", len(fresh.Vessels))
	}

	// TTL expiry alone also forces a rebuild
	b.Invalidate()
	stale, _ := b.ForRole(ctx, domain.RoleAdmin)
	now = now.Add(time.Second)
	rebuilt, err := b.ForRole(ctx, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("rebuilt snapshot: %v", err)
	}
	if rebuilt == stale {
		t.Fatalf("expected rebuild after TTL expiry")
	}
}
