package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shipline/internal/config"
	"shipline/internal/db"
	"shipline/internal/domain"
	"shipline/internal/engine"
	"shipline/internal/engine/policy"
	"shipline/internal/events"
	"shipline/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Admin  events.Actor
	Crew   events.Actor
	Client events.Actor
}

func newTestEnv(t *testing.T) testEnv {
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
	cfg := config.Default("test-secret")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	env := testEnv{Engine: eng, Ctx: ctx}
	env.Admin = seedActor(t, eng, "boss", domain.RoleAdmin)
	env.Crew = seedActor(t, eng, "eng", domain.RoleOnboardEng)
	env.Client = seedActor(t, eng, "owner", domain.RoleClient)
	return env
}

func seedActor(t *testing.T, eng engine.Engine, name, role string) events.Actor {
	t.Helper()
	u, err := eng.SeedUser(context.Background(), name, role, "secret")
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return events.Actor{ID: u.ID, Name: u.Name, Role: u.Role}
}

func (env testEnv) newVessel(t *testing.T, name string) domain.Vessel {
	t.Helper()
	v, err := env.Engine.CreateVessel(env.Ctx, name, "9000001", env.Admin)
	if err != nil {
		t.Fatalf("create vessel: %v", err)
	}
	return v
}

func (env testEnv) tasks(t *testing.T, vesselID string) []domain.Task {
	t.Helper()
	items, err := env.Engine.Repo.ListTasksByVessel(env.Ctx, vesselID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	return items
}

func TestCreateVesselSeedsTemplate(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	if v.Status != domain.VesselNotStarted {
		t.Fatalf("new vessel status = %s", v.Status)
	}

	tasks := env.tasks(t, v.ID)
	if len(tasks) != 13 {
		t.Fatalf("seeded %d tasks, want 13", len(tasks))
	}
	for i, task := range tasks {
		if task.Position != i+1 {
			t.Fatalf("task %d position = %d", i, task.Position)
		}
		if task.Status != domain.TaskPending {
			t.Fatalf("task %q status = %s", task.Title, task.Status)
		}
	}
	if tasks[0].Title != "Task 1: Verify server rack location and ventilation" {
		t.Fatalf("first task = %q", tasks[0].Title)
	}
	if tasks[12].Group != "Verification" {
		t.Fatalf("last task group = %q", tasks[12].Group)
	}

	endpoints, err := env.Engine.Repo.ListEndpointsByVessel(env.Ctx, v.ID)
	if err != nil {
		t.Fatalf("list endpoints: %v", err)
	}
	if len(endpoints) != 11 {
		t.Fatalf("seeded %d endpoints, want 11", len(endpoints))
	}
	for _, ep := range endpoints {
		if len(ep.Fields) != 24 {
			t.Fatalf("endpoint %q has %d fields", ep.Label, len(ep.Fields))
		}
		for key, val := range ep.Fields {
			if val != domain.FieldPending {
				t.Fatalf("endpoint %q field %s = %s", ep.Label, key, val)
			}
		}
	}
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	task := env.tasks(t, v.ID)[0]

	task, err := env.Engine.StartTask(env.Ctx, task.ID, env.Crew)
	if err != nil || task.Status != domain.TaskInProgress {
		t.Fatalf("start: %v (status %s)", err, task.Status)
	}
	// starting work promotes the vessel
	v, err = env.Engine.GetVessel(env.Ctx, v.ID, env.Admin)
	if err != nil || v.Status != domain.VesselInProgress {
		t.Fatalf("vessel after start: %v (status %s)", err, v.Status)
	}

	task, err = env.Engine.PauseTask(env.Ctx, task.ID, env.Crew)
	if err != nil || task.Status != domain.TaskPaused {
		t.Fatalf("pause: %v (status %s)", err, task.Status)
	}
	task, err = env.Engine.StartTask(env.Ctx, task.ID, env.Crew)
	if err != nil || task.Status != domain.TaskInProgress {
		t.Fatalf("resume: %v (status %s)", err, task.Status)
	}
	task, err = env.Engine.CompleteTask(env.Ctx, task.ID, env.Crew)
	if err != nil || task.Status != domain.TaskDone {
		t.Fatalf("done: %v (status %s)", err, task.Status)
	}

	// done is terminal
	_, err = env.Engine.StartTask(env.Ctx, task.ID, env.Crew)
	var stateErr policy.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("restart done task: %v", err)
	}
	got, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil || got.Status != domain.TaskDone {
		t.Fatalf("rejected transition must not change the row: %v (status %s)", err, got.Status)
	}
}

func TestInvalidTransitionLeavesRowUntouched(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	task := env.tasks(t, v.ID)[0]

	// pending -> paused is not a legal edge
	_, err := env.Engine.PauseTask(env.Ctx, task.ID, env.Crew)
	var stateErr policy.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("pause pending: %v", err)
	}
	got, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil || got.Status != domain.TaskPending {
		t.Fatalf("task after rejected pause: %v (status %s)", err, got.Status)
	}
}

func TestVesselAutoCompletes(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	for _, task := range env.tasks(t, v.ID) {
		if _, err := env.Engine.StartTask(env.Ctx, task.ID, env.Crew); err != nil {
			t.Fatalf("start %q: %v", task.Title, err)
		}
		if _, err := env.Engine.CompleteTask(env.Ctx, task.ID, env.Crew); err != nil {
			t.Fatalf("complete %q: %v", task.Title, err)
		}
	}
	v, err := env.Engine.GetVessel(env.Ctx, v.ID, env.Admin)
	if err != nil || v.Status != domain.VesselCompleted {
		t.Fatalf("vessel after last task: %v (status %s)", err, v.Status)
	}
}

func TestClientCannotCreateVessel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateVessel(env.Ctx, "MV Nope", "", env.Client)
	var forbidden policy.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("client create vessel: %v", err)
	}
	vessels, err := env.Engine.ListVessels(env.Ctx, env.Admin)
	if err != nil || len(vessels) != 0 {
		t.Fatalf("rejected create must not persist: %v (%d vessels)", err, len(vessels))
	}
}

func TestAssigneeCanControlOwnTask(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	task := env.tasks(t, v.ID)[0]

	// unassigned: a client may not drive the task
	if _, err := env.Engine.StartTask(env.Ctx, task.ID, env.Client); err == nil {
		t.Fatalf("expected forbidden for unassigned client")
	}

	if _, err := env.Engine.AssignTask(env.Ctx, task.ID, &env.Client.ID, env.Admin); err != nil {
		t.Fatalf("assign: %v", err)
	}
	task, err := env.Engine.StartTask(env.Ctx, task.ID, env.Client)
	if err != nil || task.Status != domain.TaskInProgress {
		t.Fatalf("assigned client start: %v (status %s)", err, task.Status)
	}
}

func TestHiddenVesselInvisibleToNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Ghost")
	if err := env.Engine.SetVesselHidden(env.Ctx, v.ID, true, env.Admin); err != nil {
		t.Fatalf("hide: %v", err)
	}

	if _, err := env.Engine.GetVessel(env.Ctx, v.ID, env.Client); err == nil {
		t.Fatalf("client must not see hidden vessel")
	}
	vessels, err := env.Engine.ListVessels(env.Ctx, env.Client)
	if err != nil || len(vessels) != 0 {
		t.Fatalf("client list: %v (%d vessels)", err, len(vessels))
	}
	vessels, err = env.Engine.ListVessels(env.Ctx, env.Admin)
	if err != nil || len(vessels) != 1 {
		t.Fatalf("admin list: %v (%d vessels)", err, len(vessels))
	}
}

func TestCommentThreadCascade(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	task := env.tasks(t, v.ID)[0]

	parent, err := env.Engine.AddComment(env.Ctx, task.ID, nil, "switch config backed up", env.Crew)
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	reply, err := env.Engine.AddComment(env.Ctx, task.ID, &parent.ID, "confirmed", env.Admin)
	if err != nil {
		t.Fatalf("add reply: %v", err)
	}
	nested, err := env.Engine.AddComment(env.Ctx, task.ID, &reply.ID, "closing out", env.Crew)
	if err != nil {
		t.Fatalf("add nested reply: %v", err)
	}

	if err := env.Engine.DeleteComment(env.Ctx, parent.ID, env.Admin); err != nil {
		t.Fatalf("delete thread: %v", err)
	}
	for _, id := range []string{parent.ID, reply.ID, nested.ID} {
		if _, err := env.Engine.Repo.GetComment(env.Ctx, id); err == nil {
			t.Fatalf("comment %s survived cascade", id)
		}
	}
}

func TestCommentParentMustShareTask(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	tasks := env.tasks(t, v.ID)

	parent, err := env.Engine.AddComment(env.Ctx, tasks[0].ID, nil, "note", env.Crew)
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	_, err = env.Engine.AddComment(env.Ctx, tasks[1].ID, &parent.ID, "wrong thread", env.Crew)
	var invalid policy.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("cross-task reply: %v", err)
	}
}

func TestEndpointFieldCycle(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	endpoints, err := env.Engine.Repo.ListEndpointsByVessel(env.Ctx, v.ID)
	if err != nil {
		t.Fatalf("list endpoints: %v", err)
	}
	ep := endpoints[0]

	want := []string{domain.FieldDone, domain.FieldNA, domain.FieldPending}
	for _, expected := range want {
		ep, err = env.Engine.CycleEndpointField(env.Ctx, ep.ID, "tv", env.Admin)
		if err != nil {
			t.Fatalf("cycle: %v", err)
		}
		if ep.Fields["tv"] != expected {
			t.Fatalf("field tv = %s, want %s", ep.Fields["tv"], expected)
		}
	}

	_, err = env.Engine.CycleEndpointField(env.Ctx, ep.ID, "no_such_field", env.Admin)
	var invalid policy.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("unknown field: %v", err)
	}
}

func TestReorderTasksIgnoresForeignIDs(t *testing.T) {
	env := newTestEnv(t)
	v1 := env.newVessel(t, "MV Aurora")
	v2 := env.newVessel(t, "MV Borealis")
	tasks := env.tasks(t, v1.ID)
	foreign := env.tasks(t, v2.ID)[0]

	order := []string{tasks[2].ID, foreign.ID, tasks[0].ID, tasks[1].ID}
	for _, task := range tasks[3:] {
		order = append(order, task.ID)
	}
	if err := env.Engine.ReorderTasks(env.Ctx, v1.ID, order, env.Admin); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	got := env.tasks(t, v1.ID)
	if got[0].ID != tasks[2].ID || got[1].ID != tasks[0].ID {
		t.Fatalf("order after reorder: %s, %s", got[0].Title, got[1].Title)
	}
	// the foreign id must not be pulled into this vessel's ordering
	other := env.tasks(t, v2.ID)
	if other[0].ID != foreign.ID {
		t.Fatalf("foreign vessel order changed")
	}
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	u, err := env.Engine.Authenticate(env.Ctx, "boss", "secret")
	if err != nil || u.Role != domain.RoleAdmin {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := env.Engine.Authenticate(env.Ctx, "boss", "wrong"); !errors.Is(err, engine.ErrBadCredentials) {
		t.Fatalf("bad password: %v", err)
	}
	if _, err := env.Engine.Authenticate(env.Ctx, "nobody", "secret"); !errors.Is(err, engine.ErrBadCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestDeleteVesselCascades(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	task := env.tasks(t, v.ID)[0]
	if _, err := env.Engine.AddComment(env.Ctx, task.ID, nil, "note", env.Crew); err != nil {
		t.Fatalf("add comment: %v", err)
	}

	if err := env.Engine.DeleteVessel(env.Ctx, v.ID, env.Admin); err != nil {
		t.Fatalf("delete vessel: %v", err)
	}
	if tasks := env.tasks(t, v.ID); len(tasks) != 0 {
		t.Fatalf("%d tasks survived vessel delete", len(tasks))
	}
	endpoints, err := env.Engine.Repo.ListEndpointsByVessel(env.Ctx, v.ID)
	if err != nil || len(endpoints) != 0 {
		t.Fatalf("endpoints after delete: %v (%d)", err, len(endpoints))
	}
}

func TestEndpointControlRequiresAssignment(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	endpoints, err := env.Engine.Repo.ListEndpointsByVessel(env.Ctx, v.ID)
	if err != nil {
		t.Fatalf("list endpoints: %v", err)
	}
	ep := endpoints[0]

	// an engineer who is not the assignee may neither toggle nor start
	var forbidden policy.ForbiddenError
	if _, err := env.Engine.CycleEndpointField(env.Ctx, ep.ID, "tv", env.Crew); !errors.As(err, &forbidden) {
		t.Fatalf("foreign field toggle: %v", err)
	}
	if _, err := env.Engine.StartEndpoint(env.Ctx, ep.ID, env.Crew); !errors.As(err, &forbidden) {
		t.Fatalf("foreign start: %v", err)
	}
	got, err := env.Engine.Repo.GetEndpoint(env.Ctx, ep.ID)
	if err != nil {
		t.Fatalf("get endpoint: %v", err)
	}
	if got.Fields["tv"] != domain.FieldPending {
		t.Fatalf("field tv after rejected toggle = %s, want %s", got.Fields["tv"], domain.FieldPending)
	}
	if got.Status != domain.EndpointNotStarted {
		t.Fatalf("status after rejected start = %s", got.Status)
	}

	if _, err := env.Engine.AssignEndpoint(env.Ctx, ep.ID, &env.Crew.ID, env.Admin); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// as assignee the same engineer controls the endpoint
	got, err = env.Engine.StartEndpoint(env.Ctx, ep.ID, env.Crew)
	if err != nil || got.Status != domain.EndpointInProgress {
		t.Fatalf("assignee start: %v (status %s)", err, got.Status)
	}
	got, err = env.Engine.CycleEndpointField(env.Ctx, ep.ID, "tv", env.Crew)
	if err != nil || got.Fields["tv"] != domain.FieldDone {
		t.Fatalf("assignee toggle: %v", err)
	}
	got, err = env.Engine.CompleteEndpoint(env.Ctx, ep.ID, env.Crew)
	if err != nil || got.Status != domain.EndpointDone {
		t.Fatalf("assignee complete: %v (status %s)", err, got.Status)
	}

	var stateErr policy.StateError
	if _, err := env.Engine.CompleteEndpoint(env.Ctx, ep.ID, env.Crew); !errors.As(err, &stateErr) {
		t.Fatalf("second complete: %v", err)
	}
}

func TestCreateTaskUsesConfiguredDefaults(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")
	env.Engine.Config.Tasks.DefaultGroup = "Networking"
	env.Engine.Config.Tasks.DefaultDeadline = "30m"

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		VesselID: v.ID,
		Title:    "Patch the switch firmware",
	}, env.Admin)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Group != "Networking" {
		t.Fatalf("group = %s, want Networking", task.Group)
	}
	if task.DeadlineSeconds != 1800 {
		t.Fatalf("deadline = %d, want 1800", task.DeadlineSeconds)
	}
}

func TestLogTimestampsFollowEngineClock(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVessel(t, "MV Aurora")

	logs, err := env.Engine.Repo.ListLogsByVessel(env.Ctx, v.ID, 10)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) == 0 {
		t.Fatal("no logs after vessel create")
	}
	if logs[0].Action != "VESSEL_CREATED" {
		t.Fatalf("action = %s", logs[0].Action)
	}
	if logs[0].CreatedAt != "2026-03-01T12:00:00Z" {
		t.Fatalf("created_at = %s, want the fixed clock", logs[0].CreatedAt)
	}
}
