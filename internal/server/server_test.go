package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"shipline/internal/config"
	"shipline/internal/db"
	"shipline/internal/domain"
	"shipline/internal/engine"
	"shipline/internal/hub"
	"shipline/internal/migrate"
	"shipline/internal/snapshot"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("test-secret")
	e := engine.New(conn, cfg)
	ctx := context.Background()
	for _, u := range []struct{ name, role string }{
		{"admin", domain.RoleAdmin},
		{"eng", domain.RoleOnboardEng},
		{"owner", domain.RoleClient},
	} {
		if _, err := e.SeedUser(ctx, u.name, u.role, "secret"); err != nil {
			t.Fatalf("seed %s: %v", u.name, err)
		}
	}

	builder := snapshot.NewBuilder(e.Repo, cfg.SnapshotTTL())
	h := hub.New(builder, zerolog.Nop())
	e.OnChange = func() {
		builder.Invalidate()
		h.Broadcast(ctx)
	}

	handler, err := New(Config{
		Engine:    e,
		Snapshots: builder,
		Hub:       h,
		BasePath:  "/v1",
		Auth:      AuthConfig{JWTSecret: cfg.Auth.JWTSecret, TokenTTL: time.Hour},
		Log:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func login(t *testing.T, ts *testServer, name string) string {
	t.Helper()
	resp, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/auth/login",
		LoginRequest{Name: name, Password: "secret"}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d %s", name, resp.StatusCode, data)
	}
	var out LoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if out.Token == "" {
		t.Fatalf("empty token")
	}
	return out.Token
}

func TestLoginAndAuthGate(t *testing.T) {
	ts := newTestServer(t)

	// no token
	resp, _ := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/snapshot", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated snapshot: %d", resp.StatusCode)
	}

	// bad password
	resp, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/auth/login",
		LoginRequest{Name: "admin", Password: "nope"}, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: %d %s", resp.StatusCode, data)
	}

	token := login(t, ts, "admin")
	resp, _ = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/snapshot", nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated snapshot: %d", resp.StatusCode)
	}
}

func TestHealthIsOpen(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/health", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %d", resp.StatusCode)
	}
}

func TestVesselFlow(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin")

	resp, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/vessels",
		CreateVesselRequest{Name: "MV Aurora", IMO: "9321483"}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create vessel: %d %s", resp.StatusCode, data)
	}
	var v domain.Vessel
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode vessel: %v", err)
	}

	resp, data = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/vessels/"+v.ID+"/tasks", nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list tasks: %d %s", resp.StatusCode, data)
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 13 {
		t.Fatalf("seeded %d tasks", len(tasks))
	}

	resp, data = doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/tasks/"+tasks[0].ID+"/start", nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start task: %d %s", resp.StatusCode, data)
	}
	var started domain.Task
	if err := json.Unmarshal(data, &started); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if started.Status != domain.TaskInProgress {
		t.Fatalf("task status = %s", started.Status)
	}
}

func TestErrorEnvelope(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "owner")

	// clients may not create vessels
	resp, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/vessels",
		CreateVesselRequest{Name: "MV Nope"}, token)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("client create vessel: %d %s", resp.StatusCode, data)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, data)
	}
	if envelope.Error.Code != "forbidden" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}

	// unknown resource
	resp, data = doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/tasks/no-such-task/start", nil, login(t, ts, "admin"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing task: %d %s", resp.StatusCode, data)
	}
}

func TestInvalidTransitionConflict(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin")

	_, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/vessels",
		CreateVesselRequest{Name: "MV Aurora"}, token)
	var v domain.Vessel
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode vessel: %v", err)
	}
	_, data = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/vessels/"+v.ID+"/tasks", nil, token)
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}

	// pausing a pending task is not a legal transition
	resp, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/tasks/"+tasks[0].ID+"/pause", nil, token)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("pause pending: %d %s", resp.StatusCode, data)
	}
}

func TestSnapshotHidesVesselsFromClients(t *testing.T) {
	ts := newTestServer(t)
	admin := login(t, ts, "admin")
	owner := login(t, ts, "owner")

	_, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/vessels",
		CreateVesselRequest{Name: "MV Ghost"}, admin)
	var v domain.Vessel
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode vessel: %v", err)
	}
	resp, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/vessels/"+v.ID+"/visibility",
		VesselVisibilityRequest{Hidden: true}, admin)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("hide vessel: %d %s", resp.StatusCode, data)
	}

	_, data = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/snapshot", nil, owner)
	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Vessels) != 0 {
		t.Fatalf("client snapshot shows %d vessels", len(snap.Vessels))
	}

	_, data = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/snapshot", nil, admin)
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Vessels) != 1 {
		t.Fatalf("admin snapshot shows %d vessels", len(snap.Vessels))
	}
}

func TestWebSocketPush(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin")

	wsURL := "ws" + ts.URL[len("http"):] + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	// the server pushes a snapshot on connect
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string            `json:"type"`
		Data snapshot.Snapshot `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if msg.Type != "snapshot" {
		t.Fatalf("message type = %q", msg.Type)
	}

	// a mutation broadcast reaches the socket
	resp, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/vessels",
		CreateVesselRequest{Name: "MV Aurora"}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create vessel: %d %s", resp.StatusCode, data)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if len(msg.Data.Vessels) != 1 {
		t.Fatalf("broadcast shows %d vessels", len(msg.Data.Vessels))
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	wsURL := "ws" + ts.URL[len("http"):] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response: %+v", resp)
	}
}
