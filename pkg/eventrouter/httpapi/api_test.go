package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
	"github.com/randalmurphal/eventrouter/pkg/eventrouter/httpapi"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(t *testing.T, r *eventrouter.Router) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(httpapi.New(r, quietLogger()).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func newRouter(t *testing.T) *eventrouter.Router {
	t.Helper()
	r := eventrouter.New(eventrouter.Config{EnableQueuing: false}, eventrouter.WithLogger(quietLogger()))
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, response) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestUnavailableRouter(t *testing.T) {
	srv := newServer(t, nil)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/events"},
		{http.MethodGet, "/events/counters"},
		{http.MethodGet, "/events/health"},
		{http.MethodGet, "/events/modules/auth"},
		{http.MethodPost, "/events/reset-stats"},
		{http.MethodDelete, "/events/history"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			status, body := do(t, srv, p.method, p.path, "")
			assert.Equal(t, http.StatusServiceUnavailable, status)
			assert.False(t, body.Success)
			assert.Equal(t, "Event system not available", body.Error)
		})
	}
}

func TestHistory(t *testing.T) {
	r := newRouter(t)
	srv := newServer(t, r)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c", "d"} {
		r.Emit(ctx, name, map[string]any{"n": name})
	}

	type page struct {
		Events []struct {
			ID           string         `json:"id"`
			Event        string         `json:"event"`
			Data         map[string]any `json:"data"`
			SourceModule string         `json:"sourceModule"`
		} `json:"events"`
		Pagination struct {
			Limit, Offset, Total int
		} `json:"pagination"`
	}

	status, body := do(t, srv, http.MethodGet, "/events?limit=2&offset=1", "")
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)

	got := decode[page](t, body.Data)
	require.Len(t, got.Events, 2)
	assert.Equal(t, "b", got.Events[0].Event)
	assert.Equal(t, "c", got.Events[1].Event)
	assert.Equal(t, "unknown", got.Events[0].SourceModule)
	assert.Equal(t, "b", got.Events[0].Data["n"])
	assert.Equal(t, 2, got.Pagination.Limit)
	assert.Equal(t, 1, got.Pagination.Offset)
	assert.Equal(t, 2, got.Pagination.Total)

	status, body = do(t, srv, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, status)
	got = decode[page](t, body.Data)
	assert.Len(t, got.Events, 4)
	assert.Equal(t, 50, got.Pagination.Limit)

	status, body = do(t, srv, http.MethodGet, "/events?limit=2&offset=-3", "")
	require.Equal(t, http.StatusOK, status)
	got = decode[page](t, body.Data)
	require.Len(t, got.Events, 2)
	assert.Equal(t, "c", got.Events[0].Event)
	assert.Equal(t, 0, got.Pagination.Offset)

	status, body = do(t, srv, http.MethodGet, "/events?limit=-1", "")
	require.Equal(t, http.StatusOK, status)
	got = decode[page](t, body.Data)
	assert.Empty(t, got.Events)
	assert.Equal(t, 0, got.Pagination.Limit)

	status, body = do(t, srv, http.MethodGet, "/events?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Error, "limit")
}

func TestHistoryAsCloudEvents(t *testing.T) {
	r := newRouter(t)
	srv := newServer(t, r)
	r.Emit(context.Background(), "task:created", map[string]any{"title": "docs"},
		eventrouter.WithSourceModule("tasks"), eventrouter.WithCorrelationID("task-1"))

	status, body := do(t, srv, http.MethodGet, "/events?format=cloudevents", "")
	require.Equal(t, http.StatusOK, status)

	got := decode[struct {
		Events []map[string]any `json:"events"`
	}](t, body.Data)
	require.Len(t, got.Events, 1)
	ev := got.Events[0]
	assert.Equal(t, "1.0", ev["specversion"])
	assert.Equal(t, "task-1", ev["id"])
	assert.Equal(t, "task:created", ev["type"])
	assert.Equal(t, "/eventrouter/tasks", ev["source"])
	assert.Equal(t, map[string]any{"title": "docs"}, ev["data"])
}

func TestStatsAndCountersAlias(t *testing.T) {
	r := newRouter(t)
	srv := newServer(t, r)
	r.OnFunc("user:login", func(ctx context.Context, rec eventrouter.Record) error { return nil })
	r.Emit(context.Background(), "user:login", nil, eventrouter.WithSourceModule("auth"), eventrouter.WithWaitForAll(true))

	for _, path := range []string{"/events/counters", "/events/stats"} {
		t.Run(path, func(t *testing.T) {
			status, body := do(t, srv, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, status)

			stats := decode[eventrouter.Stats](t, body.Data)
			assert.Equal(t, int64(1), stats.Performance.TotalEvents)
			assert.Equal(t, int64(1), stats.Events.ByType["user:login"])
			assert.Equal(t, 1, stats.Events.Total)
			assert.Equal(t, int64(1), stats.Modules["auth"].EventsEmitted)
			assert.Equal(t, 1, stats.Routes.Total)
			assert.Equal(t, 1, stats.Routes.ByEvent["user:login"])
		})
	}
}

func TestTypes(t *testing.T) {
	r := newRouter(t)
	srv := newServer(t, r)
	ctx := context.Background()
	for _, name := range []string{"user:login", "auth:token", "startup", "task:done", "project:new", "billing:paid"} {
		r.Emit(ctx, name, nil)
	}

	status, body := do(t, srv, http.MethodGet, "/events/types", "")
	require.Equal(t, http.StatusOK, status)

	got := decode[struct {
		EventTypes []string                    `json:"eventTypes"`
		Total      int                         `json:"total"`
		Categories eventrouter.EventCategories `json:"categories"`
	}](t, body.Data)
	assert.Equal(t, 6, got.Total)
	assert.Equal(t, []string{"auth:token", "billing:paid", "project:new", "startup", "task:done", "user:login"}, got.EventTypes)
	assert.Equal(t, []string{"auth:token"}, got.Categories.Auth)
	assert.Equal(t, []string{"user:login"}, got.Categories.User)
	assert.Equal(t, []string{"task:done"}, got.Categories.Task)
	assert.Equal(t, []string{"project:new"}, got.Categories.Project)
	assert.Equal(t, []string{"startup"}, got.Categories.System)
}

func TestHealth(t *testing.T) {
	r := newRouter(t)
	srv := newServer(t, r)

	status, body := do(t, srv, http.MethodGet, "/events/health", "")
	require.Equal(t, http.StatusOK, status)

	health := decode[eventrouter.Health](t, body.Data)
	assert.Equal(t, eventrouter.StatusHealthy, health.Status)
	assert.Equal(t, 1000, health.Queue.MaxSize)
}

func TestModule(t *testing.T) {
	r := newRouter(t)
	srv := newServer(t, r)
	r.Emit(context.Background(), "user:login", nil, eventrouter.WithSourceModule("auth"))
	r.Emit(context.Background(), "auth:token", nil, eventrouter.WithSourceModule("auth"))

	status, body := do(t, srv, http.MethodGet, "/events/modules/auth", "")
	require.Equal(t, http.StatusOK, status)

	got := decode[struct {
		ModuleName string                  `json:"moduleName"`
		Stats      eventrouter.ModuleStats `json:"stats"`
	}](t, body.Data)
	assert.Equal(t, "auth", got.ModuleName)
	assert.Equal(t, int64(2), got.Stats.EventsEmitted)
	assert.Equal(t, []string{"auth:token", "user:login"}, got.Stats.EventTypes)

	status, body = do(t, srv, http.MethodGet, "/events/modules/billing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Module 'billing' not found", body.Error)
}

func TestEmit(t *testing.T) {
	r := newRouter(t)
	srv := newServer(t, r)

	received := make(chan eventrouter.Record, 1)
	r.OnFunc("user:invited", func(ctx context.Context, rec eventrouter.Record) error {
		received <- rec
		return nil
	})

	status, body := do(t, srv, http.MethodPost, "/events/emit",
		`{"event":"user:invited","data":{"email":"a@example.com"},"options":{"waitForAll":true}}`)
	require.Equal(t, http.StatusOK, status)

	got := decode[struct {
		Event         string `json:"event"`
		Emitted       bool   `json:"emitted"`
		CorrelationID string `json:"correlationId"`
	}](t, body.Data)
	assert.Equal(t, "user:invited", got.Event)
	assert.True(t, got.Emitted)
	assert.True(t, strings.HasPrefix(got.CorrelationID, "manual_"))

	rec := <-received
	assert.Equal(t, "api", rec.SourceModule)
	assert.Equal(t, got.CorrelationID, rec.ID)
	assert.Equal(t, map[string]any{"email": "a@example.com"}, rec.Payload)
}

func TestEmitBadRequests(t *testing.T) {
	srv := newServer(t, newRouter(t))

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing event", `{"data":{}}`, "Event name is required"},
		{"empty event", `{"event":""}`, "Event name is required"},
		{"malformed", `{"event":`, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, http.MethodPost, "/events/emit", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.want, body.Error)
		})
	}
}

func TestClearHistoryAndResetStats(t *testing.T) {
	r := newRouter(t)
	srv := newServer(t, r)
	r.Emit(context.Background(), "a", nil)

	status, body := do(t, srv, http.MethodDelete, "/events/history", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Event history cleared", decode[map[string]any](t, body.Data)["message"])
	assert.Zero(t, r.HistoryLen())
	assert.Equal(t, int64(1), r.Stats().Performance.TotalEvents)

	status, body = do(t, srv, http.MethodPost, "/events/reset-stats", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Event statistics reset", decode[map[string]any](t, body.Data)["message"])
	assert.Zero(t, r.Stats().Performance.TotalEvents)
}

func TestQueue(t *testing.T) {
	r := eventrouter.New(eventrouter.DefaultConfig(), eventrouter.WithLogger(quietLogger()))
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	srv := newServer(t, r)
	r.Emit(context.Background(), "a", nil, eventrouter.WithWaitForAll(true))

	status, body := do(t, srv, http.MethodGet, "/events/queue", "")
	require.Equal(t, http.StatusOK, status)

	got := decode[struct {
		Queue       eventrouter.QueueStats `json:"queue"`
		Performance struct {
			TotalEvents int64  `json:"totalEvents"`
			LastEventAt string `json:"lastEventAt"`
		} `json:"performance"`
		Timestamp string `json:"timestamp"`
	}](t, body.Data)
	assert.Equal(t, int64(1), got.Queue.TotalQueued)
	assert.Equal(t, int64(1), got.Performance.TotalEvents)
	assert.NotEmpty(t, got.Performance.LastEventAt)
	assert.NotEmpty(t, got.Timestamp)
}

func TestFailures(t *testing.T) {
	r := newRouter(t)
	srv := newServer(t, r)
	r.On("job:run", eventrouter.Named("flaky", eventrouter.HandlerFunc(func(ctx context.Context, rec eventrouter.Record) error {
		return errors.New("boom")
	})))
	ctx := context.Background()
	r.Emit(ctx, "job:run", nil, eventrouter.WithWaitForAll(true))
	r.Emit(ctx, "job:run", nil, eventrouter.WithWaitForAll(true))

	status, body := do(t, srv, http.MethodGet, "/events/failures?limit=1", "")
	require.Equal(t, http.StatusOK, status)

	got := decode[[]eventrouter.FailedDelivery](t, body.Data)
	require.Len(t, got, 1)
	assert.Equal(t, "flaky", got[0].Handler)
	assert.Equal(t, "job:run", got[0].Event)
	assert.Contains(t, got[0].Error, "boom")

	status, body = do(t, srv, http.MethodGet, "/events/failures", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]eventrouter.FailedDelivery](t, body.Data), 2)
}
