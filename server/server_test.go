package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"wisejobs-widget/feed"
	"wisejobs-widget/pkg/jobs"
	"wisejobs-widget/storage"
	"wisejobs-widget/widget"

	"github.com/google/go-cmp/cmp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeWidget struct {
	toggleErr error
	state     widget.State
	mu        sync.Mutex
	toggles   int
	closes    int
	dismisses int
}

func (f *fakeWidget) Snapshot() widget.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeWidget) Toggle(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	f.state = f.state.Toggle()
	return f.toggleErr
}

func (f *fakeWidget) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.state = f.state.Close()
	return nil
}

func (f *fakeWidget) Dismiss() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismisses++
	f.state = f.state.Dismiss()
}

func sampleJobs() []jobs.Job {
	return []jobs.Job{
		{ID: 2, Title: "Backend Engineer", Permalink: "https://wise.jobs/job/2", Office: "London", Team: "Engineering"},
		{ID: 3, Title: "Data <Analyst>", Permalink: "https://wise.jobs/job/3", Office: "Tallinn", Team: "Analytics"},
	}
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRootClosedPanel(t *testing.T) {
	fw := &fakeWidget{state: widget.State{Jobs: sampleJobs()}}
	h := New(&Config{Widget: fw, Logger: testLogger()}).Handler()

	rec := do(t, h, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()

	if !strings.Contains(body, `<span class="badge">2</span>`) {
		t.Error("badge should show the job count")
	}
	if strings.Contains(body, `id="jobs-panel"`) {
		t.Error("panel rendered while closed")
	}
	if strings.Contains(body, "There are new jobs available!") {
		t.Error("banner rendered without notify")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options header")
	}
}

func TestRootOpenPanelWithBanner(t *testing.T) {
	fw := &fakeWidget{state: widget.State{Jobs: sampleJobs(), Open: true, Notify: true}}
	h := New(&Config{Widget: fw, Logger: testLogger()}).Handler()

	body := do(t, h, http.MethodGet, "/").Body.String()

	checks := []string{
		`id="jobs-panel"`,
		"<h1>Jobs</h1>",
		`href="https://wise.jobs/job/2" target="_blank"`,
		"Engineering | London",
		"Data &lt;Analyst&gt;",
		"There are new jobs available!",
		`action="/dismiss"`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Index(body, "Backend Engineer") > strings.Index(body, "Data &lt;Analyst&gt;") {
		t.Error("jobs not rendered in feed order")
	}
}

func TestRootHidesZeroBadge(t *testing.T) {
	h := New(&Config{Widget: &fakeWidget{}, Logger: testLogger()}).Handler()
	body := do(t, h, http.MethodGet, "/").Body.String()
	if strings.Contains(body, `class="badge"`) {
		t.Error("badge rendered for an empty job list")
	}
}

func TestActions(t *testing.T) {
	fw := &fakeWidget{state: widget.State{Jobs: sampleJobs(), Notify: true}}
	h := New(&Config{Widget: fw, Logger: testLogger()}).Handler()

	for _, path := range []string{"/toggle", "/close", "/dismiss"} {
		rec := do(t, h, http.MethodPost, path)
		if rec.Code != http.StatusSeeOther {
			t.Errorf("POST %s status = %d, want 303", path, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/" {
			t.Errorf("POST %s Location = %q, want /", path, loc)
		}
	}

	if fw.toggles != 1 || fw.closes != 1 || fw.dismisses != 1 {
		t.Errorf("calls toggle/close/dismiss = %d/%d/%d, want 1/1/1", fw.toggles, fw.closes, fw.dismisses)
	}
	if st := fw.Snapshot(); st.Open || st.Notify {
		t.Errorf("state = %+v, want closed and dismissed", st)
	}
}

func TestToggleRedirectsEvenWhenPersistFails(t *testing.T) {
	fw := &fakeWidget{state: widget.State{Jobs: sampleJobs()}, toggleErr: errors.New("disk full")}
	h := New(&Config{Widget: fw, Logger: testLogger()}).Handler()

	rec := do(t, h, http.MethodPost, "/toggle")
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rec.Code)
	}
	if !fw.Snapshot().Open {
		t.Error("panel should be open")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(&Config{Widget: &fakeWidget{}, Logger: testLogger()}).Handler()

	tests := []struct {
		method, path string
	}{
		{http.MethodPost, "/"},
		{http.MethodGet, "/toggle"},
		{http.MethodGet, "/close"},
		{http.MethodGet, "/dismiss"},
		{http.MethodPost, "/health"},
		{http.MethodDelete, "/api/state"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := do(t, h, tt.method, tt.path); rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", rec.Code)
			}
		})
	}
}

func TestUnknownPath(t *testing.T) {
	h := New(&Config{Widget: &fakeWidget{}, Logger: testLogger()}).Handler()
	if rec := do(t, h, http.MethodGet, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := New(&Config{Widget: &fakeWidget{}, Logger: testLogger()}).Handler()
	rec := do(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestStateJSON(t *testing.T) {
	fw := &fakeWidget{state: widget.State{Jobs: sampleJobs(), Notify: true}}
	h := New(&Config{Widget: fw, Logger: testLogger()}).Handler()

	rec := do(t, h, http.MethodGet, "/api/state")
	var got stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := stateResponse{Jobs: sampleJobs(), Badge: 2, Notify: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	empty := do(t, New(&Config{Widget: &fakeWidget{}, Logger: testLogger()}).Handler(), http.MethodGet, "/api/state")
	if !strings.Contains(empty.Body.String(), `"jobs":[]`) {
		t.Errorf("empty state should encode jobs as [], got %s", empty.Body.String())
	}
}

// TestEndToEnd mounts a real widget against a fake feed and drives it over HTTP.
func TestEndToEnd(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"posts":[
			{"id":2,"title":"Engineer","permalink":"https://wise.jobs/job/2","office":"London","team":"Engineering"},
			{"id":3,"title":"Analyst","permalink":"https://wise.jobs/job/3","office":"Tallinn","team":"Finance"}
		]}}`))
	}))
	defer feedSrv.Close()

	ctx := context.Background()
	store := storage.NewMemory()
	if err := store.Set(ctx, jobs.StorageKey, []byte(`[1,2]`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w, err := widget.New(ctx, &widget.Config{
		Store:   store,
		Fetcher: feed.New(feedSrv.Client(), feedSrv.URL, testLogger()),
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("widget.New: %v", err)
	}
	task := w.Mount(ctx)
	defer w.Unmount()
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("mount did not finish")
	}
	if err := task.Wait(); err != nil {
		t.Fatalf("mount: %v", err)
	}

	h := New(&Config{Widget: w, Logger: testLogger()}).Handler()

	body := do(t, h, http.MethodGet, "/").Body.String()
	if !strings.Contains(body, "There are new jobs available!") {
		t.Error("banner missing: id 3 was never seen")
	}

	do(t, h, http.MethodPost, "/toggle")

	data, err := store.Get(ctx, jobs.StorageKey)
	if err != nil {
		t.Fatalf("read viewed ids: %v", err)
	}
	if string(data) != `[2,3]` {
		t.Errorf("viewed ids = %s, want [2,3]", data)
	}
	if !strings.Contains(do(t, h, http.MethodGet, "/").Body.String(), `id="jobs-panel"`) {
		t.Error("panel not open after toggle")
	}
}
