// Package widget implements the jobs button: one feed fetch per mount, the
// unread banner, the slide-out panel and the persisted viewed-id record.
package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"wisejobs-widget/pkg/jobs"
	"wisejobs-widget/storage"
)

// Fetcher loads the job feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]jobs.Job, error)
}

// Store persists the viewed-id record.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Alerter is told when a completed fetch raises the unread flag.
type Alerter interface {
	NewJobs(ctx context.Context, list []jobs.Job) error
}

// Config holds widget dependencies. Alerter is optional.
type Config struct {
	Store   Store
	Fetcher Fetcher
	Alerter Alerter
	Logger  *slog.Logger
}

// Widget owns one widget instance's state.
type Widget struct {
	store   Store
	fetcher Fetcher
	alerter Alerter
	logger  *slog.Logger

	task      *Task
	viewed    jobs.ViewedIDs // Snapshot read once in New
	state     State
	mu        sync.Mutex
	havePrior bool
}

// New creates a widget and reads the viewed-id snapshot. The snapshot is not
// re-read for the lifetime of the widget.
func New(ctx context.Context, cfg *Config) (*Widget, error) {
	w := &Widget{
		store:   cfg.Store,
		fetcher: cfg.Fetcher,
		alerter: cfg.Alerter,
		logger:  cfg.Logger,
	}

	viewed, ok, err := w.readViewed(ctx)
	if err != nil {
		return nil, err
	}
	w.viewed = viewed
	w.havePrior = ok

	w.logger.Info("Widget created", "have_viewed_ids", ok, "viewed_count", len(viewed))
	return w, nil
}

// readViewed loads the persisted record. A missing, empty, null or malformed
// value means nothing was seen before.
func (w *Widget) readViewed(ctx context.Context) (jobs.ViewedIDs, bool, error) {
	data, err := w.store.Get(ctx, jobs.StorageKey)
	if storage.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read viewed ids: %w", err)
	}
	if len(data) == 0 {
		return nil, false, nil
	}

	var ids jobs.ViewedIDs
	if err := json.Unmarshal(data, &ids); err != nil {
		w.logger.Warn("Ignoring malformed viewed ids", "key", jobs.StorageKey, "error", err)
		return nil, false, nil
	}
	if ids == nil {
		return nil, false, nil
	}
	return ids, true, nil
}

// Mount starts the feed fetch and returns its handle. Calling Mount again
// while mounted returns the same handle, so one mount fetches exactly once.
func (w *Widget) Mount(ctx context.Context) *Task {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.task != nil {
		return w.task
	}

	t := newTask(ctx)
	w.task = t
	go w.load(t)
	return t
}

// Unmount cancels an in-flight fetch. A result that arrives afterwards is
// dropped instead of being written to state.
func (w *Widget) Unmount() {
	w.mu.Lock()
	t := w.task
	w.task = nil
	w.mu.Unlock()

	if t != nil {
		t.Cancel()
		w.logger.Info("Widget unmounted")
	}
}

func (w *Widget) load(t *Task) {
	fetched, err := w.fetcher.Fetch(t.ctx)
	if err != nil {
		w.logger.Warn("Job feed fetch failed", "error", err)
		t.finish(err)
		return
	}

	w.mu.Lock()
	if w.task != t || t.ctx.Err() != nil {
		w.mu.Unlock()
		w.logger.Info("Discarding job feed result after unmount", "posts", len(fetched))
		t.finish(ErrUnmounted)
		return
	}
	w.state = w.state.Loaded(fetched, w.viewed, w.havePrior)
	notify := w.state.Notify
	w.mu.Unlock()

	w.logger.Info("Job feed loaded", "posts", len(fetched), "notify", notify)

	if notify && w.alerter != nil {
		if err := w.alerter.NewJobs(t.ctx, fetched); err != nil {
			w.logger.Warn("New jobs alert failed", "error", err)
		}
	}
	t.finish(nil)
}

// ErrUnmounted is the task result when a fetch completes after Unmount.
var ErrUnmounted = errors.New("widget unmounted")

// Toggle flips the panel and persists the current job ids.
func (w *Widget) Toggle(ctx context.Context) error {
	w.mu.Lock()
	w.state = w.state.Toggle()
	st := w.state
	w.mu.Unlock()

	w.logger.Debug("Panel toggled", "open", st.Open)
	return w.persist(ctx, st)
}

// Close hides the panel. Closing an already closed panel is not a
// transition and writes nothing.
func (w *Widget) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.state.Open {
		w.mu.Unlock()
		return nil
	}
	w.state = w.state.Close()
	st := w.state
	w.mu.Unlock()

	w.logger.Debug("Panel closed")
	return w.persist(ctx, st)
}

// Dismiss hides the banner. Storage is not touched.
func (w *Widget) Dismiss() {
	w.mu.Lock()
	w.state = w.state.Dismiss()
	w.mu.Unlock()
}

// persist overwrites the viewed-id record with the ids in st. It runs on
// every panel transition, in both directions, once jobs are loaded.
func (w *Widget) persist(ctx context.Context, st State) error {
	if len(st.Jobs) == 0 {
		return nil
	}

	data, err := json.Marshal(jobs.IDs(st.Jobs))
	if err != nil {
		return fmt.Errorf("marshal viewed ids: %w", err)
	}
	if err := w.store.Set(ctx, jobs.StorageKey, data); err != nil {
		w.logger.Error("Failed to persist viewed ids", "error", err)
		return fmt.Errorf("persist viewed ids: %w", err)
	}

	w.logger.Info("Viewed ids persisted", "count", len(st.Jobs), "open", st.Open)
	return nil
}

// Snapshot returns a copy of the current state.
func (w *Widget) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := w.state
	st.Jobs = slices.Clone(w.state.Jobs)
	return st
}

// BadgeCount is the number shown on the trigger button.
func (w *Widget) BadgeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.state.Jobs)
}
