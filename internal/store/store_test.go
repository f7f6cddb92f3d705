package store

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/gemologic/lattice/internal/eventlog"
	pebblestore "github.com/gemologic/lattice/internal/storage/pebble"
	"github.com/gemologic/lattice/pkg/log"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestStore(t *testing.T) (*Store, *eventlog.Log, *testClock) {
	t.Helper()
	db := newTestDB(t)
	clk := &testClock{now: time.Date(2026, 5, 12, 8, 0, 0, 0, time.UTC)}

	events := eventlog.Open(db)
	events.SetNow(clk.Now)

	logger := log.NewLogger(log.WithOutput(&log.WriterOutput{W: io.Discard}))
	s := New(db, events, logger)
	s.SetNow(clk.Now)
	return s, events, clk
}

func mustCreateProject(t *testing.T, s *Store, name, slug string) *ProjectSummary {
	t.Helper()
	summary, err := s.CreateProject(context.Background(), name, slug, "")
	if err != nil {
		t.Fatalf("create project %s: %v", slug, err)
	}
	return summary
}

func mustCreateTask(t *testing.T, s *Store, slug, title string) *Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), slug, NewTaskInput{
		Title:       title,
		Status:      StatusBacklog,
		Priority:    PriorityMedium,
		ReviewState: ReviewReady,
		CreatedBy:   "human",
	})
	if err != nil {
		t.Fatalf("create task %q: %v", title, err)
	}
	return task
}

// allEvents drains the whole event log in order.
func allEvents(t *testing.T, events *eventlog.Log) []eventlog.Event {
	t.Helper()
	got, err := events.QueryAfter(context.Background(), eventlog.QueryOptions{Limit: eventlog.MaxQueryLimit})
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	return got
}

func lastEvent(t *testing.T, events *eventlog.Log) eventlog.Event {
	t.Helper()
	got := allEvents(t, events)
	if len(got) == 0 {
		t.Fatalf("no events recorded")
	}
	return got[len(got)-1]
}

func decodeDetail(t *testing.T, ev eventlog.Event) map[string]any {
	t.Helper()
	detail := map[string]any{}
	if err := json.Unmarshal(ev.Detail, &detail); err != nil {
		t.Fatalf("decode detail %q: %v", ev.Detail, err)
	}
	return detail
}
