package core_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/casavia/retention/core"
	memorystore "github.com/casavia/retention/storage/memory"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// sinkRecorder captures notification calls and can fail on demand.
type sinkRecorder struct {
	mu        sync.Mutex
	deletions []string // emails
	restored  []string
	reminders []reminderCall
	failFor   map[string]bool
}

type reminderCall struct {
	Email    string
	DaysLeft int
	Final    bool
	URL      string
}

func newSinkRecorder() *sinkRecorder {
	return &sinkRecorder{failFor: make(map[string]bool)}
}

func (r *sinkRecorder) SendDeletionNotice(_ context.Context, email, _, _ string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[email] {
		return fmt.Errorf("smtp refused %s", email)
	}
	r.deletions = append(r.deletions, email)
	return nil
}

func (r *sinkRecorder) SendRestoredNotice(_ context.Context, email, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[email] {
		return fmt.Errorf("smtp refused %s", email)
	}
	r.restored = append(r.restored, email)
	return nil
}

func (r *sinkRecorder) SendReminder(_ context.Context, email, _, url string, daysLeft int, final bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[email] {
		return fmt.Errorf("smtp refused %s", email)
	}
	r.reminders = append(r.reminders, reminderCall{Email: email, DaysLeft: daysLeft, Final: final, URL: url})
	return nil
}

func (r *sinkRecorder) reminderCalls() []reminderCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reminderCall, len(r.reminders))
	copy(out, r.reminders)
	return out
}

type engine struct {
	svc   *core.Service
	store *memorystore.Store
	clock *testClock
	sink  *sinkRecorder
}

func newTestEngine(t *testing.T) *engine {
	t.Helper()
	store := memorystore.NewStore()
	clock := newTestClock()
	sink := newSinkRecorder()
	svc := core.NewService(store, core.Options{
		ClientOrigin: "https://casavia.example",
		Now:          clock.Now,
	}).WithNotificationSink(sink).WithKV(memorystore.NewKV())
	return &engine{svc: svc, store: store, clock: clock, sink: sink}
}

func (e *engine) seedAccount(t *testing.T, acct core.Account) *core.Account {
	t.Helper()
	if acct.Status == "" {
		acct.Status = core.StatusActive
	}
	if acct.Role == "" {
		acct.Role = core.RoleUser
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = e.clock.Now().Add(-90 * 24 * time.Hour)
	}
	if err := e.store.InsertAccount(context.Background(), &acct); err != nil {
		t.Fatalf("seed account %s: %v", acct.ID, err)
	}
	return &acct
}

func rootActor() core.Actor {
	return core.AdminActor("root-1", "root@casavia.example", core.RoleRootAdmin)
}

func adminActor() core.Actor {
	return core.AdminActor("admin-1", "admin@casavia.example", core.RoleAdmin)
}
