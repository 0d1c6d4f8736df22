// Package scheduler owns the process-wide set of named retention sweeps.
// Each job runs on a cron schedule evaluated in a configured location, so
// "daily at 03:10" means 03:10 in the marketplace's timezone regardless of
// where the process runs.
package scheduler

import (
	"context"
	"fmt"
	stdlog "log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is one sweep invocation. The returned error is logged; it never
// stops the schedule.
type JobFunc func(ctx context.Context) error

// Scheduler is a single handle over all scheduled sweeps with an explicit
// Start/Stop lifecycle. Jobs are registered before Start and individually
// removable by name.
type Scheduler struct {
	c *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	started bool
}

func New(loc *time.Location) *Scheduler {
	return &Scheduler{
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cron.DefaultLogger)),
		),
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers a named job with a standard 5-field cron spec. Duplicate
// names are rejected.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("scheduler: job %q already registered", name)
	}
	id, err := s.c.AddFunc(spec, func() {
		if err := fn(context.Background()); err != nil {
			stdlog.Printf("[retention/scheduler] job=%s err=%v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: job %q: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

// Remove unregisters a job by name; unknown names are a no-op.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.c.Remove(id)
		delete(s.entries, name)
	}
}

// Names lists the registered jobs.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	return out
}

// Start begins the schedule; safe to call once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.c.Start()
}

// Stop halts scheduling and waits for in-flight jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	done := s.c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
