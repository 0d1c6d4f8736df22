package core

import (
	"context"
	"strings"
	"time"
)

// Options configures the lifecycle engine.
type Options struct {
	// GraceWindow is how long a deleted account stays restorable.
	// Defaults to 30 days.
	GraceWindow time.Duration
	// ReminderAfterDays is the exact day count after deletion at which the
	// "days left" reminder goes out. Defaults to 15.
	ReminderAfterDays int
	// FinalWarningDaysLeft is the exact remaining-day count at which the
	// final warning goes out. Defaults to 1.
	FinalWarningDaysLeft int
	// ClientOrigin is the web origin used to build restoration links,
	// e.g. "https://casavia.example". Links have the fixed path
	// /restore-account/<token>.
	ClientOrigin string
	// PurgeBatchSize caps how many records one auto-purge sweep handles.
	// Defaults to 500.
	PurgeBatchSize int
	// NotifyTimeout bounds each best-effort notification call.
	// Defaults to 10s.
	NotifyTimeout time.Duration
	// Now overrides the clock; nil means time.Now. Used by tests and
	// backfill tooling.
	Now func() time.Time
}

// Service is the account lifecycle & retention engine. All writes to the
// account store, ledger, token registry and audit trail go through it.
type Service struct {
	opts   Options
	store  Store
	kv     KV
	notify NotificationSink
}

func NewService(store Store, opts Options) *Service {
	if opts.GraceWindow <= 0 {
		opts.GraceWindow = 30 * 24 * time.Hour
	}
	if opts.ReminderAfterDays <= 0 {
		opts.ReminderAfterDays = 15
	}
	if opts.FinalWarningDaysLeft <= 0 {
		opts.FinalWarningDaysLeft = 1
	}
	if opts.PurgeBatchSize <= 0 {
		opts.PurgeBatchSize = 500
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	return &Service{opts: opts, store: store}
}

// WithNotificationSink sets the best-effort notification dependency.
func (s *Service) WithNotificationSink(sink NotificationSink) *Service {
	s.notify = sink
	return s
}

// WithKV sets the optional TTL store used to suppress duplicate reminder
// sends within the same day. Without it reminders are at-least-once.
func (s *Service) WithKV(kv KV) *Service {
	s.kv = kv
	return s
}

func (s *Service) now() time.Time {
	if s.opts.Now != nil {
		return s.opts.Now()
	}
	return time.Now()
}

func (s *Service) graceDays() int {
	return int(s.opts.GraceWindow / (24 * time.Hour))
}

// RestoreURL builds the self-service restoration link for a raw token.
func (s *Service) RestoreURL(token string) string {
	return strings.TrimRight(s.opts.ClientOrigin, "/") + "/restore-account/" + token
}

// withinTx runs fn transactionally when the store supports it, otherwise
// directly, relying on the documented fixed write order.
func (s *Service) withinTx(ctx context.Context, fn func(Store) error) error {
	if tx, ok := s.store.(Atomic); ok {
		return tx.WithinTx(ctx, fn)
	}
	return fn(s.store)
}

// ListDeletedRecords exposes the ledger to the admin panel.
func (s *Service) ListDeletedRecords(ctx context.Context, includePurged bool) ([]DeletedAccountRecord, error) {
	return s.store.ListRecords(ctx, includePurged)
}

// ListAuditEntries returns the newest audit entries, most recent first.
func (s *Service) ListAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListAudit(ctx, limit)
}
