package core

import (
	"context"
	stdlog "log"
)

// NotificationSink dispatches lifecycle emails. Implementations should be
// best-effort; the engine never lets a send failure roll back a transition.
type NotificationSink interface {
	// SendDeletionNotice tells the owner their account was deleted and how
	// to restore it within the grace window.
	SendDeletionNotice(ctx context.Context, email, username, restoreURL string, graceDays int) error

	// SendRestoredNotice confirms a successful restoration.
	SendRestoredNotice(ctx context.Context, email, username string) error

	// SendReminder warns the owner that daysLeft remain before the account
	// is purged. final marks the last-day warning.
	SendReminder(ctx context.Context, email, username, restoreURL string, daysLeft int, final bool) error
}

// HasNotificationSink returns true if a sink is configured.
func (s *Service) HasNotificationSink() bool { return s.notify != nil }

func (s *Service) notifyDeleted(ctx context.Context, email, username, restoreURL string) {
	if s.notify == nil {
		stdlog.Printf("[retention/dev-email] deletion notice email=%s restore=%s", email, restoreURL)
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
	defer cancel()
	if err := s.notify.SendDeletionNotice(nctx, email, username, restoreURL, s.graceDays()); err != nil {
		stdlog.Printf("[retention] deletion notice failed email=%s err=%v", email, err)
	}
}

func (s *Service) notifyRestored(ctx context.Context, email, username string) {
	if s.notify == nil {
		stdlog.Printf("[retention/dev-email] restored notice email=%s", email)
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
	defer cancel()
	if err := s.notify.SendRestoredNotice(nctx, email, username); err != nil {
		stdlog.Printf("[retention] restored notice failed email=%s err=%v", email, err)
	}
}

// notifyReminder is the one notification whose failure the caller wants to
// see: the reminder sweep counts per-record send failures in its result.
func (s *Service) notifyReminder(ctx context.Context, email, username, restoreURL string, daysLeft int, final bool) error {
	if s.notify == nil {
		stdlog.Printf("[retention/dev-email] reminder email=%s days_left=%d final=%v restore=%s", email, daysLeft, final, restoreURL)
		return nil
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
	defer cancel()
	return s.notify.SendReminder(nctx, email, username, restoreURL, daysLeft, final)
}
