package core

import (
	"context"
	"errors"
	"fmt"
)

// PurgeRecord is the manual purge path: rootadmin only, one record. The row
// is never physically deleted; MarkPurged stamps it once and a second call
// fails with ErrAlreadyPurged.
func (s *Service) PurgeRecord(ctx context.Context, recordID string, actor Actor) error {
	if !actor.IsRoot() {
		return ErrForbidden
	}
	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		return ErrRecordNotFound
	}
	now := s.now()
	if err := s.store.MarkPurged(ctx, recordID, now, actor); err != nil {
		return err
	}
	return s.appendAudit(ctx, s.store, AuditPurge, actor, rec.ID, rec.Email, purgeDetails(rec))
}

// RunAutoPurge is the scheduled purge sweep: every unpurged record whose
// deletion is older than the grace window gets purged by the system actor,
// each record independently. Re-running is a no-op for already-purged rows
// because the unpurged filter excludes them.
func (s *Service) RunAutoPurge(ctx context.Context) (*SweepResult, error) {
	res := &SweepResult{Kind: "auto-purge", StartedAt: s.now()}
	cutoff := res.StartedAt.Add(-s.opts.GraceWindow)

	recs, err := s.store.ListUnpurgedDeletedBefore(ctx, cutoff, s.opts.PurgeBatchSize)
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	res.Scanned = len(recs)

	system := SystemActor()
	for i := range recs {
		rec := &recs[i]
		if err := s.store.MarkPurged(ctx, rec.ID, s.now(), system); err != nil {
			if errors.Is(err, ErrAlreadyPurged) {
				res.Skipped++
				continue
			}
			res.fail(rec.ID, rec.Email, err)
			continue
		}
		res.Purged++
		if err := s.appendAudit(ctx, s.store, AuditPurge, system, rec.ID, rec.Email, purgeDetails(rec)); err != nil {
			res.fail(rec.ID, rec.Email, fmt.Errorf("audit: %w", err))
		}
	}
	res.FinishedAt = s.now()
	return res, nil
}

// RunTokenGC physically removes expired and consumed revocation tokens. The
// ledger record remains the durable source of truth, so this is pure TTL
// housekeeping.
func (s *Service) RunTokenGC(ctx context.Context) (*SweepResult, error) {
	res := &SweepResult{Kind: "token-gc", StartedAt: s.now()}
	n, err := s.store.DeleteExpiredTokens(ctx, res.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("token gc: %w", err)
	}
	res.Scanned = n
	res.FinishedAt = s.now()
	return res, nil
}

func purgeDetails(rec *DeletedAccountRecord) string {
	if rec.Policy != nil {
		return fmt.Sprintf("account %s purged, reason=%q ban_category=%q resignup=%v",
			rec.AccountID, rec.Reason, rec.Policy.BanCategory, rec.Policy.AllowResignup)
	}
	return fmt.Sprintf("account %s purged, reason=%q", rec.AccountID, rec.Reason)
}
