package core

import (
	"context"
	"fmt"
	"time"
)

const reminderMarkerTTL = 48 * time.Hour

// RunReminderSweep walks every unpurged ledger record and sends the two
// milestone reminders: "days left" at exactly ReminderAfterDays since
// deletion, and the final warning at exactly FinalWarningDaysLeft remaining.
// Matching is an exact whole-day count, so each milestone fires at most once
// per lifecycle; the optional KV marker additionally suppresses re-sends when
// the sweep runs more than once in the same day. Records without a valid
// token are skipped silently: there is nothing left to restore with.
func (s *Service) RunReminderSweep(ctx context.Context) (*SweepResult, error) {
	res := &SweepResult{Kind: "reminders", StartedAt: s.now()}

	recs, err := s.store.ListRecords(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	res.Scanned = len(recs)

	for i := range recs {
		rec := &recs[i]
		days := wholeDaysSince(rec.DeletedAt, res.StartedAt)
		left := s.graceDays() - days

		switch {
		case days == s.opts.ReminderAfterDays:
			s.sendMilestone(ctx, rec, left, false, res)
		case left == s.opts.FinalWarningDaysLeft:
			s.sendMilestone(ctx, rec, left, true, res)
		}
	}
	res.FinishedAt = s.now()
	return res, nil
}

func (s *Service) sendMilestone(ctx context.Context, rec *DeletedAccountRecord, daysLeft int, final bool, res *SweepResult) {
	milestone := "reminder"
	if final {
		milestone = "final"
	}
	if s.milestoneSent(ctx, rec.ID, milestone) {
		res.Skipped++
		return
	}

	tok, err := s.store.FindValidToken(ctx, rec.AccountID, s.now())
	if err != nil {
		res.fail(rec.ID, rec.Email, fmt.Errorf("token lookup: %w", err))
		return
	}
	if tok == nil {
		// consumed or expired; nothing to recover
		res.Skipped++
		return
	}

	if err := s.notifyReminder(ctx, rec.Email, rec.Name, s.RestoreURL(tok.Token), daysLeft, final); err != nil {
		res.fail(rec.ID, rec.Email, err)
		return
	}
	if final {
		res.Finals++
	} else {
		res.Reminders++
	}
	s.markMilestoneSent(ctx, rec.ID, milestone)
}

func (s *Service) milestoneSent(ctx context.Context, recordID, milestone string) bool {
	if s.kv == nil {
		return false
	}
	_, ok, err := s.kv.Get(ctx, milestoneKey(recordID, milestone))
	return err == nil && ok
}

func (s *Service) markMilestoneSent(ctx context.Context, recordID, milestone string) {
	if s.kv == nil {
		return
	}
	_ = s.kv.Set(ctx, milestoneKey(recordID, milestone), []byte("1"), reminderMarkerTTL)
}

func milestoneKey(recordID, milestone string) string {
	return "retention:reminded:" + recordID + ":" + milestone
}

func wholeDaysSince(from, now time.Time) int {
	return int(now.Sub(from) / (24 * time.Hour))
}
