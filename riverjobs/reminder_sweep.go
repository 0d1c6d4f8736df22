package riverjobs

import (
	"context"
	"errors"
	stdlog "log"
	"time"

	"github.com/riverqueue/river"

	"github.com/casavia/retention/core"
)

type ReminderSweepArgs struct{}

func (ReminderSweepArgs) Kind() string { return "retention_reminder_sweep" }

func (args ReminderSweepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
		},
	}
}

// ReminderSweepWorker sends the grace-window milestone reminders.
type ReminderSweepWorker struct {
	river.WorkerDefaults[ReminderSweepArgs]
	svc *core.Service
}

func NewReminderSweepWorker(svc *core.Service) *ReminderSweepWorker {
	return &ReminderSweepWorker{svc: svc}
}

func (w *ReminderSweepWorker) Timeout(*river.Job[ReminderSweepArgs]) time.Duration {
	return 10 * time.Minute
}

func (w *ReminderSweepWorker) Work(ctx context.Context, job *river.Job[ReminderSweepArgs]) error {
	if w == nil || w.svc == nil {
		return errors.New("retention reminders: service not configured")
	}
	res, err := w.svc.RunReminderSweep(ctx)
	if err != nil {
		return err
	}
	stdlog.Printf("[retention/river] reminders scanned=%d sent=%d final=%d skipped=%d errors=%d",
		res.Scanned, res.Reminders, res.Finals, res.Skipped, len(res.Errors))
	return nil
}
