package riverjobs

import (
	"context"
	"errors"
	stdlog "log"
	"time"

	"github.com/riverqueue/river"

	"github.com/casavia/retention/core"
)

type AutoPurgeArgs struct{}

func (AutoPurgeArgs) Kind() string { return "retention_auto_purge" }

func (args AutoPurgeArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
		},
	}
}

// AutoPurgeWorker flags every ledger record past the grace window as purged.
// Records are processed independently; per-record errors land in the sweep
// result and are logged here rather than failing the job.
type AutoPurgeWorker struct {
	river.WorkerDefaults[AutoPurgeArgs]
	svc *core.Service
}

func NewAutoPurgeWorker(svc *core.Service) *AutoPurgeWorker {
	return &AutoPurgeWorker{svc: svc}
}

func (w *AutoPurgeWorker) Timeout(*river.Job[AutoPurgeArgs]) time.Duration {
	return 10 * time.Minute
}

func (w *AutoPurgeWorker) Work(ctx context.Context, job *river.Job[AutoPurgeArgs]) error {
	if w == nil || w.svc == nil {
		return errors.New("retention purge: service not configured")
	}
	res, err := w.svc.RunAutoPurge(ctx)
	if err != nil {
		return err
	}
	stdlog.Printf("[retention/river] auto-purge scanned=%d purged=%d skipped=%d errors=%d",
		res.Scanned, res.Purged, res.Skipped, len(res.Errors))
	return nil
}
