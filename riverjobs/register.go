package riverjobs

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"

	"github.com/casavia/retention/core"
)

// RegisterWorkers registers the retention workers into a River workers registry.
func RegisterWorkers(ws *river.Workers, svc *core.Service) {
	river.AddWorker(ws, NewAutoPurgeWorker(svc))
	river.AddWorker(ws, NewReminderSweepWorker(svc))
}

// AddAutoPurgePeriodicJob adds a periodic job that enqueues the auto-purge
// sweep on a cron schedule.
//
// Example cron: "10 3 * * *" (daily at 03:10).
func AddAutoPurgePeriodicJob[T any](client *river.Client[T], cronSpec string, runOnStart bool) error {
	return addPeriodic(client, cronSpec, AutoPurgeArgs{}, runOnStart)
}

// AddReminderSweepPeriodicJob adds a periodic job that enqueues the reminder
// sweep on a cron schedule.
func AddReminderSweepPeriodicJob[T any](client *river.Client[T], cronSpec string, runOnStart bool) error {
	return addPeriodic(client, cronSpec, ReminderSweepArgs{}, runOnStart)
}

type periodicArgs interface {
	river.JobArgs
	InsertOpts() river.InsertOpts
}

func addPeriodic[T any](client *river.Client[T], cronSpec string, args periodicArgs, runOnStart bool) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	opts := args.InsertOpts()
	_ = client.PeriodicJobs().Add(
		river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
			&river.PeriodicJobOpts{RunOnStart: runOnStart},
		),
	)
	return nil
}
