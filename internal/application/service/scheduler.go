package service

import (
	"context"

	"github.com/robfig/cron/v3"
)

// SchedulerService runs the expired-reminder sweep at startup and on a schedule.
// Deliveries themselves are scheduled on the messaging platform, never here.
type SchedulerService interface {
	// InitializeSchedules sweeps once and registers the periodic sweep job.
	InitializeSchedules(ctx context.Context) error
	// Stop removes the sweep job and stops the underlying scheduler.
	Stop()
}

// CronScheduler is the job runner used by SchedulerService.
type CronScheduler interface {
	AddJob(spec string, cmd func()) (cron.EntryID, error)
	RemoveJob(id cron.EntryID)
	Stop()
}
