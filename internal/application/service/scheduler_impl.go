package service

import (
	"context"
	"fmt"
	appErrors "remindme/internal/pkg/errors"
	"remindme/internal/pkg/logger"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// sweepTimeout bounds a single scheduled sweep.
const sweepTimeout = time.Minute

type schedulerService struct {
	cronScheduler CronScheduler
	reminderSvc   ReminderService
	sweepSpec     string
	log           logger.Logger

	mu         sync.Mutex // Protects sweepJobID
	sweepJobID cron.EntryID
}

// NewSchedulerService creates a new instance of SchedulerService implementation.
func NewSchedulerService(
	cronScheduler CronScheduler,
	reminderSvc ReminderService,
	sweepSpec string,
	log logger.Logger,
) SchedulerService {
	return &schedulerService{
		cronScheduler: cronScheduler,
		reminderSvc:   reminderSvc,
		sweepSpec:     sweepSpec,
		log:           log,
	}
}

// InitializeSchedules removes reminders that expired while the service was down,
// then registers the periodic sweep.
func (s *schedulerService) InitializeSchedules(ctx context.Context) error {
	s.log.Info("Sweeping expired reminders on startup...")
	if _, err := s.reminderSvc.SweepExpired(ctx); err != nil {
		// Log the error but still register the periodic job
		s.log.Error("Startup sweep failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sweepJobID != 0 {
		s.cronScheduler.RemoveJob(s.sweepJobID)
		s.sweepJobID = 0
	}

	entryID, err := s.cronScheduler.AddJob(s.sweepSpec, s.runSweep)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to register sweep job with spec %q", s.sweepSpec), err)
		return fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	s.sweepJobID = entryID
	s.log.Info(fmt.Sprintf("Scheduled expired-reminder sweep %q (Job ID: %d)", s.sweepSpec, entryID))
	return nil
}

func (s *schedulerService) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.reminderSvc.SweepExpired(ctx); err != nil {
		s.log.Error("Scheduled sweep failed", err)
	}
}

// Stop stops the underlying scheduler.
func (s *schedulerService) Stop() {
	s.mu.Lock()
	if s.sweepJobID != 0 {
		s.cronScheduler.RemoveJob(s.sweepJobID)
		s.sweepJobID = 0
	}
	s.mu.Unlock()

	s.cronScheduler.Stop()
}
