package service

import (
	"context"
	"errors"
	"fmt"
	"remindme/internal/application/dto"
	"remindme/internal/domain/constant"
	"remindme/internal/domain/entity"
	"remindme/internal/domain/gateway"
	"remindme/internal/domain/repository"
	appErrors "remindme/internal/pkg/errors"
	"remindme/internal/pkg/logger"
	"remindme/internal/pkg/metrics"
	"time"
)

const (
	opCreate   = "reminder.create"
	opRetarget = "reminder.retarget"
	opCancel   = "reminder.cancel"
	opSweep    = "reminder.sweep"
	opList     = "reminder.list"
	opGet      = "reminder.get"
)

// errEmptyHandle is reported when a delivery was accepted without a handle to cancel it by.
var errEmptyHandle = errors.New("delivery scheduler returned no handle")

const (
	callResolve  = "resolve_content"
	callSchedule = "schedule_delivery"
	callCancel   = "cancel_delivery"
)

type reminderService struct {
	reminderRepo repository.ReminderRepository
	resolver     gateway.ContentResolver
	delivery     gateway.DeliveryScheduler
	notifier     gateway.OperatorNotifier
	metrics      *metrics.Metrics
	log          logger.Logger
	now          func() time.Time
}

// Option customises a ReminderService.
type Option func(*reminderService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *reminderService) { s.now = now }
}

// WithNotifier sets where reconciliation alerts go. Defaults to discarding them.
func WithNotifier(n gateway.OperatorNotifier) Option {
	return func(s *reminderService) { s.notifier = n }
}

// WithMetrics sets the metrics to record into. Defaults to an unregistered set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *reminderService) { s.metrics = m }
}

// NewReminderService creates a new instance of ReminderService implementation.
func NewReminderService(
	reminderRepo repository.ReminderRepository,
	resolver gateway.ContentResolver,
	delivery gateway.DeliveryScheduler,
	log logger.Logger,
	opts ...Option,
) ReminderService {
	s := &reminderService{
		reminderRepo: reminderRepo,
		resolver:     resolver,
		delivery:     delivery,
		notifier:     gateway.NopNotifier{},
		metrics:      metrics.New("remindme"),
		log:          log,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReminder resolves the message, schedules its delivery, then saves the reminder.
func (s *reminderService) CreateReminder(ctx context.Context, req dto.CreateReminderRequest) (*entity.Reminder, error) {
	reminder, err := s.createReminder(ctx, req)
	s.observe(opCreate, nil, err)
	return reminder, err
}

func (s *reminderService) createReminder(ctx context.Context, req dto.CreateReminderRequest) (*entity.Reminder, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := s.now()
	postAt := now.Add(req.Delay()).Unix()
	if !constant.WithinBounds(postAt, now) {
		return nil, appErrors.New(appErrors.ErrValidation, opCreate,
			fmt.Sprintf("delay must be between %v and %v", constant.MinLeadTime, constant.MaxHorizon), nil)
	}

	content, err := s.resolver.ResolveContent(ctx, req.ContentRef)
	s.metrics.ObserveCall(callResolve, err)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to resolve message %s in %s for user %s", req.MessageTs, req.ChannelID, req.CreatorID), err)
		return nil, appErrors.New(appErrors.ErrLookup, opCreate,
			fmt.Sprintf("message %s in channel %s", req.MessageTs, req.ChannelID), err)
	}

	handle, err := s.delivery.ScheduleDelivery(ctx, req.CreatorID, reminderText(content.Permalink), postAt)
	if err == nil && handle == "" {
		err = errEmptyHandle
	}
	s.metrics.ObserveCall(callSchedule, err)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to schedule delivery for user %s at %d", req.CreatorID, postAt), err)
		return nil, appErrors.New(appErrors.ErrScheduling, opCreate, "nothing was saved", err)
	}

	reminder := &entity.Reminder{
		CreatorID:          req.CreatorID,
		Permalink:          content.Permalink,
		PostAt:             postAt,
		ScheduledMessageID: handle,
		AuthorID:           content.AuthorID,
		AuthorName:         content.AuthorName,
		ChannelID:          content.ChannelID,
		ChannelName:        content.ChannelName,
		MessageTs:          content.MessageTs,
		MessageContent:     content.MessageContent,
	}
	if err := s.reminderRepo.Create(ctx, reminder); err != nil {
		s.log.Error(fmt.Sprintf("Failed to save reminder for user %s; delivery %s at %d is still scheduled", req.CreatorID, handle, postAt), err)
		s.alert(ctx, fmt.Sprintf("Reminder for user %s was not saved but delivery %s at %d is scheduled. Delete it manually.", req.CreatorID, handle, postAt))
		return nil, appErrors.Orphaned(opCreate, "reminder not saved, delivery still scheduled", handle, err)
	}

	s.log.Info(fmt.Sprintf("Created reminder %s for user %s at %d (delivery %s)", reminder.ID, reminder.CreatorID, reminder.PostAt, handle))
	return reminder, nil
}

// RetargetReminder schedules the new delivery first, saves it, and only then
// cancels the previous one, so the creator is never left without a pending delivery.
func (s *reminderService) RetargetReminder(ctx context.Context, req dto.RetargetReminderRequest) (*dto.ReminderResult, error) {
	result, err := s.retargetReminder(ctx, req)
	s.observe(opRetarget, result, err)
	return result, err
}

func (s *reminderService) retargetReminder(ctx context.Context, req dto.RetargetReminderRequest) (*dto.ReminderResult, error) {
	existing, err := s.loadOwned(ctx, opRetarget, req.ID, req.RequesterID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !constant.WithinBounds(req.PostAt, now) {
		return nil, appErrors.New(appErrors.ErrValidation, opRetarget,
			fmt.Sprintf("post_at must be between %d and %d", now.Add(constant.MinLeadTime).Unix(), now.Add(constant.MaxHorizon).Unix()), nil)
	}

	newHandle, err := s.delivery.ScheduleDelivery(ctx, existing.CreatorID, reminderText(existing.Permalink), req.PostAt)
	if err == nil && newHandle == "" {
		err = errEmptyHandle
	}
	s.metrics.ObserveCall(callSchedule, err)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to schedule new delivery for reminder %s at %d", existing.ID, req.PostAt), err)
		return nil, appErrors.New(appErrors.ErrScheduling, opRetarget, "reminder unchanged", err)
	}

	oldPostAt, oldHandle := existing.PostAt, existing.ScheduledMessageID
	updated := *existing
	updated.PostAt = req.PostAt
	updated.ScheduledMessageID = newHandle
	if err := s.reminderRepo.Update(ctx, &updated); err != nil {
		cause := err
		if errors.Is(err, repository.ErrStaleReminder) {
			cause = appErrors.New(appErrors.ErrConsistency, opRetarget, "reminder was modified concurrently", err)
		}
		s.log.Error(fmt.Sprintf("Failed to save retargeted reminder %s; new delivery %s at %d is orphaned", existing.ID, newHandle, req.PostAt), err)
		s.alert(ctx, fmt.Sprintf("Reminder %s keeps delivery %s at %d, but delivery %s at %d was also scheduled and is orphaned. Delete it manually.",
			existing.ID, oldHandle, oldPostAt, newHandle, req.PostAt))
		return nil, appErrors.Orphaned(opRetarget,
			fmt.Sprintf("delivery %s at %d is still authoritative", oldHandle, oldPostAt), newHandle, cause)
	}

	result := &dto.ReminderResult{Reminder: &updated}

	if constant.IsExpired(oldPostAt, now) {
		s.log.Debug(fmt.Sprintf("Previous delivery %s of reminder %s already fired, nothing to cancel", oldHandle, existing.ID))
	} else {
		err := s.delivery.CancelDelivery(ctx, existing.CreatorID, oldHandle)
		s.metrics.ObserveCall(callCancel, err)
		if err != nil {
			warning := appErrors.New(appErrors.ErrCancellation, opRetarget,
				fmt.Sprintf("previous delivery %s could not be cancelled, a stale notification may still arrive at %d", oldHandle, oldPostAt), err)
			s.log.Error(fmt.Sprintf("Failed to cancel previous delivery %s of reminder %s", oldHandle, existing.ID), err)
			s.alert(ctx, fmt.Sprintf("Stale delivery %s at %d of reminder %s could not be cancelled.", oldHandle, oldPostAt, existing.ID))
			result.Warnings = append(result.Warnings, warning)
		}
	}

	s.log.Info(fmt.Sprintf("Retargeted reminder %s from %d to %d (delivery %s)", updated.ID, oldPostAt, updated.PostAt, newHandle))
	return result, nil
}

// CancelReminder cancels the pending delivery, then deletes the reminder. The
// record is kept if the delivery could not be cancelled.
func (s *reminderService) CancelReminder(ctx context.Context, req dto.CancelReminderRequest) (bool, error) {
	ok, err := s.cancelReminder(ctx, req)
	s.observe(opCancel, nil, err)
	return ok, err
}

func (s *reminderService) cancelReminder(ctx context.Context, req dto.CancelReminderRequest) (bool, error) {
	existing, err := s.loadOwned(ctx, opCancel, req.ID, req.RequesterID)
	if err != nil {
		return false, err
	}

	pending := !constant.IsExpired(existing.PostAt, s.now())
	if pending {
		err := s.delivery.CancelDelivery(ctx, existing.CreatorID, existing.ScheduledMessageID)
		s.metrics.ObserveCall(callCancel, err)
		if err != nil {
			s.log.Error(fmt.Sprintf("Failed to cancel delivery %s of reminder %s; keeping the reminder", existing.ScheduledMessageID, existing.ID), err)
			return false, appErrors.New(appErrors.ErrCancellation, opCancel, "reminder kept", err)
		}
	} else {
		s.log.Debug(fmt.Sprintf("Reminder %s already expired, skipping delivery cancellation", existing.ID))
	}

	n, err := s.reminderRepo.Delete(ctx, existing.ID, existing.Version)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to delete reminder %s", existing.ID), err)
		if pending {
			s.alert(ctx, fmt.Sprintf("Delivery %s of reminder %s was cancelled but the reminder could not be deleted.", existing.ScheduledMessageID, existing.ID))
		}
		return false, appErrors.New(appErrors.ErrPersistence, opCancel, "reminder not deleted", err)
	}
	if n == 0 {
		s.log.Error(fmt.Sprintf("Deleting reminder %s at version %d affected no rows", existing.ID, existing.Version), nil)
		return false, appErrors.New(appErrors.ErrConsistency, opCancel,
			fmt.Sprintf("reminder %s disappeared or changed during cancellation", existing.ID), nil)
	}

	s.log.Info(fmt.Sprintf("Cancelled reminder %s of user %s", existing.ID, existing.CreatorID))
	return true, nil
}

// SweepExpired deletes all reminders whose delivery time has passed. Their
// deliveries have already fired, so no external call is made.
func (s *reminderService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.reminderRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		s.log.Error("Failed to sweep expired reminders", err)
		err = appErrors.New(appErrors.ErrPersistence, opSweep, "", err)
		s.observe(opSweep, nil, err)
		return 0, err
	}
	s.metrics.RemindersSwept.Add(float64(n))
	s.observe(opSweep, nil, nil)
	s.log.Info(fmt.Sprintf("Swept %d expired reminders", n))
	return n, nil
}

// ListReminders returns the reminders of creatorID ordered by delivery time.
func (s *reminderService) ListReminders(ctx context.Context, creatorID string) ([]*entity.Reminder, error) {
	if creatorID == "" {
		return nil, appErrors.New(appErrors.ErrValidation, opList, "creator is required", nil)
	}
	reminders, err := s.reminderRepo.FindByCreatorID(ctx, creatorID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to list reminders for user %s", creatorID), err)
		return nil, appErrors.New(appErrors.ErrPersistence, opList, "", err)
	}
	return reminders, nil
}

// GetReminder retrieves a reminder owned by requesterID.
func (s *reminderService) GetReminder(ctx context.Context, id, requesterID string) (*entity.Reminder, error) {
	return s.loadOwned(ctx, opGet, id, requesterID)
}

// loadOwned loads a reminder and checks that requesterID owns it. A reminder owned
// by someone else is reported as not found.
func (s *reminderService) loadOwned(ctx context.Context, op, id, requesterID string) (*entity.Reminder, error) {
	if id == "" || requesterID == "" {
		return nil, appErrors.New(appErrors.ErrValidation, op, "reminder id and requester are required", nil)
	}
	reminder, err := s.reminderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReminderNotFound) {
			return nil, appErrors.New(appErrors.ErrNotFound, op, fmt.Sprintf("reminder %s", id), nil)
		}
		s.log.Error(fmt.Sprintf("Failed to load reminder %s", id), err)
		return nil, appErrors.New(appErrors.ErrPersistence, op, "", err)
	}
	if reminder.CreatorID != requesterID {
		s.log.Warn(fmt.Sprintf("User %s attempted %s on reminder %s owned by %s", requesterID, op, id, reminder.CreatorID))
		return nil, appErrors.New(appErrors.ErrNotFound, op, fmt.Sprintf("reminder %s", id), nil)
	}
	return reminder, nil
}

// alert forwards text to the operator. Failures are only logged.
func (s *reminderService) alert(ctx context.Context, text string) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx), text); err != nil {
		s.log.Error("Failed to notify operator", err)
	}
}

func (s *reminderService) observe(op string, result *dto.ReminderResult, err error) {
	switch {
	case err != nil:
		s.metrics.ObserveOperation(op, metrics.ResultFailure)
	case result != nil && result.Partial():
		s.metrics.ObserveOperation(op, metrics.ResultPartial)
	default:
		s.metrics.ObserveOperation(op, metrics.ResultSuccess)
	}
}

func validateCreate(req dto.CreateReminderRequest) error {
	switch {
	case req.CreatorID == "":
		return appErrors.New(appErrors.ErrValidation, opCreate, "creator is required", nil)
	case req.ChannelID == "" || req.MessageTs == "":
		return appErrors.New(appErrors.ErrValidation, opCreate, "channel_id and message_ts are required", nil)
	case req.DelayMinutes < 0 || req.DelayHours < 0 || req.DelayDays < 0:
		return appErrors.New(appErrors.ErrValidation, opCreate, "delay values cannot be negative", nil)
	case req.DelayMinutes == 0 && req.DelayHours == 0 && req.DelayDays == 0:
		return appErrors.New(appErrors.ErrValidation, opCreate, "not all delay values can be 0", nil)
	case req.DelayMinutes > int(constant.MaxHorizon/time.Minute) ||
		req.DelayHours > int(constant.MaxHorizon/time.Hour) ||
		req.DelayDays > int(constant.MaxHorizon/(24*time.Hour)):
		// Keeps Delay from overflowing into a small, in-bounds duration.
		return appErrors.New(appErrors.ErrValidation, opCreate,
			fmt.Sprintf("delay must be between %v and %v", constant.MinLeadTime, constant.MaxHorizon), nil)
	}
	return nil
}

func reminderText(permalink string) string {
	return fmt.Sprintf(constant.ReminderTextFormat, permalink)
}
