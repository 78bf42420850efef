package service

import (
	"context"
	"remindme/internal/application/dto"
	"remindme/internal/domain/entity"
)

// ReminderService defines the interface for reminder lifecycle operations. It keeps
// the local reminder record and the delivery scheduled on the messaging platform
// consistent. Every failure it returns matches one of the kinds in pkg/errors.
type ReminderService interface {
	// CreateReminder resolves the referenced message, schedules the delivery and
	// saves the reminder.
	CreateReminder(ctx context.Context, req dto.CreateReminderRequest) (*entity.Reminder, error)
	// RetargetReminder moves a reminder to a new delivery time. A non-nil result may
	// carry warnings when the previous delivery could not be cancelled.
	RetargetReminder(ctx context.Context, req dto.RetargetReminderRequest) (*dto.ReminderResult, error)
	// CancelReminder cancels the pending delivery, if any, and deletes the reminder.
	CancelReminder(ctx context.Context, req dto.CancelReminderRequest) (bool, error)
	// SweepExpired deletes every reminder whose delivery time has passed and
	// returns how many were removed.
	SweepExpired(ctx context.Context) (int64, error)
	// ListReminders returns the reminders of a creator, earliest first.
	ListReminders(ctx context.Context, creatorID string) ([]*entity.Reminder, error)
	// GetReminder returns a single reminder owned by requesterID.
	GetReminder(ctx context.Context, id, requesterID string) (*entity.Reminder, error)
}
