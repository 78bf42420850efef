package repository

import (
	"context"
	"errors"
	"remindme/internal/domain/entity"
	"time"
)

var (
	// ErrReminderNotFound is returned when no reminder has the requested ID.
	ErrReminderNotFound = errors.New("reminder not found")
	// ErrStaleReminder is returned when a guarded write finds a newer version than the caller read.
	ErrStaleReminder = errors.New("reminder was modified concurrently")
)

// ReminderRepository defines the interface for reminder data operations.
type ReminderRepository interface {
	// Create inserts a new reminder, assigning its ID and initial version.
	Create(ctx context.Context, reminder *entity.Reminder) error
	// FindByID retrieves a reminder by its ID. Returns ErrReminderNotFound if missing.
	FindByID(ctx context.Context, id string) (*entity.Reminder, error)
	// FindByCreatorID retrieves all reminders of a creator ordered by ascending post_at.
	FindByCreatorID(ctx context.Context, creatorID string) ([]*entity.Reminder, error)
	// Update writes post_at and scheduled_message_id if the stored version still
	// equals reminder.Version, then bumps reminder.Version. Returns ErrStaleReminder otherwise.
	Update(ctx context.Context, reminder *entity.Reminder) error
	// Delete removes the reminder with the given ID and version and reports the rows affected.
	Delete(ctx context.Context, id string, version int64) (int64, error)
	// DeleteExpired removes all reminders with post_at at or before now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
