package sqlite

import (
	"context"
	"errors"
	"fmt"
	"remindme/internal/domain/entity"
	"remindme/internal/domain/repository"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository creates a new instance of ReminderRepository.
func NewReminderRepository(db *gorm.DB) repository.ReminderRepository {
	return &reminderRepository{db: db}
}

// Create inserts a new reminder.
func (r *reminderRepository) Create(ctx context.Context, reminder *entity.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	reminder.Version = 1
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("failed to create reminder for creator %s: %w", reminder.CreatorID, err)
	}
	return nil
}

// FindByID retrieves a reminder by its ID.
func (r *reminderRepository) FindByID(ctx context.Context, id string) (*entity.Reminder, error) {
	var reminder entity.Reminder
	if err := r.db.WithContext(ctx).First(&reminder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reminder with ID %s: %w", id, repository.ErrReminderNotFound)
		}
		return nil, fmt.Errorf("failed to find reminder by id %s: %w", id, err)
	}
	return &reminder, nil
}

// FindByCreatorID retrieves all reminders for a creator, earliest first.
func (r *reminderRepository) FindByCreatorID(ctx context.Context, creatorID string) ([]*entity.Reminder, error) {
	var reminders []*entity.Reminder
	if err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("post_at asc").
		Order("id asc").
		Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to find reminders by creator_id %s: %w", creatorID, err)
	}
	return reminders, nil
}

// Update rewrites the scheduling columns, guarded by the version read earlier.
func (r *reminderRepository) Update(ctx context.Context, reminder *entity.Reminder) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&entity.Reminder{}).
		Where("id = ? AND version = ?", reminder.ID, reminder.Version).
		Updates(map[string]interface{}{
			"post_at":              reminder.PostAt,
			"scheduled_message_id": reminder.ScheduledMessageID,
			"version":              reminder.Version + 1,
			"updated_at":           now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update reminder %s: %w", reminder.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reminder %s at version %d: %w", reminder.ID, reminder.Version, repository.ErrStaleReminder)
	}
	reminder.Version++
	reminder.UpdatedAt = now
	return nil
}

// Delete deletes a reminder by its ID and version.
func (r *reminderRepository) Delete(ctx context.Context, id string, version int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND version = ?", id, version).Delete(&entity.Reminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete reminder %s: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteExpired deletes reminders whose post_at is at or before now.
func (r *reminderRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_at <= ?", now.Unix()).Delete(&entity.Reminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete reminders expired at %v: %w", now, res.Error)
	}
	return res.RowsAffected, nil
}
