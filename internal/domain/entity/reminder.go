package entity

import "time"

// Reminder is a user's request for a one-shot notification about a Slack message.
// ScheduledMessageID refers to the delivery scheduled on Slack for PostAt.
type Reminder struct {
	ID                 string    `gorm:"column:id;primaryKey;type:char(36)"`
	CreatorID          string    `gorm:"column:creator_id;not null;index:idx_reminder_creator_post_at,priority:1"`
	Permalink          string    `gorm:"column:permalink;not null"`
	PostAt             int64     `gorm:"column:post_at;not null;index:idx_reminder_creator_post_at,priority:2;index:idx_reminder_post_at"`
	ScheduledMessageID string    `gorm:"column:scheduled_message_id;not null"`
	AuthorID           string    `gorm:"column:author_id;not null"`
	AuthorName         string    `gorm:"column:author_name;not null"`
	ChannelID          string    `gorm:"column:channel_id;not null"`
	ChannelName        string    `gorm:"column:channel_name;not null"`
	MessageTs          string    `gorm:"column:message_ts;not null"`
	MessageContent     string    `gorm:"column:message_content;type:text;not null"`
	Version            int64     `gorm:"column:version;not null;default:1"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for the Reminder entity.
func (Reminder) TableName() string {
	return "reminder"
}
