package dto

import (
	"remindme/internal/domain/constant"
	"remindme/internal/domain/entity"
	"remindme/internal/domain/gateway"
	"time"
)

// ReminderResponse is the DTO for sending reminder information to the client.
type ReminderResponse struct {
	ID             string                 `json:"id"`
	CreatorID      string                 `json:"creator_id"`
	Permalink      string                 `json:"permalink"`
	PostAt         int64                  `json:"post_at"`
	State          constant.ReminderState `json:"state"`
	AuthorID       string                 `json:"author_id"`
	AuthorName     string                 `json:"author_name"`
	ChannelID      string                 `json:"channel_id"`
	ChannelName    string                 `json:"channel_name"`
	MessageTs      string                 `json:"message_ts"`
	MessageContent string                 `json:"message_content"`
}

// ToReminderResponse converts an entity.Reminder to a ReminderResponse DTO.
// The scheduled message handle is internal and never exposed.
func ToReminderResponse(r *entity.Reminder, now time.Time) ReminderResponse {
	return ReminderResponse{
		ID:             r.ID,
		CreatorID:      r.CreatorID,
		Permalink:      r.Permalink,
		PostAt:         r.PostAt,
		State:          constant.StateAt(r.PostAt, now),
		AuthorID:       r.AuthorID,
		AuthorName:     r.AuthorName,
		ChannelID:      r.ChannelID,
		ChannelName:    r.ChannelName,
		MessageTs:      r.MessageTs,
		MessageContent: r.MessageContent,
	}
}

// ToReminderResponseList converts a slice of entity.Reminder to a slice of ReminderResponse DTOs.
func ToReminderResponseList(reminders []*entity.Reminder, now time.Time) []ReminderResponse {
	list := make([]ReminderResponse, len(reminders))
	for i, r := range reminders {
		list[i] = ToReminderResponse(r, now)
	}
	return list
}

// CreateReminderRequest is the DTO for creating a new reminder.
type CreateReminderRequest struct {
	gateway.ContentRef
	CreatorID    string `json:"-"`
	DelayMinutes int    `json:"minutes"`
	DelayHours   int    `json:"hours"`
	DelayDays    int    `json:"days"`
}

// Delay returns the total delay the request asks for. The components must be
// bounded by the caller; very large values overflow.
func (r CreateReminderRequest) Delay() time.Duration {
	return time.Duration((r.DelayDays*24+r.DelayHours)*60+r.DelayMinutes) * time.Minute
}

// RetargetReminderRequest is the DTO for moving a reminder to a new delivery time.
type RetargetReminderRequest struct {
	ID          string `json:"-"`
	RequesterID string `json:"-"`
	PostAt      int64  `json:"post_at"`
}

// CancelReminderRequest is the DTO for cancelling a reminder.
type CancelReminderRequest struct {
	ID          string `json:"-"`
	RequesterID string `json:"-"`
}

// ReminderResult is the outcome of a mutation that took effect. Warnings lists
// non-fatal problems, e.g. a stale delivery that could not be cancelled.
type ReminderResult struct {
	Reminder *entity.Reminder
	Warnings []error
}

// Partial reports whether the mutation succeeded with warnings.
func (r *ReminderResult) Partial() bool {
	return len(r.Warnings) > 0
}

// FieldError is a single error entry in a mutation response.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// MutationResponse mirrors the reminder + errors envelope returned to callers.
type MutationResponse struct {
	Reminder *ReminderResponse `json:"reminder,omitempty"`
	Errors   []FieldError      `json:"errors,omitempty"`
}

// CancelResponse is returned by cancel.
type CancelResponse struct {
	Success bool         `json:"success"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// SweepResponse is returned by the sweep.
type SweepResponse struct {
	Removed int64 `json:"removed"`
}
