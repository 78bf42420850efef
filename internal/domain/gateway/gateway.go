package gateway

import (
	"context"
	"errors"
)

// ErrContentNotFound is returned by a ContentResolver when the referenced message
// does not exist or is not visible to the bot.
var ErrContentNotFound = errors.New("content not found or inaccessible")

// ContentRef points at a message on the messaging platform.
type ContentRef struct {
	ChannelID string `json:"channel_id"`
	MessageTs string `json:"message_ts"`
}

// Content is the snapshot of a message taken when a reminder is created.
type Content struct {
	Permalink      string
	AuthorID       string
	AuthorName     string
	ChannelID      string
	ChannelName    string
	MessageTs      string
	MessageContent string
}

// ContentResolver turns a ContentRef into a stable permalink and message snapshot.
type ContentResolver interface {
	ResolveContent(ctx context.Context, ref ContentRef) (*Content, error)
}

// DeliveryScheduler schedules and cancels one-shot message deliveries on the
// messaging platform. It is only ever commanded, never queried.
type DeliveryScheduler interface {
	// ScheduleDelivery schedules text to be sent to targetID at postAt (epoch
	// seconds) and returns the platform's handle for the pending delivery.
	ScheduleDelivery(ctx context.Context, targetID, text string, postAt int64) (string, error)
	// CancelDelivery cancels the pending delivery identified by handle that was
	// scheduled for targetID.
	CancelDelivery(ctx context.Context, targetID, handle string) error
}

// OperatorNotifier alerts a human operator about states that need manual reconciliation.
type OperatorNotifier interface {
	Notify(ctx context.Context, text string) error
}

// NopNotifier discards all alerts.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error { return nil }
