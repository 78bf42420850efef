package constant

import "time"

const (
	// MinLeadTime is how far in the future a delivery time must at least be.
	MinLeadTime = 30 * time.Second
	// MaxHorizon is how far in the future a delivery time may at most be.
	MaxHorizon = 120 * 24 * time.Hour
)

// ReminderTextFormat is the text delivered to the creator; the argument is the permalink.
const ReminderTextFormat = "Here's your reminder: %s"

// ReminderState describes where a reminder is in its lifecycle.
type ReminderState string

const (
	// StatePending means the delivery time has not been reached yet.
	StatePending ReminderState = "pending"
	// StateExpired means the delivery has fired (or was due) and the record awaits the sweep.
	StateExpired ReminderState = "expired"
)

// StateAt returns the state of a reminder due at postAt, as seen at now.
func StateAt(postAt int64, now time.Time) ReminderState {
	if IsExpired(postAt, now) {
		return StateExpired
	}
	return StatePending
}

// IsExpired reports whether postAt has been reached at now.
func IsExpired(postAt int64, now time.Time) bool {
	return postAt <= now.Unix()
}

// WithinBounds reports whether postAt lies in [now+MinLeadTime, now+MaxHorizon].
func WithinBounds(postAt int64, now time.Time) bool {
	earliest := now.Add(MinLeadTime).Unix()
	latest := now.Add(MaxHorizon).Unix()
	return postAt >= earliest && postAt <= latest
}
