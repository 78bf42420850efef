package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the reminder service matches exactly one
// of these through errors.Is.
var (
	ErrValidation   = errors.New("validation failed")              // Bad input, nothing attempted
	ErrLookup       = errors.New("content lookup failed")          // Referenced message not resolvable
	ErrScheduling   = errors.New("scheduling failed")              // External schedule call failed
	ErrCancellation = errors.New("cancellation failed")            // External cancel call failed
	ErrPersistence  = errors.New("persistence failed")             // Store read/write failed
	ErrNotFound     = errors.New("reminder not found")             // No such reminder, or not the owner
	ErrConsistency  = errors.New("reminder state is inconsistent") // Store disagreed with an earlier read
	ErrInternal     = errors.New("internal error")                 // Misconfiguration or programming error
)

// ErrOrphanedDelivery matches persistence failures that happened after an external
// delivery was already scheduled. The delivery will still fire and has no local
// record; operators have to reconcile it by hand.
var ErrOrphanedDelivery = errors.New("external delivery scheduled without a local record")

// Error is the structured failure returned by the reminder service.
type Error struct {
	Kind    error  // One of the Err* kinds above
	Op      string // Operation that failed, e.g. "reminder.retarget"
	Message string // Human readable detail
	Handle  string // Dangling external delivery handle, if any
	Err     error  // Underlying cause
}

// New builds an Error of the given kind.
func New(kind error, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// Orphaned builds a persistence error that carries the handle of an external
// delivery left without a matching record.
func Orphaned(op, message, handle string, cause error) *Error {
	return &Error{Kind: ErrPersistence, Op: op, Message: message, Handle: handle, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Handle != "" {
		msg = fmt.Sprintf("%s (orphaned delivery %s)", msg, e.Handle)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e, or ErrOrphanedDelivery when e
// carries a dangling handle.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return target == ErrOrphanedDelivery && e.Handle != ""
}

// KindOf returns the kind of err, or nil if err does not carry one.
func KindOf(err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	for _, kind := range []error{ErrValidation, ErrLookup, ErrScheduling, ErrCancellation, ErrPersistence, ErrNotFound, ErrConsistency, ErrInternal} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
