package docstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the handle no longer resolves to a file.
	ErrNotFound = errors.New("docstore: file not found")
	// ErrForbidden is returned when the store refuses access.
	ErrForbidden = errors.New("docstore: access denied")
	// ErrOffline is returned when the store cannot be reached.
	ErrOffline = errors.New("docstore: offline")
	// ErrPreconditionFailed is returned when a conditional write lost a race.
	ErrPreconditionFailed = errors.New("docstore: precondition failed")
	// ErrUserCancelled is returned when a picker was dismissed.
	ErrUserCancelled = errors.New("docstore: cancelled by user")
	// ErrMissingToken is returned when a write is attempted without a token.
	ErrMissingToken = errors.New("docstore: missing precondition token")
)

// ConflictError reports a conditional write rejected because the file moved
// on since ExpectedToken was read.
type ConflictError struct {
	Handle        Handle
	ExpectedToken string
	CurrentToken  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("docstore: %s changed since token %s", e.Handle, e.ExpectedToken)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrPreconditionFailed
}

// Kind classifies adapter failures.
type Kind string

const (
	KindNone               Kind = ""
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindOffline            Kind = "offline"
	KindPreconditionFailed Kind = "precondition_failed"
	KindUserCancelled      Kind = "user_cancelled"
	KindMissingToken       Kind = "missing_token"
	KindCancelled          Kind = "cancelled"
	KindUnknown            Kind = "unknown"
)

// KindOf returns the Kind of err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrPreconditionFailed):
		return KindPreconditionFailed
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrOffline):
		return KindOffline
	case errors.Is(err, ErrUserCancelled):
		return KindUserCancelled
	case errors.Is(err, ErrMissingToken):
		return KindMissingToken
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindUnknown
	}
}
