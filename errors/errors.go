package errors

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerPanic               = fmt.Errorf("worker panic")
	ErrUnauthenticatedConnection = fmt.Errorf("unauthenticated connection")
	ErrAccessDenied              = fmt.Errorf("access denied")
	ErrValidationFailed          = fmt.Errorf("validation failed")
	ErrStoreWriteFailed          = fmt.Errorf("store write failed")
	ErrStaleEdit                 = fmt.Errorf("edit window expired")
	ErrMessageNotFound           = fmt.Errorf("message not found")
	ErrChatNotFound              = fmt.Errorf("chat not found")
	ErrRateLimited               = fmt.Errorf("rate limited")
	ErrSlowConsumer              = fmt.Errorf("connection buffer full")
	ErrConnectionClosed          = fmt.Errorf("connection closed")
	ErrRoomClosed                = fmt.Errorf("room worker stopped")
	ErrRegistryStopped           = fmt.Errorf("session registry stopped")
	ErrSupervisorStopped         = fmt.Errorf("supervisor is not running")
	ErrUnknownEventType          = fmt.Errorf("unknown event type")
)

// Code is the error code sent to the originating connection in an error frame.
type Code string

const (
	CodeUnauthenticated  Code = "unauthenticated"
	CodeAccessDenied     Code = "access_denied"
	CodeValidationFailed Code = "validation_failed"
	CodeStoreWriteFailed Code = "store_write_failed"
	CodeStaleEdit        Code = "stale_edit"
	CodeNotFound         Code = "not_found"
	CodeRateLimited      Code = "rate_limited"
	CodeInternal         Code = "internal"
)

// ToCode maps a rejection to its wire code.
// Anything that is not a known rejection is reported as internal.
func ToCode(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticatedConnection):
		return CodeUnauthenticated
	case errors.Is(err, ErrAccessDenied):
		return CodeAccessDenied
	case errors.Is(err, ErrStaleEdit):
		return CodeStaleEdit
	case errors.Is(err, ErrValidationFailed), errors.Is(err, ErrUnknownEventType):
		return CodeValidationFailed
	case errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrChatNotFound):
		return CodeNotFound
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrStoreWriteFailed):
		return CodeStoreWriteFailed
	default:
		return CodeInternal
	}
}

// IsRejection reports whether err is a domain rejection that the store or the
// engine produced on purpose, as opposed to an infrastructure failure.
func IsRejection(err error) bool {
	switch ToCode(err) {
	case CodeInternal, CodeStoreWriteFailed, "":
		return false
	default:
		return true
	}
}
