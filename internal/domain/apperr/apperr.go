package apperr

import (
	"errors"
	"fmt"
)

// Reason is a stable machine-readable failure code.
type Reason string

const (
	ReasonValidation        Reason = "validation_error"
	ReasonForbidden         Reason = "forbidden"
	ReasonNotFound          Reason = "not_found"
	ReasonInvalidTransition Reason = "invalid_transition"
	ReasonRateLimited       Reason = "rate_limited"
	ReasonSelfMatch         Reason = "self_match"
	ReasonMatchNotAccepted  Reason = "match_not_accepted"
	ReasonConflict          Reason = "conflict"
)

// Error pairs a stable reason with a human message.
type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func New(reason Reason, format string, args ...interface{}) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return New(ReasonValidation, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(ReasonForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(ReasonNotFound, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return New(ReasonInvalidTransition, format, args...)
}

func RateLimited(format string, args ...interface{}) *Error {
	return New(ReasonRateLimited, format, args...)
}

func SelfMatch(format string, args ...interface{}) *Error {
	return New(ReasonSelfMatch, format, args...)
}

func MatchNotAccepted(format string, args ...interface{}) *Error {
	return New(ReasonMatchNotAccepted, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(ReasonConflict, format, args...)
}

// ReasonOf extracts the reason from err, or empty when err is not an *Error.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Is reports whether err carries the given reason.
func Is(err error, reason Reason) bool {
	return ReasonOf(err) == reason
}
