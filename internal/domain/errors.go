package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal job failures so callers can react without
// string matching.
type ErrorKind string

const (
	ErrValidation  ErrorKind = "validation"
	ErrNotFound    ErrorKind = "not_found"
	ErrForbidden   ErrorKind = "forbidden"
	ErrRateLimited ErrorKind = "rate_limited"
	ErrTimeout     ErrorKind = "timeout"
	ErrStorage     ErrorKind = "storage"
	ErrUpstream    ErrorKind = "upstream"
)

// JobError is the only error type allowed to cross the job boundary.
type JobError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *JobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError wraps cause with a kind and a user-facing message.
func NewJobError(kind ErrorKind, message string, cause error) *JobError {
	return &JobError{Kind: kind, Message: message, Err: cause}
}

// Validationf builds a validation error from a format string.
func Validationf(format string, args ...any) *JobError {
	return &JobError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or ErrUpstream when err carries none.
func KindOf(err error) ErrorKind {
	var je *JobError
	if errors.As(err, &je) {
		return je.Kind
	}
	return ErrUpstream
}
