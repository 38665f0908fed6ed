package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("dependency unavailable")

	ErrThrottled          = errors.New("too many requests")
	ErrOTPExpired         = errors.New("otp expired")
	ErrOTPTooManyAttempts = errors.New("otp attempts exhausted")
	ErrOTPInvalid         = errors.New("otp invalid")
)

// ThrottledError carries the wait time for a rate-limited call. It matches ErrThrottled.
// Message, when set, is shown to clients instead of the generic text.
type ThrottledError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *ThrottledError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Too many requests. Please try again in %d seconds.", e.RetryAfterSeconds())
}

func (e *ThrottledError) Is(target error) bool { return target == ErrThrottled }

// RetryAfterSeconds rounds the wait up to whole seconds, never below one.
func (e *ThrottledError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// PublicError pairs a sentinel with the message shown to API clients.
type PublicError struct {
	Kind    error
	Message string
}

func (e *PublicError) Error() string { return e.Message }

func (e *PublicError) Unwrap() error { return e.Kind }

// Errorf returns a PublicError of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &PublicError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidationError carries field-keyed messages for a rejected payload. It matches ErrValidation.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FieldError builds a ValidationError for a single field.
func FieldError(field, message string) error {
	return &ValidationError{Message: message, Fields: map[string][]string{field: {message}}}
}
