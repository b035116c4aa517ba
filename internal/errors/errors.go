package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the booking core. Handlers translate them to HTTP
// status codes; everything else is treated as a store/infrastructure fault.
var (
	ErrAreaNotFound      = errors.New("parking area not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrSlotConflict      = errors.New("slot was reserved concurrently")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrLockTimeout       = errors.New("timed out waiting for area lock")
)

// ValidationError marks malformed input rejected before any store access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// FromError maps a service error to the HTTPError the API should return.
func FromError(err error) *HTTPError {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrAreaNotFound),
		errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrSlotConflict), errors.Is(err, ErrLockTimeout):
		return NewHTTPError(http.StatusConflict, "booking conflicted with a concurrent request, please retry")
	case errors.Is(err, ErrInvalidTransition):
		return NewHTTPError(http.StatusConflict, err.Error())
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
