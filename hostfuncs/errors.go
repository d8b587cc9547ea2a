package hostfuncs

import (
	stdErrors "errors"
	"fmt"

	"github.com/ocwasm/ocsafe/domain/errors"
)

// StatusError is a handler failure reported to the guest as a specific status.
type StatusError struct {
	Message string
	Status  errors.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// NewStatusError creates a StatusError.
func NewStatusError(status errors.Status, format string, args ...any) *StatusError {
	return &StatusError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports bad arguments.
func NewValidationError(message string) *StatusError {
	return &StatusError{Status: errors.StatusBadParameters, Message: message}
}

// NewNotFoundError reports an unknown method.
func NewNotFoundError(method string) *StatusError {
	return &StatusError{Status: errors.StatusNoSuchMethod, Message: "unknown method: " + method}
}

// NewPanicError reports a recovered handler panic.
func NewPanicError(panicValue any) *StatusError {
	var msg string
	if err, ok := panicValue.(error); ok {
		msg = err.Error()
	} else if s, ok := panicValue.(string); ok {
		msg = s
	} else {
		msg = "panic recovered"
	}
	return &StatusError{Status: errors.StatusProtocolError, Message: "panic: " + msg}
}

// statusOf picks the status reported for a handler error. Boundary errors
// keep their kind; any other error counts as a rejected argument.
func statusOf(err error) errors.Status {
	var se *StatusError
	if stdErrors.As(err, &se) {
		return se.Status
	}
	if stdErrors.Is(err, ErrSignalBufferFull) || stdErrors.Is(err, errors.ErrQueueFull) {
		return errors.StatusQueueFull
	}
	var be *errors.Error
	if stdErrors.As(err, &be) {
		switch be.Kind {
		case errors.KindInvalidDescriptor:
			return errors.StatusBadDescriptor
		case errors.KindBufferTooLarge:
			return errors.StatusTooLarge
		case errors.KindHostUnsupported:
			return errors.StatusUnsupported
		case errors.KindProtocolViolation:
			return errors.StatusProtocolError
		case errors.KindUnknown:
			return errors.Status(be.Code)
		}
	}
	return errors.StatusBadParameters
}
