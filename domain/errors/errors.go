// Package errors provides the closed error taxonomy for host boundary operations.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/ocwasm/ocsafe/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// Kind is the category of a boundary failure.
type Kind string

const (
	// KindInvalidDescriptor: the descriptor is closed, stale, of the wrong kind, or unknown to the host.
	KindInvalidDescriptor Kind = "invalid_descriptor"
	// KindBufferTooLarge: a buffer would exceed its configured maximum.
	KindBufferTooLarge Kind = "buffer_too_large"
	// KindBadArgument: an argument could not be encoded or was rejected by the host.
	KindBadArgument Kind = "bad_argument"
	// KindHostUnsupported: the host does not implement the requested operation.
	KindHostUnsupported Kind = "host_unsupported_operation"
	// KindProtocolViolation: the host broke the call protocol.
	KindProtocolViolation Kind = "protocol_violation"
	// KindUnknown: the host returned a status this layer does not know.
	KindUnknown Kind = "unknown"
)

// Error is a boundary failure. Two errors match under errors.Is when their
// kinds match; an Unknown target with a non-zero Code also compares codes.
type Error struct {
	Err    error
	Kind   Kind
	Op     string
	Detail string
	Code   uint32
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Kind == KindUnknown {
		msg = fmt.Sprintf("unknown host status %d", e.Code)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Kind != KindUnknown || t.Code == 0 || t.Code == e.Code
}

// ToErrorDetail converts the error to its structured form.
func (e *Error) ToErrorDetail() *entities.ErrorDetail {
	d := entities.NewErrorDetail(string(e.Kind), e.Error())
	if e.Code != 0 {
		d.WithCode(fmt.Sprintf("status_%d", e.Code))
	}
	return d
}

// Sentinels for errors.Is.
var (
	ErrInvalidDescriptor  = &Error{Kind: KindInvalidDescriptor}
	ErrBufferTooLarge     = &Error{Kind: KindBufferTooLarge}
	ErrBadArgument        = &Error{Kind: KindBadArgument}
	ErrHostUnsupported    = &Error{Kind: KindHostUnsupported}
	ErrProtocolViolation  = &Error{Kind: KindProtocolViolation}
	ErrUnknown            = &Error{Kind: KindUnknown}
	ErrUseAfterClose      = stdErrors.New("descriptor used after close")
	ErrStaleDescriptor    = stdErrors.New("descriptor generation is stale")
	ErrDescriptorMismatch = stdErrors.New("descriptor kind does not match operation")
	ErrQueueFull          = stdErrors.New("host signal queue is full")
)

// New creates an error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// InvalidDescriptor creates a KindInvalidDescriptor error wrapping cause.
// cause may be nil.
func InvalidDescriptor(op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidDescriptor, Op: op, Detail: fmt.Sprintf(format, args...), Err: cause}
}

// BufferTooLarge reports a request of requested bytes against a maximum.
func BufferTooLarge(op string, requested, maximum int) *Error {
	return &Error{
		Kind:   KindBufferTooLarge,
		Op:     op,
		Detail: fmt.Sprintf("requested %d bytes, maximum %d bytes", requested, maximum),
	}
}

// BadArgument creates a KindBadArgument error.
func BadArgument(op, format string, args ...any) *Error {
	return New(KindBadArgument, op, format, args...)
}

// ProtocolViolation creates a KindProtocolViolation error.
func ProtocolViolation(op, format string, args ...any) *Error {
	return New(KindProtocolViolation, op, format, args...)
}

// Unknown creates a KindUnknown error carrying the raw status code.
func Unknown(op string, code uint32) *Error {
	return &Error{Kind: KindUnknown, Op: op, Code: code}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UnknownCode returns the raw status of an Unknown error.
func UnknownCode(err error) (uint32, bool) {
	var e *Error
	if stdErrors.As(err, &e) && e.Kind == KindUnknown {
		return e.Code, true
	}
	return 0, false
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var d *entities.ErrorDetail
	if stdErrors.As(err, &d) {
		return d
	}

	var e *Error
	if stdErrors.As(err, &e) {
		return e.ToErrorDetail()
	}

	var ce *ConfigError
	if stdErrors.As(err, &ce) {
		return ce.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail converts the error to its structured form.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}
