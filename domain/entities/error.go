package entities

import "fmt"

// ErrorDetail provides structured error information.
// Used when an error has to cross the host boundary as data, e.g. inside a log record.
// Error Types: "invalid_descriptor", "buffer_too_large", "bad_argument",
// "host_unsupported_operation", "protocol_violation", "unknown", "internal"
type ErrorDetail struct {
	// Message is a human-readable error description.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithCode sets the code and returns the receiver.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// Table renders the detail as a Value so it can be embedded in host payloads.
func (e *ErrorDetail) Table() Table {
	t := Table{
		{Key: String("message"), Value: String(e.Message)},
		{Key: String("type"), Value: String(e.Type)},
	}
	if e.Code != "" {
		t = append(t, Entry{Key: String("code"), Value: String(e.Code)})
	}
	return t
}
