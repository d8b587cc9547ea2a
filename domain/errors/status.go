package errors

import "fmt"

// Status is a raw host call status code.
type Status uint32

// Known host statuses.
const (
	StatusOK              Status = 0
	StatusBufferTooSmall  Status = 1 // the count reports the bytes required
	StatusBadDescriptor   Status = 2
	StatusNoSuchComponent Status = 3
	StatusBadParameters   Status = 4
	StatusDecodeFailure   Status = 5
	StatusNoSuchMethod    Status = 6
	StatusUnsupported     Status = 7
	StatusProtocolError   Status = 8
	StatusTooLarge        Status = 9
	StatusQueueFull       Status = 10
)

var statusNames = map[Status]string{
	StatusOK:              "ok",
	StatusBufferTooSmall:  "buffer too small",
	StatusBadDescriptor:   "bad descriptor",
	StatusNoSuchComponent: "no such component",
	StatusBadParameters:   "bad parameters",
	StatusDecodeFailure:   "decode failure",
	StatusNoSuchMethod:    "no such method",
	StatusUnsupported:     "unsupported",
	StatusProtocolError:   "protocol error",
	StatusTooLarge:        "too large",
	StatusQueueFull:       "queue full",
}

var statusKinds = map[Status]Kind{
	StatusBufferTooSmall:  KindProtocolViolation,
	StatusBadDescriptor:   KindInvalidDescriptor,
	StatusNoSuchComponent: KindInvalidDescriptor,
	StatusBadParameters:   KindBadArgument,
	StatusDecodeFailure:   KindBadArgument,
	StatusNoSuchMethod:    KindHostUnsupported,
	StatusUnsupported:     KindHostUnsupported,
	StatusProtocolError:   KindProtocolViolation,
	StatusTooLarge:        KindBufferTooLarge,
	StatusQueueFull:       KindBufferTooLarge,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint32(s))
}

// Known reports whether s is one of the statuses above.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// Translate maps a host status to an error. StatusOK yields nil. A status
// outside the known set yields an Unknown error holding the raw code.
// BufferTooSmall is handled by size negotiation; reaching here it means the
// negotiation was bypassed and is reported as a protocol violation.
// QueueFull is a BufferTooLarge error that also matches ErrQueueFull.
func Translate(op string, status Status) error {
	if status == StatusOK {
		return nil
	}
	kind, ok := statusKinds[status]
	if !ok {
		return Unknown(op, uint32(status))
	}
	e := &Error{Kind: kind, Op: op, Code: uint32(status), Detail: "host reported " + status.String()}
	if status == StatusQueueFull {
		e.Err = ErrQueueFull
	}
	return e
}
