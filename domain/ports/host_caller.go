package ports

import (
	"context"
	"fmt"
)

// CallIndex identifies a raw host call.
type CallIndex uint32

// Raw host call indexes.
const (
	CallOpen          CallIndex = 1
	CallList          CallIndex = 2
	CallInvoke        CallIndex = 3
	CallDocumentation CallIndex = 4
	CallDup           CallIndex = 5
	CallRelease       CallIndex = 6
	CallPullSignals   CallIndex = 7
	CallLog           CallIndex = 8
	CallPushSignal    CallIndex = 9
	CallMethods       CallIndex = 10
	CallComponentType CallIndex = 11
	CallSlot          CallIndex = 12
	CallIndexedRead   CallIndex = 13
	CallIndexedWrite  CallIndex = 14
)

func (c CallIndex) String() string {
	switch c {
	case CallOpen:
		return "open"
	case CallList:
		return "list"
	case CallInvoke:
		return "invoke"
	case CallDocumentation:
		return "documentation"
	case CallDup:
		return "dup"
	case CallRelease:
		return "release"
	case CallPullSignals:
		return "pull_signals"
	case CallLog:
		return "log"
	case CallPushSignal:
		return "push_signal"
	case CallMethods:
		return "methods"
	case CallComponentType:
		return "component_type"
	case CallSlot:
		return "slot"
	case CallIndexedRead:
		return "indexed_read"
	case CallIndexedWrite:
		return "indexed_write"
	default:
		return fmt.Sprintf("call(%d)", uint32(c))
	}
}

// HostCaller issues one raw host call.
//
// handle is the raw descriptor the call targets, or 0 when the call has none.
// in is the encoded request; out is the space offered for the response.
// On success status is 0 and n is the number of bytes written to out.
// When status reports that out is too small, n is the number of bytes needed
// and out is left untouched. Any other status carries no payload.
type HostCaller interface {
	HostCall(ctx context.Context, call CallIndex, handle uint32, in, out []byte) (status, n uint32)
}

// Releaser releases a raw host handle.
type Releaser interface {
	Release(ctx context.Context, raw uint32) error
}
