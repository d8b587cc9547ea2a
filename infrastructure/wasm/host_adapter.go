//go:build wasip1

package wasm

import (
	"context"
	"runtime"

	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/internal/abi"
)

// Compile-time interface compliance check
var _ ports.HostCaller = (*HostAdapter)(nil)

// HostAdapter implements ports.HostCaller over the imported raw host call.
type HostAdapter struct{}

// NewHostAdapter creates a new host adapter.
func NewHostAdapter() *HostAdapter {
	return &HostAdapter{}
}

// HostCall issues the raw call. The host reads in and writes at most len(out)
// bytes of out before returning.
func (a *HostAdapter) HostCall(_ context.Context, call ports.CallIndex, handle uint32, in, out []byte) (status, n uint32) {
	packed := host_call(uint32(call), handle, abi.PackSlice(in), abi.PackSlice(out))
	runtime.KeepAlive(in)
	runtime.KeepAlive(out)
	return abi.UnpackStatus(packed)
}
