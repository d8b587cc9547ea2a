//go:build !wasip1

// Package wasm binds the raw host call imported from the "oc_host" module.
package wasm

import (
	"context"

	"github.com/ocwasm/ocsafe/domain/ports"
)

// Compile-time interface compliance check
var _ ports.HostCaller = (*HostAdapter)(nil)

// HostAdapter is a stub for non-WASM builds.
type HostAdapter struct{}

// NewHostAdapter creates a new host adapter.
func NewHostAdapter() *HostAdapter {
	return &HostAdapter{}
}

// HostCall panics because the raw host call only exists inside a guest module.
func (a *HostAdapter) HostCall(context.Context, ports.CallIndex, uint32, []byte, []byte) (uint32, uint32) {
	panic("HostAdapter.HostCall not available in native build")
}
