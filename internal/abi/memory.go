//go:build wasip1

package abi

import "unsafe"

// PackSlice returns the packed pointer and length of b in linear memory.
// The slice must stay reachable until the host call returns.
func PackSlice(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	//nolint:gosec // G103: WASM32 linear memory addresses fit in 32 bits
	ptr := uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
	return PackPtrLen(ptr, uint32(len(b)))
}
