// Package abi packs the 64-bit values exchanged across the raw host call.
package abi

import "fmt"

// PtrHighBits is the shift applied to the high half of a packed value.
const PtrHighBits = 32

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Unlike PackPtrLen it never panics: the value comes from the other side of
// the boundary, and callers validate it against their memory.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> PtrHighBits), uint32(packed)
}

// PackStatus packs a call status and byte count into the call's return value.
func PackStatus(status, n uint32) uint64 {
	return (uint64(status) << PtrHighBits) | uint64(n)
}

// UnpackStatus splits a call's return value into status and byte count.
func UnpackStatus(packed uint64) (status, n uint32) {
	return uint32(packed >> PtrHighBits), uint32(packed)
}
