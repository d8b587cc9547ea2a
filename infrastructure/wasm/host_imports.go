//go:build wasip1

// Package wasm binds the raw host call imported from the "oc_host" module.
package wasm

// Define the host function signature for the raw component call.
//
//go:wasmimport oc_host call
//nolint:revive // intentional snake_case to match WASM import convention
func host_call(call, handle uint32, inPacked, outPacked uint64) uint64
