// Package wazero exports a host caller to guest modules running on the wazero runtime.
//
// This package bridges any ports.HostCaller, usually a hostfuncs.Host, with the
// wazero WebAssembly runtime. It handles:
//
//   - Unpacking the packed i64 pointer+length arguments of the raw call
//   - Resolving request and response regions in guest memory
//   - Rejecting requests larger than the configured maximum
//   - Packing the status and byte count into the call's result
//
// # Basic Usage
//
//	registry, err := hostfuncs.NewRegistry(
//	    hostfuncs.WithBundle(hostfuncs.DemoBundle()),
//	)
//	if err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//
//	err = wazero.RegisterWithRuntime(ctx, runtime, hostfuncs.NewHost(registry),
//	    wazero.WithModuleName("oc_host"),
//	)
//
// Guests import the call as
//
//	//go:wasmimport oc_host call
//	func host_call(call, handle uint32, inPacked, outPacked uint64) uint64
package wazero
