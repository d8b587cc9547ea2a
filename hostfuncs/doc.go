// Package hostfuncs provides a pure Go implementation of the host side of the
// component call ABI: a component registry, opaque value handles, a bounded
// signal buffer and the pending-response rule of size negotiation.
//
// It has NO WASM runtime dependencies. The Host type implements
// ports.HostCaller directly, so it backs guest logic in native tests, and the
// infrastructure/wazero adapter exports it to real guest modules.
package hostfuncs
