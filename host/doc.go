// Package host runs guest modules against an in-process reference host.
//
// It wraps the wazero runtime with WASI, exports a hostfuncs.Host as the
// "oc_host" module, and manages guest lifecycle. The Loader builds reference
// hosts from YAML fixtures so guests can be exercised against scripted
// components and queued signals.
package host
